package entity

import "time"

// 外协单状态
const (
	ExternalMoveOpen     = "open"
	ExternalMoveReturned = "returned"
	ExternalMoveClosed   = "closed"
)

// ExternalMove 外协流转单
type ExternalMove struct {
	ID               string  `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID      string  `json:"work_order_id" gorm:"size:32;not null;index"`
	Process          string  `json:"process" gorm:"size:100;not null"`
	QuantitySent     float64 `json:"quantity_sent" gorm:"type:decimal(12,4);default:0"`
	QuantityReturned float64 `json:"quantity_returned" gorm:"type:decimal(12,4);default:0"`
	Status           string  `json:"status" gorm:"size:20;default:open"`

	SentAt     *time.Time `json:"sent_at"`
	ReturnedAt *time.Time `json:"returned_at"`
	CreatedBy  string     `json:"created_by" gorm:"size:32"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (ExternalMove) TableName() string {
	return "mes_external_moves"
}

// InFlightQty 在外数量。外部系统可写入脏数据，负值钳为0
func (m *ExternalMove) InFlightQty() float64 {
	q := m.QuantitySent - m.QuantityReturned
	if q < 0 {
		return 0
	}
	return q
}
