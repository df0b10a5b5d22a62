package entity

import "time"

// 批次所处阶段
const (
	BatchStageProduction = "production"
	BatchStageExternal   = "external"
	BatchStageQC         = "qc"
	BatchStagePacking    = "packing"
	BatchStageDispatched = "dispatched"
)

// ProductionBatch 生产批次
// 约束: 0 ≤ dispatched_qty ≤ qc_approved_qty ≤ batch_quantity
// ended_at 为空表示批次仍停留在当前阶段
type ProductionBatch struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID   string     `json:"wo_id" gorm:"column:wo_id;size:32;not null;index"`
	BatchNumber   int        `json:"batch_number" gorm:"not null"`
	StageType     string     `json:"stage_type" gorm:"size:20;not null"`
	BatchQuantity float64    `json:"batch_quantity" gorm:"type:decimal(12,4);default:0"`
	QCApprovedQty float64    `json:"qc_approved_qty" gorm:"type:decimal(12,4);default:0"`
	DispatchedQty float64    `json:"dispatched_qty" gorm:"type:decimal(12,4);default:0"`
	QCFinalStatus string     `json:"qc_final_status" gorm:"size:20"`
	EndedAt       *time.Time `json:"ended_at"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionBatch) TableName() string {
	return "mes_production_batches"
}

// Active 批次是否仍在流转中
func (b *ProductionBatch) Active() bool {
	return b.EndedAt == nil
}

// DispatchableQty 可发货数量，脏数据时钳为0
func (b *ProductionBatch) DispatchableQty() float64 {
	d := b.QCApprovedQty - b.DispatchedQty
	if d < 0 {
		return 0
	}
	return d
}
