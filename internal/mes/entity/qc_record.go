package entity

import (
	"encoding/json"
	"time"
)

// 质检类型
const (
	QCTypeIncoming   = "incoming"
	QCTypeFirstPiece = "first_piece"
	QCTypeInProcess  = "in_process"
	QCTypeFinal      = "final"
)

// QCRecord 质检记录
// result 为来源系统自由字符串（pass/passed/fail/failed/pending/hold/waived 等），
// 读取侧统一经 engine.Normalize 归一化
type QCRecord struct {
	ID           string          `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID  string          `json:"wo_id" gorm:"column:wo_id;size:32;not null;index"`
	QCType       string          `json:"qc_type" gorm:"size:20;not null;index"`
	Result       string          `json:"result" gorm:"size:20"`
	QCDateTime   time.Time       `json:"qc_date_time" gorm:"not null"`
	Measurements json.RawMessage `json:"measurements" gorm:"type:jsonb"`

	InspectorID string    `json:"inspector_id" gorm:"size:32"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (QCRecord) TableName() string {
	return "mes_qc_records"
}

// ValidQCType 校验质检类型取值
func ValidQCType(t string) bool {
	switch t {
	case QCTypeIncoming, QCTypeFirstPiece, QCTypeInProcess, QCTypeFinal:
		return true
	}
	return false
}
