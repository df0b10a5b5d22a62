package entity

import "time"

// StageHistoryEntry 阶段流转审计记录，只追加，不修改不删除
type StageHistoryEntry struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID string    `json:"work_order_id" gorm:"size:32;not null;index"`
	FromStage   string    `json:"from_stage" gorm:"size:20"`
	ToStage     string    `json:"to_stage" gorm:"size:20;not null"`
	ChangedAt   time.Time `json:"changed_at" gorm:"not null"`
	ChangedBy   string    `json:"changed_by" gorm:"size:32"`
	IsOverride  bool      `json:"is_override" gorm:"default:false"`
	Reason      string    `json:"reason" gorm:"type:text"`
}

func (StageHistoryEntry) TableName() string {
	return "mes_stage_history"
}
