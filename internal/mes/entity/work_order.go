package entity

import (
	"time"
)

// 宏观阶段
const (
	StageRawMaterial = "raw_material"
	StageProduction  = "production"
	StageExternal    = "external"
	StageQC          = "qc"
	StagePacking     = "packing"
	StageDispatched  = "dispatched"
)

// 生产放行状态
const (
	ReleaseStatusNotReleased = "NOT_RELEASED"
	ReleaseStatusReleased    = "RELEASED"
)

// 完工原因
const (
	CompleteReasonManual     = "manual"
	CompleteReasonQtyReached = "qty_reached"
	CompleteReasonQCGated    = "qc_gated"
)

// WorkOrder 工单
type WorkOrder struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	WOCode   string `json:"wo_code" gorm:"size:50;not null;uniqueIndex"`
	ItemCode string `json:"item_code" gorm:"size:64"`
	ItemName string `json:"item_name" gorm:"size:200"`

	Quantity     float64 `json:"quantity" gorm:"type:decimal(12,4);not null"`
	QtyCompleted float64 `json:"qty_completed" gorm:"type:decimal(12,4);default:0"`
	CurrentStage string  `json:"current_stage" gorm:"size:20;default:raw_material"`

	// 质检门状态（来料/首件），存储值为自由字符串，读取时统一归一化
	QCMaterialStatus   string `json:"qc_material_status" gorm:"size:20"`
	QCFirstPieceStatus string `json:"qc_first_piece_status" gorm:"size:20"`

	// 生产放行（仅由 GateService 写入）
	ProductionReleaseStatus string     `json:"production_release_status" gorm:"size:20;default:NOT_RELEASED"`
	ProductionReleaseDate   *time.Time `json:"production_release_date"`
	ProductionReleasedBy    string     `json:"production_released_by" gorm:"size:32"`
	ProductionReleaseNotes  string     `json:"production_release_notes" gorm:"type:text"`
	ProductionAllowed       bool       `json:"production_allowed" gorm:"default:false"`

	// 生产完工（仅由 GateService 写入）
	ProductionComplete       bool       `json:"production_complete" gorm:"default:false"`
	ProductionCompleteQty    float64    `json:"production_complete_qty" gorm:"type:decimal(12,4);default:0"`
	ProductionCompletedAt    *time.Time `json:"production_completed_at"`
	ProductionCompletedBy    string     `json:"production_completed_by" gorm:"size:32"`
	ProductionCompleteReason string     `json:"production_complete_reason" gorm:"size:20"`

	Notes     string     `json:"notes" gorm:"type:text"`
	CreatedBy string     `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	RouteSteps []RouteStep       `json:"route_steps,omitempty" gorm:"foreignKey:WorkOrderID"`
	Batches    []ProductionBatch `json:"batches,omitempty" gorm:"foreignKey:WorkOrderID"`
}

func (WorkOrder) TableName() string {
	return "mes_work_orders"
}
