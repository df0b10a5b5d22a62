package entity

import "time"

// 工序类型
const (
	OpTypeRawMaterial     = "RAW_MATERIAL"
	OpTypeCNC             = "CNC"
	OpTypeQC              = "QC"
	OpTypeExternalProcess = "EXTERNAL_PROCESS"
	OpTypePacking         = "PACKING"
	OpTypeDispatch        = "DISPATCH"
)

// RouteStep 工艺路线工序
// 约束: (work_order_id, sequence_number) 唯一，序号构成稠密全序
type RouteStep struct {
	ID             string `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID    string `json:"work_order_id" gorm:"size:32;not null;index;uniqueIndex:idx_route_wo_seq"`
	SequenceNumber int    `json:"sequence_number" gorm:"not null;uniqueIndex:idx_route_wo_seq"`
	OperationType  string `json:"operation_type" gorm:"size:20;not null"`
	ProcessName    string `json:"process_name" gorm:"size:100"`
	IsExternal     bool   `json:"is_external" gorm:"default:false"`
	IsMandatory    bool   `json:"is_mandatory" gorm:"default:true"`

	// 实际执行数据（由车间报工回写，瓶颈分析读取）
	PlannedQty  float64 `json:"planned_qty" gorm:"type:decimal(12,4);default:0"`
	ActualOKQty float64 `json:"actual_ok_qty" gorm:"type:decimal(12,4);default:0"`
	Rejections  float64 `json:"rejections" gorm:"type:decimal(12,4);default:0"`
	DowntimeMin float64 `json:"downtime_min" gorm:"type:decimal(12,2);default:0"`
	RuntimeMin  float64 `json:"runtime_min" gorm:"type:decimal(12,2);default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RouteStep) TableName() string {
	return "mes_route_steps"
}

// ValidOperationType 校验工序类型取值
func ValidOperationType(t string) bool {
	switch t {
	case OpTypeRawMaterial, OpTypeCNC, OpTypeQC, OpTypeExternalProcess, OpTypePacking, OpTypeDispatch:
		return true
	}
	return false
}
