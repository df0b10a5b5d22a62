package engine

import "github.com/izzyftw1/rvi-sub013/internal/mes/entity"

// BottleneckType 瓶颈分类
type BottleneckType string

const (
	BottleneckQuality  BottleneckType = "quality_issue"
	BottleneckDowntime BottleneckType = "downtime_issue"
	BottleneckSlow     BottleneckType = "slow_progress"
)

// 判定阈值
const (
	rejectionRateThreshold    = 0.10
	downtimeFractionThreshold = 0.30
)

// StepBottleneck 单个工序的瓶颈判定结果
type StepBottleneck struct {
	StepID         string         `json:"step_id"`
	SequenceNumber int            `json:"sequence_number"`
	OperationType  string         `json:"operation_type"`
	ProcessName    string         `json:"process_name,omitempty"`
	Type           BottleneckType `json:"type"`
	RejectionRate  float64        `json:"rejection_rate"`
	DowntimeFrac   float64        `json:"downtime_fraction"`
}

// BottleneckReport 工单级瓶颈报告
type BottleneckReport struct {
	HasBottleneck bool             `json:"has_bottleneck"`
	Steps         []StepBottleneck `json:"steps,omitempty"`
}

// ClassifyStep 对单个工序做瓶颈分类，最多命中一类，优先级固定:
// 质量 > 停机 > 进度。质量与停机同时超标时报质量 —— 质量信号优先引导操作员注意。
// expectedOK 为按计划节拍此刻应完成的合格量；无执行数据的工序不分类。
func ClassifyStep(step *entity.RouteStep, expectedOK float64) (BottleneckType, bool) {
	hasData := step.ActualOKQty > 0 || step.Rejections > 0 || step.DowntimeMin > 0 || step.RuntimeMin > 0
	if !hasData {
		return "", false
	}

	if total := step.ActualOKQty + step.Rejections; total > 0 {
		if step.Rejections/total > rejectionRateThreshold {
			return BottleneckQuality, true
		}
	}
	if span := step.DowntimeMin + step.RuntimeMin; span > 0 {
		if step.DowntimeMin/span > downtimeFractionThreshold {
			return BottleneckDowntime, true
		}
	}
	if expectedOK > 0 && step.ActualOKQty < expectedOK {
		return BottleneckSlow, true
	}
	return "", false
}

// Detect 汇总整个工艺路线的瓶颈。
// 按计划节拍的期望完成量取 工序计划量 × 工单整体完成率，
// 落后于工单自身节奏且未触发质量/停机阈值的工序记为 slow_progress。
func Detect(wo *entity.WorkOrder, steps []entity.RouteStep) BottleneckReport {
	report := BottleneckReport{}

	pace := 0.0
	if wo.Quantity > 0 {
		pace = wo.QtyCompleted / wo.Quantity
		if pace > 1 {
			pace = 1
		}
	}

	for i := range steps {
		step := &steps[i]
		expected := step.PlannedQty * pace
		btype, ok := ClassifyStep(step, expected)
		if !ok {
			continue
		}
		sb := StepBottleneck{
			StepID:         step.ID,
			SequenceNumber: step.SequenceNumber,
			OperationType:  step.OperationType,
			ProcessName:    step.ProcessName,
			Type:           btype,
		}
		if total := step.ActualOKQty + step.Rejections; total > 0 {
			sb.RejectionRate = step.Rejections / total
		}
		if span := step.DowntimeMin + step.RuntimeMin; span > 0 {
			sb.DowntimeFrac = step.DowntimeMin / span
		}
		report.Steps = append(report.Steps, sb)
	}
	report.HasBottleneck = len(report.Steps) > 0
	return report
}
