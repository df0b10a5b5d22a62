package engine

import "github.com/izzyftw1/rvi-sub013/internal/mes/entity"

// StageBreakdown 工单分阶段数量汇总
type StageBreakdown struct {
	Production        float64            `json:"production"`
	External          float64            `json:"external"`
	ExternalByProcess map[string]float64 `json:"external_by_process,omitempty"`
	QC                float64            `json:"qc"`
	Packing           float64            `json:"packing"`
	Dispatched        float64            `json:"dispatched"`
	TotalActive       float64            `json:"total_active"`
	StageCount        int                `json:"stage_count"`
	IsSplitFlow       bool               `json:"is_split_flow"`
}

// BuildStageBreakdown 汇总一个工单的批次与外协流转数据。
// 纯折叠计算，无副作用，可在每次数据变更后安全重算。
// 外协数量优先取 ExternalMove 在外量（更细粒度的权威台账），
// 只有不存在任何外协单时才回退到批次上的粗粒度外协标记。
// batch_quantity 为 0 的批次回退用工单总量，避免空批次被当成没有足迹。
func BuildStageBreakdown(batches []entity.ProductionBatch, moves []entity.ExternalMove, orderedQty float64) StageBreakdown {
	bd := StageBreakdown{}

	batchExternal := 0.0
	for i := range batches {
		b := &batches[i]
		qty := b.BatchQuantity
		if qty <= 0 {
			qty = orderedQty
		}
		if qty < 0 {
			qty = 0
		}
		switch b.StageType {
		case entity.BatchStageProduction:
			bd.Production += qty
		case entity.BatchStageExternal:
			batchExternal += qty
		case entity.BatchStageQC:
			bd.QC += qty
		case entity.BatchStagePacking:
			bd.Packing += qty
		case entity.BatchStageDispatched:
			bd.Dispatched += qty
		}
	}

	if len(moves) > 0 {
		byProcess := make(map[string]float64)
		for i := range moves {
			m := &moves[i]
			q := m.InFlightQty()
			if q <= 0 {
				continue
			}
			bd.External += q
			byProcess[m.Process] += q
		}
		if len(byProcess) > 0 {
			bd.ExternalByProcess = byProcess
		}
	} else {
		bd.External = batchExternal
	}

	// dispatched 已离场，不计入在制
	bd.TotalActive = bd.Production + bd.External + bd.QC + bd.Packing

	for _, q := range []float64{bd.Production, bd.External, bd.QC, bd.Packing} {
		if q > 0 {
			bd.StageCount++
		}
	}
	bd.IsSplitFlow = bd.StageCount > 1
	return bd
}

// DispatchableQty 批次可发货数量之和
func DispatchableQty(batches []entity.ProductionBatch) float64 {
	total := 0.0
	for i := range batches {
		total += batches[i].DispatchableQty()
	}
	return total
}
