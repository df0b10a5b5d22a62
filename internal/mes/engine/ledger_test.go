package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
)

func TestBreakdownSingleStage(t *testing.T) {
	batches := []entity.ProductionBatch{
		{StageType: entity.BatchStageProduction, BatchQuantity: 300},
		{StageType: entity.BatchStageProduction, BatchQuantity: 200},
	}
	bd := BuildStageBreakdown(batches, nil, 1000)
	assert.Equal(t, 500.0, bd.Production)
	assert.Equal(t, 1, bd.StageCount)
	assert.False(t, bd.IsSplitFlow)
	assert.Equal(t, 500.0, bd.TotalActive)
}

func TestBreakdownSplitFlow(t *testing.T) {
	// 一部分在质检、一部分已包装 → 分裂流
	batches := []entity.ProductionBatch{
		{StageType: entity.BatchStageQC, BatchQuantity: 400},
		{StageType: entity.BatchStagePacking, BatchQuantity: 600},
	}
	bd := BuildStageBreakdown(batches, nil, 1000)
	assert.Equal(t, 400.0, bd.QC)
	assert.Equal(t, 600.0, bd.Packing)
	assert.Equal(t, 2, bd.StageCount)
	assert.True(t, bd.IsSplitFlow)
}

func TestBreakdownDispatchedNotActiveNotSplit(t *testing.T) {
	// dispatched 不参与分裂流判定，也不计入在制
	batches := []entity.ProductionBatch{
		{StageType: entity.BatchStageProduction, BatchQuantity: 500},
		{StageType: entity.BatchStageDispatched, BatchQuantity: 500},
	}
	bd := BuildStageBreakdown(batches, nil, 1000)
	assert.Equal(t, 500.0, bd.Dispatched)
	assert.Equal(t, 500.0, bd.TotalActive)
	assert.Equal(t, 1, bd.StageCount)
	assert.False(t, bd.IsSplitFlow)
}

func TestBreakdownExternalPrefersMoveLedger(t *testing.T) {
	// 存在外协单时以在外量为准，批次上的外协标记只作回退
	batches := []entity.ProductionBatch{
		{StageType: entity.BatchStageExternal, BatchQuantity: 999},
	}
	moves := []entity.ExternalMove{
		{Process: "anodizing", QuantitySent: 300, QuantityReturned: 100},
		{Process: "plating", QuantitySent: 50, QuantityReturned: 0},
	}
	bd := BuildStageBreakdown(batches, moves, 1000)
	assert.Equal(t, 250.0, bd.External)
	assert.Equal(t, 200.0, bd.ExternalByProcess["anodizing"])
	assert.Equal(t, 50.0, bd.ExternalByProcess["plating"])
}

func TestBreakdownExternalFallbackToBatches(t *testing.T) {
	batches := []entity.ProductionBatch{
		{StageType: entity.BatchStageExternal, BatchQuantity: 120},
	}
	bd := BuildStageBreakdown(batches, nil, 1000)
	assert.Equal(t, 120.0, bd.External)
}

func TestBreakdownClampsNegativeInFlight(t *testing.T) {
	// 外部系统写入 returned > sent 的脏数据时钳为0，不得为负
	moves := []entity.ExternalMove{
		{Process: "coating", QuantitySent: 100, QuantityReturned: 150},
	}
	bd := BuildStageBreakdown(nil, moves, 1000)
	assert.Equal(t, 0.0, bd.External)
	assert.False(t, bd.IsSplitFlow)
}

func TestBreakdownZeroQtyBatchFallsBackToOrderQty(t *testing.T) {
	batches := []entity.ProductionBatch{
		{StageType: entity.BatchStageQC, BatchQuantity: 0},
	}
	bd := BuildStageBreakdown(batches, nil, 750)
	assert.Equal(t, 750.0, bd.QC)
}

func TestDispatchableQty(t *testing.T) {
	batches := []entity.ProductionBatch{
		{QCApprovedQty: 500, DispatchedQty: 500}, // 全部发完，排除
		{QCApprovedQty: 300, DispatchedQty: 100},
		{QCApprovedQty: 100, DispatchedQty: 150}, // 脏数据钳为0
	}
	assert.Equal(t, 200.0, DispatchableQty(batches))
	assert.Equal(t, 0.0, batches[0].DispatchableQty())
}
