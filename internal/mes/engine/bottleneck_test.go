package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
)

func TestClassifyQualityIssue(t *testing.T) {
	// 计划100，合格85，报废15 → 不良率15% > 10%
	step := &entity.RouteStep{PlannedQty: 100, ActualOKQty: 85, Rejections: 15}
	btype, ok := ClassifyStep(step, 0)
	require.True(t, ok)
	assert.Equal(t, BottleneckQuality, btype)
}

func TestClassifyPrecedenceQualityOverDowntime(t *testing.T) {
	// 不良率15%且停机占比40% → 报质量问题，不报停机
	step := &entity.RouteStep{
		ActualOKQty: 85, Rejections: 15,
		DowntimeMin: 40, RuntimeMin: 60,
	}
	btype, ok := ClassifyStep(step, 0)
	require.True(t, ok)
	assert.Equal(t, BottleneckQuality, btype)
}

func TestClassifyDowntimeIssue(t *testing.T) {
	step := &entity.RouteStep{
		ActualOKQty: 98, Rejections: 2,
		DowntimeMin: 40, RuntimeMin: 60,
	}
	btype, ok := ClassifyStep(step, 0)
	require.True(t, ok)
	assert.Equal(t, BottleneckDowntime, btype)
}

func TestClassifySlowProgress(t *testing.T) {
	// 未触发质量/停机阈值但落后于期望完成量
	step := &entity.RouteStep{PlannedQty: 100, ActualOKQty: 20, Rejections: 1}
	btype, ok := ClassifyStep(step, 60)
	require.True(t, ok)
	assert.Equal(t, BottleneckSlow, btype)
}

func TestClassifyNoData(t *testing.T) {
	// 无执行数据、无报废、无停机 → 不分类
	step := &entity.RouteStep{PlannedQty: 100}
	_, ok := ClassifyStep(step, 50)
	assert.False(t, ok)
}

func TestClassifyThresholdBoundary(t *testing.T) {
	// 恰好10%不良率不算质量问题（阈值为严格大于）
	step := &entity.RouteStep{ActualOKQty: 90, Rejections: 10}
	btype, ok := ClassifyStep(step, 0)
	if ok {
		assert.NotEqual(t, BottleneckQuality, btype)
	}
}

func TestDetectWOFlag(t *testing.T) {
	wo := &entity.WorkOrder{Quantity: 1000, QtyCompleted: 500}
	steps := []entity.RouteStep{
		{ID: "s1", SequenceNumber: 1, OperationType: entity.OpTypeCNC, PlannedQty: 1000, ActualOKQty: 850, Rejections: 150},
		{ID: "s2", SequenceNumber: 2, OperationType: entity.OpTypeQC, PlannedQty: 1000},
	}
	report := Detect(wo, steps)
	assert.True(t, report.HasBottleneck)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, "s1", report.Steps[0].StepID)
	assert.Equal(t, BottleneckQuality, report.Steps[0].Type)
	assert.InDelta(t, 0.15, report.Steps[0].RejectionRate, 1e-9)
}

func TestDetectNoBottleneck(t *testing.T) {
	wo := &entity.WorkOrder{Quantity: 1000, QtyCompleted: 100}
	steps := []entity.RouteStep{
		{ID: "s1", SequenceNumber: 1, PlannedQty: 1000, ActualOKQty: 200},
	}
	report := Detect(wo, steps)
	assert.False(t, report.HasBottleneck)
	assert.Empty(t, report.Steps)
}
