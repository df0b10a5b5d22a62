package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
)

func TestFirstPieceBlockedWhenMaterialIncomplete(t *testing.T) {
	// 来料 pending + 首件 not_started → 首件展示为 blocked
	material := ResolveMaterialGate("pending")
	fp := ResolveFirstPieceGate("not_started", material)
	assert.Equal(t, StatusBlocked, fp.Resolved)
	assert.Equal(t, StatusNotStarted, fp.Stored)
	assert.False(t, fp.Complete)
}

func TestFirstPieceBlockedWhenStoredAbsent(t *testing.T) {
	material := ResolveMaterialGate("")
	fp := ResolveFirstPieceGate("", material)
	assert.Equal(t, StatusBlocked, fp.Resolved)
}

func TestFirstPieceNotBlockedOnceMaterialComplete(t *testing.T) {
	// 来料 waived + 首件 pending → 展示 pending 而非 blocked，但仍未完成
	material := ResolveMaterialGate("waived")
	require.True(t, material.Complete)
	fp := ResolveFirstPieceGate("pending", material)
	assert.Equal(t, StatusPending, fp.Resolved)
	assert.False(t, fp.Complete)
}

func TestFirstPieceFailedNotOverridden(t *testing.T) {
	// blocked 只覆盖 pending/not_started，明确的 failed 原样展示
	material := ResolveMaterialGate("pending")
	fp := ResolveFirstPieceGate("failed", material)
	assert.Equal(t, StatusFailed, fp.Resolved)
}

func TestCanRelease(t *testing.T) {
	cases := []struct {
		material   string
		firstPiece string
		want       bool
	}{
		{"passed", "waived", true},
		{"pass", "pass", true},
		{"waived", "passed", true},
		{"waived", "pending", false},
		{"pending", "not_started", false},
		{"hold", "passed", false},
		{"passed", "hold", false},
		{"passed", "failed", false},
		{"", "", false},
	}
	for _, tc := range cases {
		wo := &entity.WorkOrder{QCMaterialStatus: tc.material, QCFirstPieceStatus: tc.firstPiece}
		assert.Equal(t, tc.want, CanRelease(wo), "material=%q first_piece=%q", tc.material, tc.firstPiece)
	}
}

func TestCountGateUsesLatestRecord(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	records := []entity.QCRecord{
		{QCType: entity.QCTypeInProcess, Result: "fail", QCDateTime: base},
		{QCType: entity.QCTypeInProcess, Result: "pass", QCDateTime: base.Add(2 * time.Hour)},
		{QCType: entity.QCTypeFinal, Result: "hold", QCDateTime: base.Add(time.Hour)},
	}
	gate := ResolveCountGate(records, entity.QCTypeInProcess)
	require.True(t, gate.HasStatus)
	assert.Equal(t, 2, gate.Count)
	assert.Equal(t, StatusPassed, gate.Latest)

	final := ResolveCountGate(records, entity.QCTypeFinal)
	assert.Equal(t, 1, final.Count)
	assert.Equal(t, StatusHold, final.Latest)
}

func TestCountGateNoRecords(t *testing.T) {
	// 零记录时没有任何颜色状态，区别于 not_started
	gate := ResolveCountGate(nil, entity.QCTypeInProcess)
	assert.False(t, gate.HasStatus)
	assert.Equal(t, 0, gate.Count)
}

func TestResolveGatesScenario(t *testing.T) {
	// 来料 passed + 首件 waived → 可放行
	wo := &entity.WorkOrder{QCMaterialStatus: "passed", QCFirstPieceStatus: "waived"}
	view := ResolveGates(wo, nil)
	assert.True(t, view.Material.Complete)
	assert.True(t, view.FirstPiece.Complete)
	assert.Equal(t, StatusWaived, view.FirstPiece.Resolved)
	assert.True(t, CanRelease(wo))
}
