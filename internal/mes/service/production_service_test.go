package service

import (
	"testing"

	"gorm.io/gorm"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"github.com/izzyftw1/rvi-sub013/internal/mes/notify"
	"github.com/izzyftw1/rvi-sub013/internal/mes/repository"
	"github.com/izzyftw1/rvi-sub013/internal/mes/testutil"
)

func setupProductionTest(t *testing.T) (*gorm.DB, *repository.Repositories, *ProductionService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewProductionService(repos, notify.NewHub(0, nil))
	return db, repos, svc
}

func seedReleasedWO(t *testing.T, db *gorm.DB) *entity.WorkOrder {
	t.Helper()
	return seedWorkOrder(t, db, func(w *entity.WorkOrder) {
		w.QCMaterialStatus = "passed"
		w.QCFirstPieceStatus = "passed"
		w.ProductionReleaseStatus = entity.ReleaseStatusReleased
		w.ProductionAllowed = true
		w.CurrentStage = entity.StageProduction
	})
}

func TestLogBatchLockedBeforeRelease(t *testing.T) {
	db, _, svc := setupProductionTest(t)
	wo := seedWorkOrder(t, db, nil)
	if _, err := svc.LogBatch(wo.ID, LogBatchRequest{Quantity: 100}, "op-1"); err == nil {
		t.Fatal("logging a batch before release must be rejected")
	}
}

func TestLogBatchLockedAfterCompletion(t *testing.T) {
	db, _, svc := setupProductionTest(t)
	wo := seedWorkOrder(t, db, func(w *entity.WorkOrder) {
		w.ProductionReleaseStatus = entity.ReleaseStatusReleased
		w.ProductionAllowed = true
		w.ProductionComplete = true
	})
	if _, err := svc.LogBatch(wo.ID, LogBatchRequest{Quantity: 100}, "op-1"); err == nil {
		t.Fatal("logging a batch after completion must be rejected")
	}
}

// TestLogBatchAccumulatesQty verifies batch numbers increment per work order
// and the completed quantity rollup tracks the sum of batches
func TestLogBatchAccumulatesQty(t *testing.T) {
	db, repos, svc := setupProductionTest(t)
	wo := seedReleasedWO(t, db)

	b1, err := svc.LogBatch(wo.ID, LogBatchRequest{Quantity: 300}, "op-1")
	if err != nil {
		t.Fatalf("LogBatch failed: %v", err)
	}
	b2, err := svc.LogBatch(wo.ID, LogBatchRequest{Quantity: 200}, "op-1")
	if err != nil {
		t.Fatalf("LogBatch failed: %v", err)
	}
	if b1.BatchNumber != 1 || b2.BatchNumber != 2 {
		t.Errorf("expected batch numbers 1,2, got %d,%d", b1.BatchNumber, b2.BatchNumber)
	}
	if b1.StageType != entity.BatchStageProduction {
		t.Errorf("new batch should start in production stage, got %s", b1.StageType)
	}

	fresh, err := repos.WorkOrder.GetByID(wo.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fresh.QtyCompleted != 500 {
		t.Errorf("expected qty_completed 500, got %.4f", fresh.QtyCompleted)
	}
}

func TestMoveBatchValidatesStageAndQCBounds(t *testing.T) {
	db, _, svc := setupProductionTest(t)
	wo := seedReleasedWO(t, db)
	batch, err := svc.LogBatch(wo.ID, LogBatchRequest{Quantity: 400}, "op-1")
	if err != nil {
		t.Fatalf("LogBatch failed: %v", err)
	}

	if _, err := svc.MoveBatch(batch.ID, MoveBatchRequest{StageType: "warehouse"}); err == nil {
		t.Error("unknown batch stage must be rejected")
	}

	over := 401.0
	if _, err := svc.MoveBatch(batch.ID, MoveBatchRequest{StageType: entity.BatchStageQC, QCApprovedQty: &over}); err == nil {
		t.Error("qc_approved_qty above batch quantity must be rejected")
	}

	ok := 380.0
	moved, err := svc.MoveBatch(batch.ID, MoveBatchRequest{
		StageType:     entity.BatchStagePacking,
		QCApprovedQty: &ok,
		QCFinalStatus: "passed",
	})
	if err != nil {
		t.Fatalf("MoveBatch failed: %v", err)
	}
	if moved.StageType != entity.BatchStagePacking || moved.QCApprovedQty != 380 {
		t.Errorf("unexpected batch state after move: stage=%s qc=%.4f", moved.StageType, moved.QCApprovedQty)
	}
}

// TestDispatchBatchInvariant covers 0 ≤ dispatched ≤ qc_approved: partial
// dispatches accumulate, over-dispatch is refused, full dispatch ends the batch
func TestDispatchBatchInvariant(t *testing.T) {
	db, _, svc := setupProductionTest(t)
	wo := seedReleasedWO(t, db)
	batch, err := svc.LogBatch(wo.ID, LogBatchRequest{Quantity: 400}, "op-1")
	if err != nil {
		t.Fatalf("LogBatch failed: %v", err)
	}
	approved := 380.0
	if _, err := svc.MoveBatch(batch.ID, MoveBatchRequest{StageType: entity.BatchStagePacking, QCApprovedQty: &approved}); err != nil {
		t.Fatalf("MoveBatch failed: %v", err)
	}

	if _, err := svc.DispatchBatch(batch.ID, DispatchBatchRequest{Quantity: 400}); err == nil {
		t.Fatal("dispatching more than qc_approved must be refused")
	}

	partial, err := svc.DispatchBatch(batch.ID, DispatchBatchRequest{Quantity: 300})
	if err != nil {
		t.Fatalf("partial dispatch failed: %v", err)
	}
	if partial.DispatchedQty != 300 || partial.StageType == entity.BatchStageDispatched {
		t.Errorf("partial dispatch should not close the batch: dispatched=%.4f stage=%s",
			partial.DispatchedQty, partial.StageType)
	}

	final, err := svc.DispatchBatch(batch.ID, DispatchBatchRequest{Quantity: 80})
	if err != nil {
		t.Fatalf("final dispatch failed: %v", err)
	}
	if final.StageType != entity.BatchStageDispatched || final.EndedAt == nil {
		t.Error("fully dispatched batch should advance to dispatched with ended_at set")
	}
}

// TestMoveBatchCannotDropApprovedBelowDispatched: 部分发货后再改合格量，
// 合格量不得低于已发货量，否则 dispatched ≤ qc_approved 不变量被打破
func TestMoveBatchCannotDropApprovedBelowDispatched(t *testing.T) {
	db, _, svc := setupProductionTest(t)
	wo := seedReleasedWO(t, db)
	batch, err := svc.LogBatch(wo.ID, LogBatchRequest{Quantity: 400}, "op-1")
	if err != nil {
		t.Fatalf("LogBatch failed: %v", err)
	}
	approved := 380.0
	if _, err := svc.MoveBatch(batch.ID, MoveBatchRequest{StageType: entity.BatchStagePacking, QCApprovedQty: &approved}); err != nil {
		t.Fatalf("MoveBatch failed: %v", err)
	}
	if _, err := svc.DispatchBatch(batch.ID, DispatchBatchRequest{Quantity: 100}); err != nil {
		t.Fatalf("DispatchBatch failed: %v", err)
	}

	below := 50.0
	if _, err := svc.MoveBatch(batch.ID, MoveBatchRequest{StageType: entity.BatchStagePacking, QCApprovedQty: &below}); err == nil {
		t.Fatal("qc_approved_qty below dispatched_qty must be rejected")
	}

	fresh, err := svc.batchRepo.GetByID(batch.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fresh.QCApprovedQty != 380 || fresh.DispatchedQty != 100 {
		t.Errorf("batch must be unchanged after rejected move: approved=%.4f dispatched=%.4f",
			fresh.QCApprovedQty, fresh.DispatchedQty)
	}
}

func TestExternalMoveReturnBounds(t *testing.T) {
	db, _, svc := setupProductionTest(t)
	wo := seedReleasedWO(t, db)

	move, err := svc.SendExternal(wo.ID, SendExternalRequest{Process: "阳极氧化", Quantity: 500}, "op-1")
	if err != nil {
		t.Fatalf("SendExternal failed: %v", err)
	}
	if move.Status != entity.ExternalMoveOpen || move.InFlightQty() != 500 {
		t.Errorf("unexpected new move state: status=%s in_flight=%.4f", move.Status, move.InFlightQty())
	}

	if _, err := svc.ReturnExternal(move.ID, ReturnExternalRequest{Quantity: 600}); err == nil {
		t.Fatal("returning more than sent must be rejected")
	}

	partial, err := svc.ReturnExternal(move.ID, ReturnExternalRequest{Quantity: 200})
	if err != nil {
		t.Fatalf("partial return failed: %v", err)
	}
	if partial.Status != entity.ExternalMoveOpen || partial.InFlightQty() != 300 {
		t.Errorf("partial return should keep the move open with 300 in flight, got status=%s in_flight=%.4f",
			partial.Status, partial.InFlightQty())
	}

	full, err := svc.ReturnExternal(move.ID, ReturnExternalRequest{Quantity: 300})
	if err != nil {
		t.Fatalf("full return failed: %v", err)
	}
	if full.Status != entity.ExternalMoveReturned || full.InFlightQty() != 0 {
		t.Errorf("full return should close the move, got status=%s", full.Status)
	}
}

// TestLogQCWritesBackGateStatus verifies incoming and first_piece inspections
// update the stored gate fields on the work order, while in_process does not
func TestLogQCWritesBackGateStatus(t *testing.T) {
	db, repos, svc := setupProductionTest(t)
	wo := seedWorkOrder(t, db, nil)

	if _, err := svc.LogQC(wo.ID, LogQCRequest{QCType: entity.QCTypeIncoming, Result: "passed"}, "insp-1"); err != nil {
		t.Fatalf("LogQC incoming failed: %v", err)
	}
	if _, err := svc.LogQC(wo.ID, LogQCRequest{QCType: entity.QCTypeFirstPiece, Result: "hold"}, "insp-1"); err != nil {
		t.Fatalf("LogQC first_piece failed: %v", err)
	}
	if _, err := svc.LogQC(wo.ID, LogQCRequest{QCType: entity.QCTypeInProcess, Result: "failed"}, "insp-1"); err != nil {
		t.Fatalf("LogQC in_process failed: %v", err)
	}

	fresh, _ := repos.WorkOrder.GetByID(wo.ID)
	if fresh.QCMaterialStatus != "passed" {
		t.Errorf("incoming result should be written to qc_material_status, got %q", fresh.QCMaterialStatus)
	}
	if fresh.QCFirstPieceStatus != "hold" {
		t.Errorf("first_piece result should be written to qc_first_piece_status, got %q", fresh.QCFirstPieceStatus)
	}

	recs, err := svc.ListQCRecords(wo.ID)
	if err != nil {
		t.Fatalf("ListQCRecords failed: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("expected 3 qc records, got %d", len(recs))
	}
}

func TestLogQCRejectsUnknownType(t *testing.T) {
	db, _, svc := setupProductionTest(t)
	wo := seedWorkOrder(t, db, nil)
	if _, err := svc.LogQC(wo.ID, LogQCRequest{QCType: "random_audit", Result: "passed"}, "insp-1"); err == nil {
		t.Fatal("unknown qc type must be rejected")
	}
}

func TestReportStepExecutionRejectsNegatives(t *testing.T) {
	db, repos, svc := setupProductionTest(t)
	wo := seedReleasedWO(t, db)
	step := &entity.RouteStep{
		ID:            "step-exec-1",
		WorkOrderID:   wo.ID,
		OperationType: entity.OpTypeCNC,
		PlannedQty:    1000,
	}
	if err := repos.RouteStep.AppendStep(step); err != nil {
		t.Fatalf("seed step failed: %v", err)
	}

	if err := svc.ReportStepExecution(step.ID, StepExecutionRequest{ActualOKQty: -1}); err == nil {
		t.Fatal("negative execution data must be rejected")
	}
	if err := svc.ReportStepExecution(step.ID, StepExecutionRequest{
		ActualOKQty: 120, Rejections: 18, DowntimeMin: 45, RuntimeMin: 200,
	}); err != nil {
		t.Fatalf("ReportStepExecution failed: %v", err)
	}
}

func TestChangeStageRejectsUnknownStage(t *testing.T) {
	db, _, svc := setupProductionTest(t)
	wo := seedReleasedWO(t, db)

	if _, err := svc.ChangeStage(wo.ID, ChangeStageRequest{ToStage: "warehouse"}, "sup-1"); err == nil {
		t.Fatal("unknown stage must be rejected")
	}

	fresh, _ := svc.woRepo.GetByID(wo.ID)
	if fresh.CurrentStage != entity.StageProduction {
		t.Errorf("stage must be unchanged after rejected transition, got %s", fresh.CurrentStage)
	}
	entries, _ := svc.ListStageHistory(wo.ID)
	if len(entries) != 0 {
		t.Errorf("rejected transition must not be audited, got %d entries", len(entries))
	}
}

func TestChangeStageAppendsHistory(t *testing.T) {
	db, _, svc := setupProductionTest(t)
	wo := seedReleasedWO(t, db)

	updated, err := svc.ChangeStage(wo.ID, ChangeStageRequest{
		ToStage:    entity.StageQC,
		IsOverride: true,
		Reason:     "跳过外协直接终检",
	}, "sup-1")
	if err != nil {
		t.Fatalf("ChangeStage failed: %v", err)
	}
	if updated.CurrentStage != entity.StageQC {
		t.Errorf("expected stage qc, got %s", updated.CurrentStage)
	}

	entries, err := svc.ListStageHistory(wo.ID)
	if err != nil {
		t.Fatalf("ListStageHistory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	e := entries[0]
	if e.FromStage != entity.StageProduction || e.ToStage != entity.StageQC || !e.IsOverride {
		t.Errorf("unexpected history entry: from=%s to=%s override=%v", e.FromStage, e.ToStage, e.IsOverride)
	}
}
