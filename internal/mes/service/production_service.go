package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"github.com/izzyftw1/rvi-sub013/internal/mes/notify"
	"github.com/izzyftw1/rvi-sub013/internal/mes/repository"
)

// ProductionService 车间执行记录：报工批次、外协流转、质检记录、阶段流转。
// 报工受两道门约束：未放行不可报，完工后不可报
type ProductionService struct {
	woRepo      *repository.WorkOrderRepository
	batchRepo   *repository.BatchRepository
	moveRepo    *repository.ExternalMoveRepository
	qcRepo      *repository.QCRecordRepository
	historyRepo *repository.StageHistoryRepository
	stepRepo    *repository.RouteStepRepository
	hub         *notify.Hub
}

func NewProductionService(repos *repository.Repositories, hub *notify.Hub) *ProductionService {
	return &ProductionService{
		woRepo:      repos.WorkOrder,
		batchRepo:   repos.Batch,
		moveRepo:    repos.ExternalMove,
		qcRepo:      repos.QCRecord,
		historyRepo: repos.StageHistory,
		stepRepo:    repos.RouteStep,
		hub:         hub,
	}
}

type LogBatchRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// LogBatch 报工：新建一个处于 production 阶段的批次并累加工单完成量
func (s *ProductionService) LogBatch(woID string, req LogBatchRequest, userID string) (*entity.ProductionBatch, error) {
	wo, err := s.woRepo.GetByID(woID)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	if !wo.ProductionAllowed || wo.ProductionReleaseStatus != entity.ReleaseStatusReleased {
		return nil, fmt.Errorf("工单未放行，不能报工")
	}
	if wo.ProductionComplete {
		return nil, fmt.Errorf("工单已完工，报工已锁定")
	}

	num, err := s.batchRepo.NextBatchNumber(woID)
	if err != nil {
		return nil, fmt.Errorf("获取批次号失败: %w", err)
	}
	batch := &entity.ProductionBatch{
		ID:            uuid.New().String(),
		WorkOrderID:   woID,
		BatchNumber:   num,
		StageType:     entity.BatchStageProduction,
		BatchQuantity: req.Quantity,
		CreatedBy:     userID,
	}
	if err := s.batchRepo.Create(batch); err != nil {
		return nil, fmt.Errorf("创建批次失败: %w", err)
	}
	if err := s.woRepo.AddCompletedQty(woID, req.Quantity); err != nil {
		return nil, fmt.Errorf("累加完成数量失败: %w", err)
	}

	s.hub.Publish(notify.TableBatches)
	s.hub.Publish(notify.TableWorkOrders)
	return batch, nil
}

func (s *ProductionService) ListBatches(woID string) ([]entity.ProductionBatch, error) {
	return s.batchRepo.ListByWO(woID)
}

type MoveBatchRequest struct {
	StageType     string   `json:"stage_type" binding:"required"`
	QCApprovedQty *float64 `json:"qc_approved_qty"`
	QCFinalStatus string   `json:"qc_final_status"`
}

// MoveBatch 批次流转到下一阶段
func (s *ProductionService) MoveBatch(batchID string, req MoveBatchRequest) (*entity.ProductionBatch, error) {
	switch req.StageType {
	case entity.BatchStageProduction, entity.BatchStageExternal, entity.BatchStageQC,
		entity.BatchStagePacking, entity.BatchStageDispatched:
	default:
		return nil, fmt.Errorf("无效的批次阶段: %s", req.StageType)
	}
	batch, err := s.batchRepo.GetByID(batchID)
	if err != nil {
		return nil, fmt.Errorf("批次不存在: %w", err)
	}
	batch.StageType = req.StageType
	batch.EndedAt = nil
	if req.QCApprovedQty != nil {
		if *req.QCApprovedQty < 0 || *req.QCApprovedQty > batch.BatchQuantity {
			return nil, fmt.Errorf("合格数量越界: %.4f (批次量 %.4f)", *req.QCApprovedQty, batch.BatchQuantity)
		}
		// 已发货量是合格量的下限，否则 dispatched ≤ qc_approved 不变量被打破
		if *req.QCApprovedQty < batch.DispatchedQty {
			return nil, fmt.Errorf("合格数量不能低于已发货数量: %.4f < %.4f", *req.QCApprovedQty, batch.DispatchedQty)
		}
		batch.QCApprovedQty = *req.QCApprovedQty
	}
	if req.QCFinalStatus != "" {
		batch.QCFinalStatus = req.QCFinalStatus
	}
	if err := s.batchRepo.Update(batch); err != nil {
		return nil, fmt.Errorf("批次流转失败: %w", err)
	}
	s.hub.Publish(notify.TableBatches)
	return batch, nil
}

type DispatchBatchRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// DispatchBatch 批次发货。不变量: 0 ≤ dispatched ≤ qc_approved
func (s *ProductionService) DispatchBatch(batchID string, req DispatchBatchRequest) (*entity.ProductionBatch, error) {
	batch, err := s.batchRepo.GetByID(batchID)
	if err != nil {
		return nil, fmt.Errorf("批次不存在: %w", err)
	}
	if req.Quantity > batch.DispatchableQty() {
		return nil, fmt.Errorf("可发货数量不足: 请求%.4f, 可发%.4f", req.Quantity, batch.DispatchableQty())
	}
	batch.DispatchedQty += req.Quantity
	if batch.DispatchedQty >= batch.QCApprovedQty {
		batch.StageType = entity.BatchStageDispatched
		now := time.Now()
		batch.EndedAt = &now
	}
	if err := s.batchRepo.Update(batch); err != nil {
		return nil, fmt.Errorf("发货失败: %w", err)
	}
	s.hub.Publish(notify.TableBatches)
	return batch, nil
}

type SendExternalRequest struct {
	Process  string  `json:"process" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// SendExternal 外协发出
func (s *ProductionService) SendExternal(woID string, req SendExternalRequest, userID string) (*entity.ExternalMove, error) {
	if _, err := s.woRepo.GetByID(woID); err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	now := time.Now()
	move := &entity.ExternalMove{
		ID:           uuid.New().String(),
		WorkOrderID:  woID,
		Process:      req.Process,
		QuantitySent: req.Quantity,
		Status:       entity.ExternalMoveOpen,
		SentAt:       &now,
		CreatedBy:    userID,
	}
	if err := s.moveRepo.Create(move); err != nil {
		return nil, fmt.Errorf("创建外协单失败: %w", err)
	}
	s.hub.Publish(notify.TableExternalMoves)
	return move, nil
}

type ReturnExternalRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// ReturnExternal 外协回厂
func (s *ProductionService) ReturnExternal(moveID string, req ReturnExternalRequest) (*entity.ExternalMove, error) {
	move, err := s.moveRepo.GetByID(moveID)
	if err != nil {
		return nil, fmt.Errorf("外协单不存在: %w", err)
	}
	if move.QuantityReturned+req.Quantity > move.QuantitySent {
		return nil, fmt.Errorf("回厂数量超过发出数量: 已回%.4f + %.4f > 发出%.4f",
			move.QuantityReturned, req.Quantity, move.QuantitySent)
	}
	move.QuantityReturned += req.Quantity
	now := time.Now()
	move.ReturnedAt = &now
	if move.QuantityReturned >= move.QuantitySent {
		move.Status = entity.ExternalMoveReturned
	}
	if err := s.moveRepo.Update(move); err != nil {
		return nil, fmt.Errorf("外协回厂失败: %w", err)
	}
	s.hub.Publish(notify.TableExternalMoves)
	return move, nil
}

func (s *ProductionService) ListExternalMoves(woID string) ([]entity.ExternalMove, error) {
	return s.moveRepo.ListByWO(woID)
}

type LogQCRequest struct {
	QCType       string          `json:"qc_type" binding:"required"`
	Result       string          `json:"result" binding:"required"`
	Measurements json.RawMessage `json:"measurements"`
	Notes        string          `json:"notes"`
}

// LogQC 记录质检结果。incoming/first_piece 同步回写工单上的门状态字段
func (s *ProductionService) LogQC(woID string, req LogQCRequest, userID string) (*entity.QCRecord, error) {
	if !entity.ValidQCType(req.QCType) {
		return nil, fmt.Errorf("无效的质检类型: %s", req.QCType)
	}
	wo, err := s.woRepo.GetByID(woID)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}

	rec := &entity.QCRecord{
		ID:           uuid.New().String(),
		WorkOrderID:  woID,
		QCType:       req.QCType,
		Result:       req.Result,
		QCDateTime:   time.Now(),
		Measurements: req.Measurements,
		InspectorID:  userID,
		Notes:        req.Notes,
	}
	if err := s.qcRepo.Create(rec); err != nil {
		return nil, fmt.Errorf("创建质检记录失败: %w", err)
	}

	switch req.QCType {
	case entity.QCTypeIncoming:
		wo.QCMaterialStatus = req.Result
		if err := s.woRepo.Update(wo); err != nil {
			return nil, fmt.Errorf("回写来料状态失败: %w", err)
		}
		s.hub.Publish(notify.TableWorkOrders)
	case entity.QCTypeFirstPiece:
		wo.QCFirstPieceStatus = req.Result
		if err := s.woRepo.Update(wo); err != nil {
			return nil, fmt.Errorf("回写首件状态失败: %w", err)
		}
		s.hub.Publish(notify.TableWorkOrders)
	}

	s.hub.Publish(notify.TableQCRecords)
	return rec, nil
}

func (s *ProductionService) ListQCRecords(woID string) ([]entity.QCRecord, error) {
	return s.qcRepo.ListByWO(woID)
}

type StepExecutionRequest struct {
	ActualOKQty float64 `json:"actual_ok_qty"`
	Rejections  float64 `json:"rejections"`
	DowntimeMin float64 `json:"downtime_min"`
	RuntimeMin  float64 `json:"runtime_min"`
}

// ReportStepExecution 回写工序执行统计，供瓶颈分析使用
func (s *ProductionService) ReportStepExecution(stepID string, req StepExecutionRequest) error {
	if req.ActualOKQty < 0 || req.Rejections < 0 || req.DowntimeMin < 0 || req.RuntimeMin < 0 {
		return fmt.Errorf("执行数据不能为负")
	}
	if err := s.stepRepo.UpdateExecution(stepID, req.ActualOKQty, req.Rejections, req.DowntimeMin, req.RuntimeMin); err != nil {
		return fmt.Errorf("回写执行数据失败: %w", err)
	}
	s.hub.Publish(notify.TableRouteSteps)
	return nil
}

type ChangeStageRequest struct {
	ToStage    string `json:"to_stage" binding:"required"`
	IsOverride bool   `json:"is_override"`
	Reason     string `json:"reason"`
}

// ChangeStage 宏观阶段流转，追加审计记录
func (s *ProductionService) ChangeStage(woID string, req ChangeStageRequest, userID string) (*entity.WorkOrder, error) {
	switch req.ToStage {
	case entity.StageRawMaterial, entity.StageProduction, entity.StageExternal,
		entity.StageQC, entity.StagePacking, entity.StageDispatched:
	default:
		return nil, fmt.Errorf("无效的阶段: %s", req.ToStage)
	}
	wo, err := s.woRepo.GetByID(woID)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	from := wo.CurrentStage
	wo.CurrentStage = req.ToStage
	if err := s.woRepo.Update(wo); err != nil {
		return nil, fmt.Errorf("阶段流转失败: %w", err)
	}
	entry := &entity.StageHistoryEntry{
		ID:          uuid.New().String(),
		WorkOrderID: woID,
		FromStage:   from,
		ToStage:     req.ToStage,
		ChangedAt:   time.Now(),
		ChangedBy:   userID,
		IsOverride:  req.IsOverride,
		Reason:      req.Reason,
	}
	if err := s.historyRepo.Append(entry); err != nil {
		return nil, fmt.Errorf("写入阶段审计失败: %w", err)
	}
	s.hub.Publish(notify.TableWorkOrders)
	return wo, nil
}

func (s *ProductionService) ListStageHistory(woID string) ([]entity.StageHistoryEntry, error) {
	return s.historyRepo.ListByWO(woID)
}
