package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/izzyftw1/rvi-sub013/internal/mes/engine"
	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"github.com/izzyftw1/rvi-sub013/internal/mes/notify"
	"github.com/izzyftw1/rvi-sub013/internal/mes/repository"
)

// GateService 生产放行门与完工门。
// 工单上放行/完工两组字段只有这里写；任何不确定一律不放行、不完工
type GateService struct {
	woRepo      *repository.WorkOrderRepository
	historyRepo *repository.StageHistoryRepository
	hub         *notify.Hub
	logger      *zap.Logger
}

func NewGateService(woRepo *repository.WorkOrderRepository, historyRepo *repository.StageHistoryRepository, hub *notify.Hub, logger *zap.Logger) *GateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GateService{woRepo: woRepo, historyRepo: historyRepo, hub: hub, logger: logger}
}

// CanRelease 放行判定：来料与首件存储状态均完成
func (s *GateService) CanRelease(id string) (bool, error) {
	wo, err := s.woRepo.GetByID(id)
	if err != nil {
		return false, fmt.Errorf("工单不存在: %w", err)
	}
	return engine.CanRelease(wo), nil
}

type ReleaseRequest struct {
	Notes string `json:"notes"`
}

// Release 生产放行：解锁报工并推进宏观阶段到 production。
// 已放行的工单不支持重复放行
func (s *GateService) Release(id string, req ReleaseRequest, userID string) (*entity.WorkOrder, error) {
	wo, err := s.woRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	if wo.ProductionReleaseStatus == entity.ReleaseStatusReleased {
		return nil, fmt.Errorf("工单已放行，不能重复放行")
	}
	if !engine.CanRelease(wo) {
		return nil, fmt.Errorf("质检门未通过，不能放行: 来料=%s 首件=%s",
			wo.QCMaterialStatus, wo.QCFirstPieceStatus)
	}

	now := time.Now()
	fromStage := wo.CurrentStage
	wo.ProductionReleaseStatus = entity.ReleaseStatusReleased
	wo.ProductionReleaseDate = &now
	wo.ProductionReleasedBy = userID
	wo.ProductionReleaseNotes = req.Notes
	wo.ProductionAllowed = true
	wo.CurrentStage = entity.StageProduction
	if err := s.woRepo.UpdateReleaseFields(wo); err != nil {
		return nil, fmt.Errorf("放行失败: %w", err)
	}

	s.appendHistory(wo.ID, fromStage, entity.StageProduction, userID, false, "production released")
	s.logger.Info("work order released",
		zap.String("wo_id", wo.ID), zap.String("wo_code", wo.WOCode), zap.String("by", userID))
	s.hub.Publish(notify.TableWorkOrders)
	return wo, nil
}

// ReopenRelease 撤销放行，放行字段全部回到未设置状态
func (s *GateService) ReopenRelease(id, userID, reason string) (*entity.WorkOrder, error) {
	wo, err := s.woRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	if wo.ProductionReleaseStatus != entity.ReleaseStatusReleased {
		return nil, fmt.Errorf("工单未放行")
	}

	wo.ProductionReleaseStatus = entity.ReleaseStatusNotReleased
	wo.ProductionReleaseDate = nil
	wo.ProductionReleasedBy = ""
	wo.ProductionReleaseNotes = ""
	wo.ProductionAllowed = false
	if err := s.woRepo.UpdateReleaseFields(wo); err != nil {
		return nil, fmt.Errorf("撤销放行失败: %w", err)
	}

	s.appendHistory(wo.ID, wo.CurrentStage, wo.CurrentStage, userID, true, "release reopened: "+reason)
	s.logger.Warn("work order release reopened",
		zap.String("wo_id", wo.ID), zap.String("by", userID), zap.String("reason", reason))
	s.hub.Publish(notify.TableWorkOrders)
	return wo, nil
}

// CompletionEligibility 完工资格。qty_reached 仅在产量达标时提供为一键动作
type CompletionEligibility struct {
	QtyReached      bool    `json:"qty_reached"`
	QtyCompleted    float64 `json:"qty_completed"`
	PlannedQuantity float64 `json:"planned_quantity"`
}

func (s *GateService) GetCompletionEligibility(id string) (*CompletionEligibility, error) {
	wo, err := s.woRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	return &CompletionEligibility{
		QtyReached:      wo.QtyCompleted >= wo.Quantity,
		QtyCompleted:    wo.QtyCompleted,
		PlannedQuantity: wo.Quantity,
	}, nil
}

type CompleteRequest struct {
	Reason string `json:"reason" binding:"required"`
	Notes  string `json:"notes"`
}

// Complete 生产完工，锁定后续报工。
// qty_reached 要求产量已达标；manual 任意产量可用；
// qc_gated 保留给带质检上下文的关单，要求填写说明
func (s *GateService) Complete(id string, req CompleteRequest, userID string) (*entity.WorkOrder, error) {
	wo, err := s.woRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	if wo.ProductionComplete {
		return nil, fmt.Errorf("工单已完工")
	}

	switch req.Reason {
	case entity.CompleteReasonQtyReached:
		if wo.QtyCompleted < wo.Quantity {
			return nil, fmt.Errorf("产量未达标: 已完成%.4f, 计划%.4f", wo.QtyCompleted, wo.Quantity)
		}
	case entity.CompleteReasonManual:
		// 提前关单，说明可选
	case entity.CompleteReasonQCGated:
		if req.Notes == "" {
			return nil, fmt.Errorf("质检关单必须填写说明")
		}
	default:
		return nil, fmt.Errorf("无效的完工原因: %s", req.Reason)
	}

	now := time.Now()
	wo.ProductionComplete = true
	wo.ProductionCompleteQty = wo.QtyCompleted
	wo.ProductionCompletedAt = &now
	wo.ProductionCompletedBy = userID
	wo.ProductionCompleteReason = req.Reason
	if err := s.woRepo.UpdateCompletionFields(wo); err != nil {
		return nil, fmt.Errorf("完工失败: %w", err)
	}

	s.logger.Info("work order production complete",
		zap.String("wo_id", wo.ID), zap.String("reason", req.Reason),
		zap.Float64("qty", wo.ProductionCompleteQty), zap.String("by", userID))
	s.hub.Publish(notify.TableWorkOrders)
	return wo, nil
}

// ReopenCompletion 重开工单，清空四个完工字段，恢复报工。
// 重开本身追加一条带 override 标记的审计记录
func (s *GateService) ReopenCompletion(id, userID, reason string) (*entity.WorkOrder, error) {
	wo, err := s.woRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	if !wo.ProductionComplete {
		return nil, fmt.Errorf("工单未完工")
	}

	wo.ProductionComplete = false
	wo.ProductionCompleteQty = 0
	wo.ProductionCompletedAt = nil
	wo.ProductionCompletedBy = ""
	wo.ProductionCompleteReason = ""
	if err := s.woRepo.UpdateCompletionFields(wo); err != nil {
		return nil, fmt.Errorf("重开失败: %w", err)
	}

	s.appendHistory(wo.ID, wo.CurrentStage, wo.CurrentStage, userID, true, "completion reopened: "+reason)
	s.logger.Warn("work order completion reopened",
		zap.String("wo_id", wo.ID), zap.String("by", userID), zap.String("reason", reason))
	s.hub.Publish(notify.TableWorkOrders)
	return wo, nil
}

func (s *GateService) appendHistory(woID, from, to, userID string, override bool, reason string) {
	entry := &entity.StageHistoryEntry{
		ID:          uuid.New().String(),
		WorkOrderID: woID,
		FromStage:   from,
		ToStage:     to,
		ChangedAt:   time.Now(),
		ChangedBy:   userID,
		IsOverride:  override,
		Reason:      reason,
	}
	if err := s.historyRepo.Append(entry); err != nil {
		// 审计写入失败不回滚门动作，只记日志
		s.logger.Error("append stage history failed", zap.String("wo_id", woID), zap.Error(err))
	}
}
