package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"github.com/izzyftw1/rvi-sub013/internal/mes/notify"
	"github.com/izzyftw1/rvi-sub013/internal/mes/repository"
)

// RouteService 工艺路线维护。
// 序号是工单内的稠密全序；追加与交换都走事务保证不出现重复序号
type RouteService struct {
	repo *repository.RouteStepRepository
	hub  *notify.Hub
}

func NewRouteService(repo *repository.RouteStepRepository, hub *notify.Hub) *RouteService {
	return &RouteService{repo: repo, hub: hub}
}

func (s *RouteService) ListByWO(woID string) ([]entity.RouteStep, error) {
	return s.repo.ListByWO(woID)
}

type AddStepRequest struct {
	OperationType string  `json:"operation_type" binding:"required"`
	ProcessName   string  `json:"process_name"`
	IsExternal    bool    `json:"is_external"`
	IsMandatory   *bool   `json:"is_mandatory"`
	PlannedQty    float64 `json:"planned_qty"`
}

// AddStep 末尾追加工序，序号在事务内取 max+1
func (s *RouteService) AddStep(woID string, req AddStepRequest) (*entity.RouteStep, error) {
	if !entity.ValidOperationType(req.OperationType) {
		return nil, fmt.Errorf("无效的工序类型: %s", req.OperationType)
	}
	mandatory := true
	if req.IsMandatory != nil {
		mandatory = *req.IsMandatory
	}
	step := &entity.RouteStep{
		ID:            uuid.New().String(),
		WorkOrderID:   woID,
		OperationType: req.OperationType,
		ProcessName:   req.ProcessName,
		IsExternal:    req.IsExternal,
		IsMandatory:   mandatory,
		PlannedQty:    req.PlannedQty,
	}
	if err := s.repo.AppendStep(step); err != nil {
		return nil, fmt.Errorf("追加工序失败: %w", err)
	}
	s.hub.Publish(notify.TableRouteSteps)
	return step, nil
}

type UpdateStepRequest struct {
	OperationType string   `json:"operation_type"`
	ProcessName   *string  `json:"process_name"`
	IsExternal    *bool    `json:"is_external"`
	IsMandatory   *bool    `json:"is_mandatory"`
	PlannedQty    *float64 `json:"planned_qty"`
}

func (s *RouteService) UpdateStep(stepID string, req UpdateStepRequest) (*entity.RouteStep, error) {
	step, err := s.repo.GetByID(stepID)
	if err != nil {
		return nil, fmt.Errorf("工序不存在: %w", err)
	}
	if req.OperationType != "" {
		if !entity.ValidOperationType(req.OperationType) {
			return nil, fmt.Errorf("无效的工序类型: %s", req.OperationType)
		}
		step.OperationType = req.OperationType
	}
	if req.ProcessName != nil {
		step.ProcessName = *req.ProcessName
	}
	if req.IsExternal != nil {
		step.IsExternal = *req.IsExternal
	}
	if req.IsMandatory != nil {
		step.IsMandatory = *req.IsMandatory
	}
	if req.PlannedQty != nil {
		step.PlannedQty = *req.PlannedQty
	}
	if err := s.repo.Update(step); err != nil {
		return nil, fmt.Errorf("更新工序失败: %w", err)
	}
	s.hub.Publish(notify.TableRouteSteps)
	return step, nil
}

func (s *RouteService) DeleteStep(stepID string) error {
	if err := s.repo.Delete(stepID); err != nil {
		return fmt.Errorf("删除工序失败: %w", err)
	}
	s.hub.Publish(notify.TableRouteSteps)
	return nil
}

// SwapStep 与相邻工序交换位置。direction 为 up/down
func (s *RouteService) SwapStep(stepID, direction string) error {
	step, err := s.repo.GetByID(stepID)
	if err != nil {
		return fmt.Errorf("工序不存在: %w", err)
	}
	steps, err := s.repo.ListByWO(step.WorkOrderID)
	if err != nil {
		return fmt.Errorf("读取工艺路线失败: %w", err)
	}

	idx := -1
	for i := range steps {
		if steps[i].ID == step.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("工序不在路线中")
	}

	var neighbor *entity.RouteStep
	switch direction {
	case "up":
		if idx == 0 {
			return fmt.Errorf("已是第一道工序")
		}
		neighbor = &steps[idx-1]
	case "down":
		if idx == len(steps)-1 {
			return fmt.Errorf("已是最后一道工序")
		}
		neighbor = &steps[idx+1]
	default:
		return fmt.Errorf("无效的移动方向: %s", direction)
	}

	if err := s.repo.SwapSequence(step, neighbor); err != nil {
		return fmt.Errorf("交换工序失败: %w", err)
	}
	s.hub.Publish(notify.TableRouteSteps)
	return nil
}
