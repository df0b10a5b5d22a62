package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"github.com/izzyftw1/rvi-sub013/internal/mes/notify"
	"github.com/izzyftw1/rvi-sub013/internal/mes/repository"
)

// WorkOrderService 工单基础维护。放行/完工字段归 GateService 管，这里不碰
type WorkOrderService struct {
	repo *repository.WorkOrderRepository
	hub  *notify.Hub
}

func NewWorkOrderService(repo *repository.WorkOrderRepository, hub *notify.Hub) *WorkOrderService {
	return &WorkOrderService{repo: repo, hub: hub}
}

type CreateWorkOrderRequest struct {
	ItemCode string  `json:"item_code"`
	ItemName string  `json:"item_name"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Notes    string  `json:"notes"`
}

func (s *WorkOrderService) Create(req CreateWorkOrderRequest, userID string) (*entity.WorkOrder, error) {
	code := fmt.Sprintf("WO-%s%04d", time.Now().Format("20060102"), time.Now().UnixNano()%10000)
	wo := &entity.WorkOrder{
		ID:                      uuid.New().String(),
		WOCode:                  code,
		ItemCode:                req.ItemCode,
		ItemName:                req.ItemName,
		Quantity:                req.Quantity,
		CurrentStage:            entity.StageRawMaterial,
		ProductionReleaseStatus: entity.ReleaseStatusNotReleased,
		Notes:                   req.Notes,
		CreatedBy:               userID,
	}
	if err := s.repo.Create(wo); err != nil {
		return nil, fmt.Errorf("创建工单失败: %w", err)
	}
	s.hub.Publish(notify.TableWorkOrders)
	return wo, nil
}

func (s *WorkOrderService) GetByID(id string) (*entity.WorkOrder, error) {
	return s.repo.GetByID(id)
}

func (s *WorkOrderService) List(params repository.WOListParams) ([]entity.WorkOrder, int64, error) {
	return s.repo.List(params)
}

type UpdateWorkOrderRequest struct {
	ItemName string   `json:"item_name"`
	Quantity *float64 `json:"quantity"`
	Notes    *string  `json:"notes"`
}

func (s *WorkOrderService) Update(id string, req UpdateWorkOrderRequest) (*entity.WorkOrder, error) {
	wo, err := s.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	if req.ItemName != "" {
		wo.ItemName = req.ItemName
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return nil, fmt.Errorf("计划数量必须大于0")
		}
		wo.Quantity = *req.Quantity
	}
	if req.Notes != nil {
		wo.Notes = *req.Notes
	}
	if err := s.repo.Update(wo); err != nil {
		return nil, fmt.Errorf("更新工单失败: %w", err)
	}
	s.hub.Publish(notify.TableWorkOrders)
	return wo, nil
}
