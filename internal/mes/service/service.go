package service

import (
	"github.com/izzyftw1/rvi-sub013/internal/mes/notify"
	"github.com/izzyftw1/rvi-sub013/internal/mes/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services MES 服务集合
type Services struct {
	WorkOrder  *WorkOrderService
	Route      *RouteService
	Gate       *GateService
	Production *ProductionService
	Progress   *ProgressService
}

func NewServices(repos *repository.Repositories, hub *notify.Hub, rdb *redis.Client, logger *zap.Logger) *Services {
	return &Services{
		WorkOrder:  NewWorkOrderService(repos.WorkOrder, hub),
		Route:      NewRouteService(repos.RouteStep, hub),
		Gate:       NewGateService(repos.WorkOrder, repos.StageHistory, hub, logger),
		Production: NewProductionService(repos, hub),
		Progress:   NewProgressService(repos, hub, rdb, logger),
	}
}
