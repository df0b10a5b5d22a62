package handler

import "github.com/izzyftw1/rvi-sub013/internal/mes/service"

// Handlers MES HTTP处理器集合
type Handlers struct {
	WorkOrder  *WorkOrderHandler
	Route      *RouteHandler
	Gate       *GateHandler
	Production *ProductionHandler
	Progress   *ProgressHandler
	SSE        *SSEHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		WorkOrder:  NewWorkOrderHandler(services.WorkOrder),
		Route:      NewRouteHandler(services.Route),
		Gate:       NewGateHandler(services.Gate),
		Production: NewProductionHandler(services.Production),
		Progress:   NewProgressHandler(services.Progress),
		SSE:        nil, // 由 main 注入 hub 后创建
	}
}
