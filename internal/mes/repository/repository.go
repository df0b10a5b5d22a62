package repository

import "gorm.io/gorm"

// Repositories MES 仓库集合
type Repositories struct {
	WorkOrder    *WorkOrderRepository
	RouteStep    *RouteStepRepository
	Batch        *BatchRepository
	ExternalMove *ExternalMoveRepository
	QCRecord     *QCRecordRepository
	StageHistory *StageHistoryRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		WorkOrder:    NewWorkOrderRepository(db),
		RouteStep:    NewRouteStepRepository(db),
		Batch:        NewBatchRepository(db),
		ExternalMove: NewExternalMoveRepository(db),
		QCRecord:     NewQCRecordRepository(db),
		StageHistory: NewStageHistoryRepository(db),
	}
}
