package repository

import (
	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"gorm.io/gorm"
)

// StageHistoryRepository 阶段流转审计，只追加
type StageHistoryRepository struct {
	db *gorm.DB
}

func NewStageHistoryRepository(db *gorm.DB) *StageHistoryRepository {
	return &StageHistoryRepository{db: db}
}

func (r *StageHistoryRepository) Append(e *entity.StageHistoryEntry) error {
	return r.db.Create(e).Error
}

func (r *StageHistoryRepository) ListByWO(woID string) ([]entity.StageHistoryEntry, error) {
	var entries []entity.StageHistoryEntry
	err := r.db.Where("work_order_id = ?", woID).Order("changed_at ASC").Find(&entries).Error
	return entries, err
}
