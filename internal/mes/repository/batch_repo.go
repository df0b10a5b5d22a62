package repository

import (
	"time"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"gorm.io/gorm"
)

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) Create(b *entity.ProductionBatch) error {
	return r.db.Create(b).Error
}

func (r *BatchRepository) GetByID(id string) (*entity.ProductionBatch, error) {
	var b entity.ProductionBatch
	err := r.db.Where("id = ?", id).First(&b).Error
	return &b, err
}

func (r *BatchRepository) Update(b *entity.ProductionBatch) error {
	return r.db.Save(b).Error
}

func (r *BatchRepository) ListByWO(woID string) ([]entity.ProductionBatch, error) {
	var batches []entity.ProductionBatch
	err := r.db.Where("wo_id = ?", woID).Order("batch_number ASC").Find(&batches).Error
	return batches, err
}

// NextBatchNumber 下一个批次序号
func (r *BatchRepository) NextBatchNumber(woID string) (int, error) {
	var result struct{ Max int }
	err := r.db.Raw(
		`SELECT COALESCE(MAX(batch_number), 0) AS max FROM mes_production_batches WHERE wo_id = ?`,
		woID).Scan(&result).Error
	return result.Max + 1, err
}

// EndStage 结束批次在当前阶段的停留
func (r *BatchRepository) EndStage(id string, at time.Time) error {
	return r.db.Model(&entity.ProductionBatch{}).Where("id = ?", id).
		Update("ended_at", at).Error
}

// ListDispatchable 有可发货余量的批次 (qc_approved_qty > dispatched_qty)
func (r *BatchRepository) ListDispatchable(woID string) ([]entity.ProductionBatch, error) {
	var batches []entity.ProductionBatch
	err := r.db.Where("wo_id = ? AND qc_approved_qty > dispatched_qty", woID).
		Order("batch_number ASC").Find(&batches).Error
	return batches, err
}
