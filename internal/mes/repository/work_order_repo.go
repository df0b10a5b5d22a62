package repository

import (
	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"gorm.io/gorm"
)

type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) Create(wo *entity.WorkOrder) error {
	return r.db.Create(wo).Error
}

func (r *WorkOrderRepository) GetByID(id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.Where("id = ? AND deleted_at IS NULL", id).First(&wo).Error
	return &wo, err
}

func (r *WorkOrderRepository) Update(wo *entity.WorkOrder) error {
	return r.db.Save(wo).Error
}

type WOListParams struct {
	Stage         string
	ReleaseStatus string
	Keyword       string
	Page          int
	Size          int
}

func (r *WorkOrderRepository) List(params WOListParams) ([]entity.WorkOrder, int64, error) {
	query := r.db.Model(&entity.WorkOrder{}).Where("deleted_at IS NULL")
	if params.Stage != "" {
		query = query.Where("current_stage = ?", params.Stage)
	}
	if params.ReleaseStatus != "" {
		query = query.Where("production_release_status = ?", params.ReleaseStatus)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("wo_code ILIKE ? OR item_name ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var wos []entity.WorkOrder
	err := query.Order("created_at DESC").Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&wos).Error
	return wos, total, err
}

// UpdateReleaseFields 只写放行相关字段，避免覆盖其他协作方拥有的列
func (r *WorkOrderRepository) UpdateReleaseFields(wo *entity.WorkOrder) error {
	return r.db.Model(&entity.WorkOrder{}).Where("id = ?", wo.ID).
		Select("production_release_status", "production_release_date", "production_released_by",
			"production_release_notes", "production_allowed", "current_stage", "updated_at").
		Updates(wo).Error
}

// UpdateCompletionFields 只写完工相关字段
func (r *WorkOrderRepository) UpdateCompletionFields(wo *entity.WorkOrder) error {
	return r.db.Model(&entity.WorkOrder{}).Where("id = ?", wo.ID).
		Select("production_complete", "production_complete_qty", "production_completed_at",
			"production_completed_by", "production_complete_reason", "updated_at").
		Updates(wo).Error
}

// AddCompletedQty 报工累加已完成数量
func (r *WorkOrderRepository) AddCompletedQty(id string, qty float64) error {
	return r.db.Model(&entity.WorkOrder{}).Where("id = ?", id).
		Update("qty_completed", gorm.Expr("qty_completed + ?", qty)).Error
}

// DB 返回底层db用于事务
func (r *WorkOrderRepository) DB() *gorm.DB {
	return r.db
}
