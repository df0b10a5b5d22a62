package repository

import (
	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"gorm.io/gorm"
)

type ExternalMoveRepository struct {
	db *gorm.DB
}

func NewExternalMoveRepository(db *gorm.DB) *ExternalMoveRepository {
	return &ExternalMoveRepository{db: db}
}

func (r *ExternalMoveRepository) Create(m *entity.ExternalMove) error {
	return r.db.Create(m).Error
}

func (r *ExternalMoveRepository) GetByID(id string) (*entity.ExternalMove, error) {
	var m entity.ExternalMove
	err := r.db.Where("id = ?", id).First(&m).Error
	return &m, err
}

func (r *ExternalMoveRepository) Update(m *entity.ExternalMove) error {
	return r.db.Save(m).Error
}

func (r *ExternalMoveRepository) ListByWO(woID string) ([]entity.ExternalMove, error) {
	var moves []entity.ExternalMove
	err := r.db.Where("work_order_id = ?", woID).Order("created_at ASC").Find(&moves).Error
	return moves, err
}
