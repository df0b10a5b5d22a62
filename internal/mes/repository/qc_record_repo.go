package repository

import (
	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"gorm.io/gorm"
)

type QCRecordRepository struct {
	db *gorm.DB
}

func NewQCRecordRepository(db *gorm.DB) *QCRecordRepository {
	return &QCRecordRepository{db: db}
}

func (r *QCRecordRepository) Create(rec *entity.QCRecord) error {
	return r.db.Create(rec).Error
}

func (r *QCRecordRepository) ListByWO(woID string) ([]entity.QCRecord, error) {
	var records []entity.QCRecord
	err := r.db.Where("wo_id = ?", woID).Order("qc_date_time ASC").Find(&records).Error
	return records, err
}

// LatestByType 某类型下按时间最新的一条记录
func (r *QCRecordRepository) LatestByType(woID, qcType string) (*entity.QCRecord, error) {
	var rec entity.QCRecord
	err := r.db.Where("wo_id = ? AND qc_type = ?", woID, qcType).
		Order("qc_date_time DESC").First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
