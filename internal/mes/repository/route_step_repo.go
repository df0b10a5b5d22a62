package repository

import (
	"fmt"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RouteStepRepository struct {
	db *gorm.DB
}

func NewRouteStepRepository(db *gorm.DB) *RouteStepRepository {
	return &RouteStepRepository{db: db}
}

func (r *RouteStepRepository) GetByID(id string) (*entity.RouteStep, error) {
	var step entity.RouteStep
	err := r.db.Where("id = ?", id).First(&step).Error
	return &step, err
}

func (r *RouteStepRepository) ListByWO(woID string) ([]entity.RouteStep, error) {
	var steps []entity.RouteStep
	err := r.db.Where("work_order_id = ?", woID).Order("sequence_number ASC").Find(&steps).Error
	return steps, err
}

// AppendStep 在事务内锁定工单行后取 max(sequence_number)+1，
// 并发追加被序列化，不会产生重复序号
func (r *RouteStepRepository) AppendStep(step *entity.RouteStep) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var wo entity.WorkOrder
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", step.WorkOrderID).First(&wo).Error; err != nil {
			return fmt.Errorf("工单不存在: %w", err)
		}
		var maxSeq struct{ Max int }
		if err := tx.Raw(
			`SELECT COALESCE(MAX(sequence_number), 0) AS max FROM mes_route_steps WHERE work_order_id = ?`,
			step.WorkOrderID).Scan(&maxSeq).Error; err != nil {
			return err
		}
		step.SequenceNumber = maxSeq.Max + 1
		return tx.Create(step).Error
	})
}

func (r *RouteStepRepository) Update(step *entity.RouteStep) error {
	return r.db.Save(step).Error
}

func (r *RouteStepRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&entity.RouteStep{}).Error
}

// SwapSequence 相邻工序交换序号。单事务内借用负临时序号完成三步更新，
// 任意时刻都不会出现两行持有同一序号，(wo, seq) 唯一索引全程成立
func (r *RouteStepRepository) SwapSequence(a, b *entity.RouteStep) error {
	if a.WorkOrderID != b.WorkOrderID {
		return fmt.Errorf("不能交换不同工单的工序")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		seqA, seqB := a.SequenceNumber, b.SequenceNumber
		if err := tx.Model(&entity.RouteStep{}).Where("id = ?", a.ID).
			Update("sequence_number", -seqA).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.RouteStep{}).Where("id = ?", b.ID).
			Update("sequence_number", seqA).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.RouteStep{}).Where("id = ?", a.ID).
			Update("sequence_number", seqB).Error; err != nil {
			return err
		}
		return nil
	})
}

// UpdateExecution 回写工序实际执行数据（报工/检验/停机统计）
func (r *RouteStepRepository) UpdateExecution(id string, okQty, rejections, downtime, runtime float64) error {
	return r.db.Model(&entity.RouteStep{}).Where("id = ?", id).Updates(map[string]interface{}{
		"actual_ok_qty": gorm.Expr("actual_ok_qty + ?", okQty),
		"rejections":    gorm.Expr("rejections + ?", rejections),
		"downtime_min":  gorm.Expr("downtime_min + ?", downtime),
		"runtime_min":   gorm.Expr("runtime_min + ?", runtime),
	}).Error
}
