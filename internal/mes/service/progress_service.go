package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/izzyftw1/rvi-sub013/internal/mes/engine"
	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"github.com/izzyftw1/rvi-sub013/internal/mes/notify"
	"github.com/izzyftw1/rvi-sub013/internal/mes/repository"
)

const (
	progressCachePrefix = "mes:progress:"
	progressCacheTTL    = 30 * time.Second
)

// ProgressService 看板读模型：路线 + 分阶段汇总 + 质检门 + 瓶颈。
// 各数据源独立取快照，并发写入下允许短暂不一致，下一轮变更通知后自愈
type ProgressService struct {
	repos  *repository.Repositories
	hub    *notify.Hub
	rdb    *redis.Client
	logger *zap.Logger
}

func NewProgressService(repos *repository.Repositories, hub *notify.Hub, rdb *redis.Client, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{repos: repos, hub: hub, rdb: rdb, logger: logger}
}

// WOProgress 一个工单的完整派生状态
type WOProgress struct {
	WorkOrder       *entity.WorkOrder       `json:"work_order"`
	Route           []entity.RouteStep      `json:"route"`
	Gates           engine.GateView         `json:"gates"`
	Breakdown       engine.StageBreakdown   `json:"breakdown"`
	Bottlenecks     engine.BottleneckReport `json:"bottlenecks"`
	CanRelease      bool                    `json:"can_release"`
	QtyReached      bool                    `json:"qty_reached"`
	DispatchableQty float64                 `json:"dispatchable_qty"`
	ComputedAt      time.Time               `json:"computed_at"`
}

// GetProgress 读取派生状态，优先命中缓存
func (s *ProgressService) GetProgress(ctx context.Context, woID string) (*WOProgress, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, progressCachePrefix+woID).Bytes(); err == nil {
			var p WOProgress
			if json.Unmarshal(cached, &p) == nil {
				return &p, nil
			}
		}
	}

	p, err := s.compute(woID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(p); err == nil {
			if err := s.rdb.Set(ctx, progressCachePrefix+woID, data, progressCacheTTL).Err(); err != nil {
				s.logger.Debug("progress cache set failed", zap.Error(err))
			}
		}
	}
	return p, nil
}

// compute 全量重读相关记录并派生。任何一步失败都不产出部分状态
func (s *ProgressService) compute(woID string) (*WOProgress, error) {
	wo, err := s.repos.WorkOrder.GetByID(woID)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	steps, err := s.repos.RouteStep.ListByWO(woID)
	if err != nil {
		return nil, fmt.Errorf("读取工艺路线失败: %w", err)
	}
	batches, err := s.repos.Batch.ListByWO(woID)
	if err != nil {
		return nil, fmt.Errorf("读取批次失败: %w", err)
	}
	moves, err := s.repos.ExternalMove.ListByWO(woID)
	if err != nil {
		return nil, fmt.Errorf("读取外协单失败: %w", err)
	}
	records, err := s.repos.QCRecord.ListByWO(woID)
	if err != nil {
		return nil, fmt.Errorf("读取质检记录失败: %w", err)
	}

	return &WOProgress{
		WorkOrder:       wo,
		Route:           steps,
		Gates:           engine.ResolveGates(wo, records),
		Breakdown:       engine.BuildStageBreakdown(batches, moves, wo.Quantity),
		Bottlenecks:     engine.Detect(wo, steps),
		CanRelease:      engine.CanRelease(wo) && wo.ProductionReleaseStatus != entity.ReleaseStatusReleased,
		QtyReached:      wo.QtyCompleted >= wo.Quantity,
		DispatchableQty: engine.DispatchableQty(batches),
		ComputedAt:      time.Now(),
	}, nil
}

// ListDispatchable 仍有可发货余量的批次
func (s *ProgressService) ListDispatchable(woID string) ([]entity.ProductionBatch, error) {
	return s.repos.Batch.ListDispatchable(woID)
}

// Start 订阅全部相关表的变更信号，命中时失效进度缓存。
// ctx 取消后退出
func (s *ProgressService) Start(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	tables := []string{
		notify.TableWorkOrders,
		notify.TableRouteSteps,
		notify.TableBatches,
		notify.TableExternalMoves,
		notify.TableQCRecords,
	}
	for _, table := range tables {
		ch := s.hub.Subscribe(table, "progress-cache")
		go func(table string, ch <-chan notify.Signal) {
			for {
				select {
				case <-ctx.Done():
					s.hub.Unsubscribe(table, "progress-cache")
					return
				case _, ok := <-ch:
					if !ok {
						return
					}
					s.invalidate(ctx)
				}
			}
		}(table, ch)
	}
}

func (s *ProgressService) invalidate(ctx context.Context) {
	iter := s.rdb.Scan(ctx, 0, progressCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Debug("progress cache scan failed", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
			s.logger.Debug("progress cache invalidate failed", zap.Error(err))
		}
	}
}
