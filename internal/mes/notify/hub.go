// Package notify 按表名分发数据变更通知。
// 每个实体类型一个订阅面，突发写入在防抖窗口内合并为一次"数据已过期，请刷新"信号，
// 避免批量写入触发重算风暴。
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// 订阅的表名
const (
	TableWorkOrders    = "mes_work_orders"
	TableRouteSteps    = "mes_route_steps"
	TableBatches       = "mes_production_batches"
	TableExternalMoves = "mes_external_moves"
	TableQCRecords     = "mes_qc_records"
)

// Signal 合并后的刷新信号
type Signal struct {
	Table string    `json:"table"`
	At    time.Time `json:"at"`
}

type subscriber struct {
	id string
	ch chan Signal
}

type tableState struct {
	timer   *time.Timer
	pending bool
}

// Hub 变更通知中心
type Hub struct {
	mu       sync.Mutex
	debounce time.Duration
	subs     map[string][]*subscriber // table -> subscribers
	states   map[string]*tableState
	logger   *zap.Logger
}

// NewHub 创建通知中心。debounce 为合并窗口，<=0 时立即分发
func NewHub(debounce time.Duration, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		debounce: debounce,
		subs:     make(map[string][]*subscriber),
		states:   make(map[string]*tableState),
		logger:   logger,
	}
}

// Subscribe 订阅某张表的刷新信号。返回的通道带缓冲，
// 消费者来不及读时信号被丢弃（下一轮变更会再次触发），不会阻塞发布方
func (h *Hub) Subscribe(table, id string) <-chan Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := &subscriber{id: id, ch: make(chan Signal, 4)}
	h.subs[table] = append(h.subs[table], sub)
	h.logger.Debug("notify subscribe", zap.String("table", table), zap.String("id", id))
	return sub.ch
}

// Unsubscribe 取消订阅并关闭通道
func (h *Hub) Unsubscribe(table, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[table]
	for i, s := range subs {
		if s.id == id {
			close(s.ch)
			h.subs[table] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish 记录一次表变更。防抖窗口内的重复发布合并为一次分发
func (h *Hub) Publish(table string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.debounce <= 0 {
		h.fanOutLocked(table)
		return
	}

	st, ok := h.states[table]
	if !ok {
		st = &tableState{}
		h.states[table] = st
	}
	if st.pending {
		return
	}
	st.pending = true
	st.timer = time.AfterFunc(h.debounce, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		st.pending = false
		h.fanOutLocked(table)
	})
}

func (h *Hub) fanOutLocked(table string) {
	sig := Signal{Table: table, At: time.Now()}
	for _, s := range h.subs[table] {
		select {
		case s.ch <- sig:
		default:
			h.logger.Debug("notify subscriber buffer full, dropping",
				zap.String("table", table), zap.String("id", s.id))
		}
	}
}
