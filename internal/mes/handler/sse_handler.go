package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/izzyftw1/rvi-sub013/internal/mes/notify"
)

// SSEHandler 将合并后的表变更信号推给看板前端，前端收到后重新拉取进度接口
type SSEHandler struct {
	hub *notify.Hub
}

func NewSSEHandler(hub *notify.Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

var sseTables = []string{
	notify.TableWorkOrders,
	notify.TableRouteSteps,
	notify.TableBatches,
	notify.TableExternalMoves,
	notify.TableQCRecords,
}

// Stream SSE端点
// GET /api/v1/sse/events?token=xxx
func (h *SSEHandler) Stream(c *gin.Context) {
	userID := c.GetString("user_id")
	clientID := fmt.Sprintf("%s_%d", userID, time.Now().UnixNano())

	// 合并所有表的信号到一个通道
	merged := make(chan notify.Signal, 16)
	done := make(chan struct{})
	for _, table := range sseTables {
		ch := h.hub.Subscribe(table, clientID)
		go func(ch <-chan notify.Signal) {
			for {
				select {
				case <-done:
					return
				case sig, ok := <-ch:
					if !ok {
						return
					}
					select {
					case merged <- sig:
					default:
					}
				}
			}
		}(ch)
	}
	defer func() {
		close(done)
		for _, table := range sseTables {
			h.hub.Unsubscribe(table, clientID)
		}
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteString("event: connected\ndata: {\"client_id\":\"" + clientID + "\"}\n\n")
	c.Writer.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return
		case sig := <-merged:
			c.Writer.WriteString(fmt.Sprintf("event: stale\ndata: {\"table\":\"%s\"}\n\n", sig.Table))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
