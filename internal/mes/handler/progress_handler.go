package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/izzyftw1/rvi-sub013/internal/mes/service"
)

type ProgressHandler struct {
	svc *service.ProgressService
}

func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// Get 工单进度看板数据：质检门 + 分阶段汇总 + 瓶颈
func (h *ProgressHandler) Get(c *gin.Context) {
	progress, err := h.svc.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": progress})
}

// ListDispatchable 有可发货余量的批次
func (h *ProgressHandler) ListDispatchable(c *gin.Context) {
	batches, err := h.svc.ListDispatchable(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": batches})
}
