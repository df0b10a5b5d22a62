package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/izzyftw1/rvi-sub013/internal/mes/service"
)

type GateHandler struct {
	svc *service.GateService
}

func NewGateHandler(svc *service.GateService) *GateHandler {
	return &GateHandler{svc: svc}
}

func (h *GateHandler) CanRelease(c *gin.Context) {
	ok, err := h.svc.CanRelease(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"can_release": ok}})
}

func (h *GateHandler) Release(c *gin.Context) {
	// body 可选，但给了就必须是合法 JSON
	var req service.ReleaseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
			return
		}
	}
	userID, _ := c.Get("user_id")
	wo, err := h.svc.Release(c.Param("id"), req, userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

func (h *GateHandler) ReopenRelease(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
			return
		}
	}
	userID, _ := c.Get("user_id")
	wo, err := h.svc.ReopenRelease(c.Param("id"), userID.(string), req.Reason)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

func (h *GateHandler) CompletionEligibility(c *gin.Context) {
	elig, err := h.svc.GetCompletionEligibility(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": elig})
}

func (h *GateHandler) Complete(c *gin.Context) {
	var req service.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	userID, _ := c.Get("user_id")
	wo, err := h.svc.Complete(c.Param("id"), req, userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}

func (h *GateHandler) ReopenCompletion(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
			return
		}
	}
	userID, _ := c.Get("user_id")
	wo, err := h.svc.ReopenCompletion(c.Param("id"), userID.(string), req.Reason)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": wo})
}
