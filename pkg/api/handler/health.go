package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/dependent-engine/pkg/api/dto"
)

// ReadinessCheck 就绪检查函数，返回错误表示未就绪
type ReadinessCheck func(ctx context.Context) error

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version   string
	startTime time.Time
	ready     ReadinessCheck
}

// NewHealthHandler 创建HealthHandler，ready可为空
func NewHealthHandler(version string, ready ReadinessCheck) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		ready:     ready,
	}
}

// Health 健康检查
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	uptime := time.Since(h.startTime)

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    formatDuration(uptime),
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}

// Ready 就绪检查
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(503, fmt.Sprintf("服务未就绪: %v", err)))
			return
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(map[string]string{
		"status": "ready",
	}))
}
