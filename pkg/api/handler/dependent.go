package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/dependent-engine/pkg/api/dto"
	"github.com/LENAX/dependent-engine/pkg/core/engine"
)

// WatchRegistry 依赖监听查询与取消接口
type WatchRegistry interface {
	Get(id string) (*engine.WatchInfo, error)
	List() []*engine.WatchInfo
	Cancel(id string) error
}

// DependentHandler 依赖监听API处理器
type DependentHandler struct {
	watcher WatchRegistry
}

// NewDependentHandler 创建DependentHandler
func NewDependentHandler(watcher WatchRegistry) *DependentHandler {
	return &DependentHandler{watcher: watcher}
}

// List 列出依赖监听
// GET /api/v1/dependents
func (h *DependentHandler) List(c *gin.Context) {
	var query dto.ListDependentRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("查询参数错误: %v", err)))
		return
	}

	var items []dto.DependentSummary
	for _, info := range h.watcher.List() {
		if query.Result != "" && string(info.Result) != query.Result {
			continue
		}
		if query.State != "" && string(info.State) != query.State {
			continue
		}
		items = append(items, toSummary(info))
	}

	total := len(items)
	limit := query.GetDefaultLimit()
	start := query.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := make([]dto.DependentSummary, 0, end-start)
	page = append(page, items[start:end]...)
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.DependentSummary]{
		Total:   total,
		Items:   page,
		HasMore: end < total,
	}))
}

// Get 获取依赖监听详情
// GET /api/v1/dependents/:id
func (h *DependentHandler) Get(c *gin.Context) {
	id := c.Param("id")
	info, err := h.watcher.Get(id)
	if err != nil {
		writeWatchError(c, err)
		return
	}

	detail := dto.DependentDetail{
		DependentSummary: toSummary(info),
		PollInterval:     info.PollInterval.String(),
		Elapsed:          formatDuration(elapsed(info)),
		Items:            make(map[string]string, len(info.Items)),
		ModelResults:     make([]string, 0, len(info.ModelResults)),
	}
	if info.Timeout > 0 {
		detail.Timeout = info.Timeout.String()
	}
	for k, v := range info.Items {
		detail.Items[k] = string(v)
	}
	for _, r := range info.ModelResults {
		detail.ModelResults = append(detail.ModelResults, string(r))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(detail))
}

// Cancel 取消依赖监听
// DELETE /api/v1/dependents/:id
func (h *DependentHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if err := h.watcher.Cancel(id); err != nil {
		writeWatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.CancelResponse{
		ID:      id,
		Message: "依赖监听已取消",
	}))
}

func writeWatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrWatchNotFound):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, err.Error()))
	case errors.Is(err, engine.ErrWatchFinished):
		c.JSON(http.StatusConflict, dto.NewErrorResponse(409, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, err.Error()))
	}
}

func toSummary(info *engine.WatchInfo) dto.DependentSummary {
	return dto.DependentSummary{
		ID:           info.ID,
		Name:         info.Name,
		State:        string(info.State),
		Result:       string(info.Result),
		BusinessDate: info.BusinessDate,
		RegisteredAt: info.RegisteredAt,
		LastPollAt:   info.LastPollAt,
		FinishedAt:   info.FinishedAt,
		Polls:        info.Polls,
		LastError:    info.LastError,
	}
}

func elapsed(info *engine.WatchInfo) time.Duration {
	if info.FinishedAt != nil {
		return info.FinishedAt.Sub(info.RegisteredAt)
	}
	return time.Since(info.RegisteredAt)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
