package dto

import "time"

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// DependentSummary 依赖监听摘要信息
type DependentSummary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	State        string     `json:"state"`
	Result       string     `json:"result"`
	BusinessDate time.Time  `json:"business_date"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastPollAt   *time.Time `json:"last_poll_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Polls        int        `json:"polls"`
	LastError    string     `json:"last_error,omitempty"`
}

// DependentDetail 依赖监听详细信息（含已缓存的依赖项结果）
type DependentDetail struct {
	DependentSummary
	PollInterval string            `json:"poll_interval"`
	Timeout      string            `json:"timeout,omitempty"`
	Elapsed      string            `json:"elapsed"`
	Items        map[string]string `json:"items"`
	ModelResults []string          `json:"model_results"`
}

// CancelResponse 取消响应
type CancelResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Total   int  `json:"total"`
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}
