// Package events 依赖监听事件及基于watermill的事件总线
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	EventItemResolved EventType = "dependent.item.resolved" // 依赖项得到终态结果
	EventFinished     EventType = "dependent.finished"      // 依赖检查结束
	EventTimeout      EventType = "dependent.timeout"       // 依赖检查超时
	EventPollFailed   EventType = "dependent.poll_failed"   // 轮询失败（下次轮询重试）
)

// AllEventTypes 返回所有事件类型
func AllEventTypes() []EventType {
	return []EventType{EventItemResolved, EventFinished, EventTimeout, EventPollFailed}
}

// DependentEvent 依赖监听事件
type DependentEvent struct {
	ID        string            `json:"id"`        // 事件ID（UUID）
	Type      EventType         `json:"type"`      // 事件类型
	WatchID   string            `json:"watch_id"`  // 关联监听ID
	Name      string            `json:"name"`      // 监听名称
	Timestamp time.Time         `json:"timestamp"` // 事件时间
	Payload   interface{}       `json:"payload"`   // 事件负载
	Metadata  map[string]string `json:"metadata"`  // 元数据
}

// NewDependentEvent 创建依赖监听事件
func NewDependentEvent(eventType EventType, watchID, name string, payload interface{}) *DependentEvent {
	return &DependentEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		WatchID:   watchID,
		Name:      name,
		Timestamp: time.Now(),
		Payload:   payload,
		Metadata:  make(map[string]string),
	}
}

// WithMetadata 添加元数据
func (e *DependentEvent) WithMetadata(key, value string) *DependentEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// DecodePayload 将负载解码到v（订阅端收到的负载为通用JSON结构）
func (e *DependentEvent) DecodePayload(v interface{}) error {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("序列化事件负载失败: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("解析事件负载失败: %w", err)
	}
	return nil
}

// ItemResolvedPayload 依赖项得到终态结果
type ItemResolvedPayload struct {
	ItemKey string `json:"item_key"`
	Result  string `json:"result"`
}

// FinishedPayload 依赖检查结束
type FinishedPayload struct {
	Result   string            `json:"result"`
	Items    map[string]string `json:"items"`
	Polls    int               `json:"polls"`
	Duration time.Duration     `json:"duration"`
}

// TimeoutPayload 依赖检查超时
type TimeoutPayload struct {
	Timeout time.Duration     `json:"timeout"`
	Items   map[string]string `json:"items"`
}

// PollFailedPayload 轮询失败
type PollFailedPayload struct {
	Error string `json:"error"`
	Polls int    `json:"polls"`
}
