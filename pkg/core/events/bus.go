package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event *DependentEvent) error
}

// EventBus 进程内事件总线（对外导出）
// 每个事件类型对应一个topic，没有订阅者时事件直接丢弃
type EventBus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// EventBusOption 事件总线选项
type EventBusOption func(*eventBusOptions)

type eventBusOptions struct {
	bufferSize int64
	debug      bool
	trace      bool
}

// WithBufferSize 设置订阅者输出缓冲区大小
func WithBufferSize(size int64) EventBusOption {
	return func(o *eventBusOptions) {
		o.bufferSize = size
	}
}

// WithDebugLog 开启watermill调试日志
func WithDebugLog(debug, trace bool) EventBusOption {
	return func(o *eventBusOptions) {
		o.debug = debug
		o.trace = trace
	}
}

// NewEventBus 创建事件总线
func NewEventBus(opts ...EventBusOption) *EventBus {
	options := &eventBusOptions{bufferSize: 64}
	for _, opt := range opts {
		opt(options)
	}

	logger := watermill.NewStdLogger(options.debug, options.trace)
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            options.bufferSize,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	return &EventBus{
		pubsub: pubsub,
		logger: logger,
	}
}

// Publish 发布事件
func (b *EventBus) Publish(ctx context.Context, event *DependentEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("事件总线已关闭")
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("watch_id", event.WatchID)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339Nano))

	if err := b.pubsub.Publish(string(event.Type), msg); err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}
	return nil
}

// Subscribe 订阅某类事件，返回的通道在ctx取消或总线关闭后关闭
func (b *EventBus) Subscribe(ctx context.Context, eventType EventType) (<-chan *DependentEvent, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("事件总线已关闭")
	}

	messages, err := b.pubsub.Subscribe(ctx, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("订阅事件失败: %w", err)
	}

	out := make(chan *DependentEvent)
	go func() {
		defer close(out)
		for msg := range messages {
			var event DependentEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				log.Printf("⚠️ [事件总线] 解析事件失败: Topic=%s, MessageID=%s, Error=%v", eventType, msg.UUID, err)
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- &event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close 关闭事件总线，所有订阅通道随之关闭
func (b *EventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.pubsub.Close(); err != nil {
		return fmt.Errorf("关闭事件总线失败: %w", err)
	}
	return nil
}

var _ Publisher = (*EventBus)(nil)
