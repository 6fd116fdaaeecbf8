package outreach

import (
	"context"
	"sync"
	"time"
)

// EventType 标识外呼事件流中的事件种类。
type EventType string

const (
	EventContactRecorded EventType = "contact_recorded"
	EventDelivered       EventType = "delivered"
	EventDeliveryFailed  EventType = "delivery_failed"
	EventCycleCompleted  EventType = "cycle_completed"
)

// Event 是发布到事件流的出站记录，供下游系统消费。
// 发布失败只记录日志，绝不影响外呼主流程。
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	CycleID    string    `json:"cycle_id"`
	ProfileID  string    `json:"profile_id,omitempty"`
	Phase      string    `json:"phase,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher 负责向事件流投递外呼事件。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher 丢弃所有事件，是未配置事件流时的默认实现。
type NoopPublisher struct{}

// Publish 实现 Publisher 接口。
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Close 实现 Publisher 接口。
func (NoopPublisher) Close() error { return nil }

// MemoryPublisher 在内存中累积事件，用于测试和本地调试。
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher 创建内存事件流。
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish 追加事件。
func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events 返回已发布事件的副本。
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Close 实现 Publisher 接口。
func (p *MemoryPublisher) Close() error { return nil }

var (
	_ Publisher = NoopPublisher{}
	_ Publisher = (*MemoryPublisher)(nil)
)
