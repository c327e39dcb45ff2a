// Package bus provides the async turn-event bus between the orchestrator
// and outbound sinks.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/parlor/parlor/internal/store"
)

// Event kinds emitted during turn resolution.
const (
	EventReply  = "reply"
	EventChunk  = "chunk"
	EventBusy   = "busy"
	EventNotice = "notice"
	EventTool   = "tool"
)

// Event is one observable moment of a turn.
type Event struct {
	Kind      string         `json:"kind"`
	ChannelID string         `json:"channel_id"`
	AgentName string         `json:"agent_name,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
	Text      string         `json:"text,omitempty"`
	Busy      bool           `json:"busy"`
	Message   *store.Message `json:"message,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventBus decouples turn resolution from the sinks that render or forward
// its events.
type EventBus struct {
	events chan *Event
	subs   []func(*Event)
	mu     sync.RWMutex
}

// New creates an EventBus.
func New() *EventBus {
	return &EventBus{
		events: make(chan *Event, 256),
	}
}

// Publish enqueues an event for dispatch.
func (b *EventBus) Publish(ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.events <- ev
}

// Subscribe registers a callback for every dispatched event.
func (b *EventBus) Subscribe(callback func(*Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, callback)
}

// Dispatch runs the event dispatcher. This should be run as a goroutine.
func (b *EventBus) Dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-b.events:
			b.mu.RLock()
			callbacks := make([]func(*Event), len(b.subs))
			copy(callbacks, b.subs)
			b.mu.RUnlock()

			for _, cb := range callbacks {
				cb(ev)
			}
		}
	}
}

// Size returns the number of pending events.
func (b *EventBus) Size() int {
	return len(b.events)
}
