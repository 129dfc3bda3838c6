// Package bus is the in-process event bus between the agent, its body and
// the outer surfaces (HTTP API, pose stream, journal).
package bus

import (
	"sync"
	"time"
)

// EventType identifies an event
type EventType string

const (
	// Session events
	EventSessionEntered EventType = "session.entered"
	EventSessionExited  EventType = "session.exited"

	// Agent events
	EventAgentResponse EventType = "agent.response"
	EventAgentReset    EventType = "agent.reset"

	// Body events
	EventBodyPhase           EventType = "body.phase"
	EventBodyPresenceChanged EventType = "body.presence_changed"
)

// Event is one published event
type Event struct {
	Type EventType      `json:"type"`
	Time time.Time      `json:"time"`
	Data map[string]any `json:"data,omitempty"`
}

// Handler handles events
type Handler func(Event)

// Subscription identifies a registered handler
type Subscription uint64

type entry struct {
	id      Subscription
	handler Handler
}

// EventBus is a simple pub/sub bus. The zero value is not usable; use New.
type EventBus struct {
	mu       sync.RWMutex
	next     Subscription
	handlers map[EventType][]entry
	all      []entry
}

// New creates an event bus
func New() *EventBus {
	return &EventBus{handlers: make(map[EventType][]entry)}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(t EventType, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.handlers[t] = append(b.handlers[t], entry{id: b.next, handler: h})
	return b.next
}

// SubscribeAll adds a handler that receives every event
func (b *EventBus) SubscribeAll(h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.all = append(b.all, entry{id: b.next, handler: h})
	return b.next
}

// Unsubscribe removes a handler. Unknown ids are ignored.
func (b *EventBus) Unsubscribe(id Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, list := range b.handlers {
		b.handlers[t] = without(list, id)
	}
	b.all = without(b.all, id)
}

func without(list []entry, id Subscription) []entry {
	out := list[:0:0]
	for _, e := range list {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

func (b *EventBus) snapshot(t EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, 0, len(b.handlers[t])+len(b.all))
	for _, e := range b.handlers[t] {
		hs = append(hs, e.handler)
	}
	for _, e := range b.all {
		hs = append(hs, e.handler)
	}
	return hs
}

func stamp(e Event) Event {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	return e
}

// Publish delivers an event to every handler without waiting.
// A nil bus drops the event.
func (b *EventBus) Publish(e Event) {
	if b == nil {
		return
	}
	e = stamp(e)
	for _, h := range b.snapshot(e.Type) {
		go h(e)
	}
}

// PublishSync delivers an event and waits for all handlers to return
func (b *EventBus) PublishSync(e Event) {
	if b == nil {
		return
	}
	e = stamp(e)
	var wg sync.WaitGroup
	for _, h := range b.snapshot(e.Type) {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(e)
		}(h)
	}
	wg.Wait()
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]entry)
	b.all = nil
}
