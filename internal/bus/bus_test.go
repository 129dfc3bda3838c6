package bus

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishSync(t *testing.T) {
	b := New()
	var phase, all atomic.Int32
	b.Subscribe(EventBodyPhase, func(e Event) {
		assert.Equal(t, "thinking", e.Data["phase"])
		assert.False(t, e.Time.IsZero())
		phase.Add(1)
	})
	b.SubscribeAll(func(Event) { all.Add(1) })

	b.PublishSync(Event{Type: EventBodyPhase, Data: map[string]any{"phase": "thinking"}})
	b.PublishSync(Event{Type: EventAgentReset})

	assert.Equal(t, int32(1), phase.Load())
	assert.Equal(t, int32(2), all.Load())
}

func TestPublishAsync(t *testing.T) {
	b := New()
	got := make(chan Event, 1)
	b.Subscribe(EventSessionEntered, func(e Event) { got <- e })

	b.Publish(Event{Type: EventSessionEntered})

	select {
	case e := <-got:
		assert.Equal(t, EventSessionEntered, e.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestUnsubscribeAndClear(t *testing.T) {
	b := New()
	var n atomic.Int32
	id := b.Subscribe(EventAgentResponse, func(Event) { n.Add(1) })
	allID := b.SubscribeAll(func(Event) { n.Add(1) })

	b.Unsubscribe(id)
	b.PublishSync(Event{Type: EventAgentResponse})
	assert.Equal(t, int32(1), n.Load())

	b.Unsubscribe(allID)
	b.PublishSync(Event{Type: EventAgentResponse})
	assert.Equal(t, int32(1), n.Load())

	b.Subscribe(EventAgentResponse, func(Event) { n.Add(1) })
	b.Clear()
	b.PublishSync(Event{Type: EventAgentResponse})
	assert.Equal(t, int32(1), n.Load())
}

func TestNilBus(t *testing.T) {
	var b *EventBus
	assert.NotPanics(t, func() {
		b.Publish(Event{Type: EventAgentReset})
		b.PublishSync(Event{Type: EventAgentReset})
	})
}
