package agent

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/normanking/cortexguide/internal/avatar"
	"github.com/normanking/cortexguide/internal/body"
	"github.com/normanking/cortexguide/internal/brain"
	"github.com/normanking/cortexguide/internal/bus"
	"github.com/normanking/cortexguide/internal/expression"
	"github.com/normanking/cortexguide/internal/gaze"
	"github.com/normanking/cortexguide/internal/journal"
	"github.com/normanking/cortexguide/internal/llm"
	"github.com/normanking/cortexguide/internal/persona"
	"github.com/normanking/cortexguide/internal/scene"
)

type scriptedGateway struct {
	mu  sync.Mutex
	raw string
}

func (g *scriptedGateway) SetContext(string) {}

func (g *scriptedGateway) SendMessage(context.Context, []llm.Message) (llm.Reply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return llm.ParseReply(g.raw), nil
}

const welcome = `{"text":"¡Bienvenido a Palenque!","emotion":"happy","gesture":"wave","intensity":0.9}`

type harness struct {
	agent *Agent
	body  *body.Body
	clock clockwork.FakeClock
	bus   *bus.EventBus
	jr    *journal.Journal
}

func newHarness(t *testing.T, withBrain bool) *harness {
	t.Helper()
	fc := clockwork.NewFakeClock()
	eb := bus.New()

	presence := body.DefaultPresence()
	presence.Blinking = false
	actor := scene.NewHumanoid("kinich", expression.ShapeNames())
	b := body.New(actor, body.WithClock(fc), body.WithBus(eb), body.WithPresence(presence))
	g := gaze.New(b, scene.StaticViewpoint{0, 1.6, 2}, gaze.WithClock(fc))

	jr, err := journal.Open(":memory:", journal.WithClock(fc))
	require.NoError(t, err)
	t.Cleanup(func() { jr.Close() })

	opts := []Option{WithBus(eb), WithJournal(jr)}
	if withBrain {
		br := brain.New(&scriptedGateway{raw: welcome}, persona.DefaultProfile())
		opts = append(opts, WithBrain(br))
	}
	a := New("kinich", b, g, opts...)
	t.Cleanup(a.Close)
	return &harness{agent: a, body: b, clock: fc, bus: eb, jr: jr}
}

// drain advances the fake clock until every queued body execution is done
func (h *harness) drain(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		h.agent.Wait()
		close(done)
	}()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("body executions did not finish")
		default:
			h.clock.Advance(500 * time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestSayQueuesBodyExecution(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	resp, err := h.agent.Say(ctx, "¿Qué es este lugar?")
	require.NoError(t, err)
	assert.Equal(t, "¡Bienvenido a Palenque!", resp.Text)
	assert.Equal(t, avatar.EmotionHappy, resp.Emotion)
	assert.Equal(t, avatar.GestureWave, resp.Gesture)

	_, err = h.agent.Say(ctx, "Cuéntame más")
	require.NoError(t, err)
	assert.Equal(t, 2, h.agent.Status().Pending)

	h.drain(t)
	assert.Zero(t, h.agent.Status().Pending)
	assert.Equal(t, body.PhaseRest, h.body.Phase())
	assert.Len(t, h.agent.Brain().History(), 5)
}

func TestBodyPlaysResponsesInOrder(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		events []bus.Event
	)
	h.bus.Subscribe(bus.EventBodyPhase, func(e bus.Event) {
		if e.Data["phase"] != string(body.PhaseGesture) {
			return
		}
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	gw := &scriptedGateway{}
	h.agent.brain = brain.New(gw, persona.DefaultProfile())
	for _, g := range []string{"nod", "shake", "tilt"} {
		gw.mu.Lock()
		gw.raw = `{"text":"…","emotion":"serious","gesture":"` + g + `","intensity":0.7}`
		gw.mu.Unlock()
		_, err := h.agent.Say(ctx, "¿Sí?")
		require.NoError(t, err)
	}
	h.drain(t)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 3
	}, time.Second, time.Millisecond)

	// handlers run concurrently, so order by publish time
	mu.Lock()
	defer mu.Unlock()
	sort.Slice(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	var gestures []string
	for _, e := range events {
		gestures = append(gestures, e.Data["gesture"].(string))
	}
	assert.Equal(t, []string{"nod", "shake", "tilt"}, gestures)
}

// rotatingGateway answers each call with the next gesture and remembers
// the order it answered in
type rotatingGateway struct {
	mu       sync.Mutex
	gestures []string
	answered []string
}

func (g *rotatingGateway) SetContext(string) {}

func (g *rotatingGateway) SendMessage(context.Context, []llm.Message) (llm.Reply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	next := g.gestures[len(g.answered)%len(g.gestures)]
	g.answered = append(g.answered, next)
	return llm.ParseReply(`{"text":"…","emotion":"serious","gesture":"` + next + `","intensity":0.7}`), nil
}

func TestConcurrentSayKeepsBrainOrder(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		events []bus.Event
	)
	h.bus.Subscribe(bus.EventBodyPhase, func(e bus.Event) {
		if e.Data["phase"] != string(body.PhaseGesture) {
			return
		}
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	gw := &rotatingGateway{gestures: []string{"nod", "shake", "tilt", "turn", "wave"}}
	h.agent.brain = brain.New(gw, persona.DefaultProfile())
	require.NoError(t, h.agent.Enter(ctx))
	sessionID := h.agent.Status().SessionID

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.agent.Say(ctx, "¿Y esto?")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	h.drain(t)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 5
	}, time.Second, time.Millisecond)

	mu.Lock()
	sort.Slice(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	var played []string
	for _, e := range events {
		played = append(played, e.Data["gesture"].(string))
	}
	mu.Unlock()

	gw.mu.Lock()
	answered := append([]string(nil), gw.answered...)
	gw.mu.Unlock()
	assert.Equal(t, answered, played)

	turns, err := h.jr.Turns(ctx, sessionID)
	require.NoError(t, err)
	var journaled []string
	for _, turn := range turns {
		if turn.Role == journal.RoleAssistant {
			journaled = append(journaled, turn.Gesture)
		}
	}
	assert.Equal(t, answered, journaled)
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	entered := make(chan bus.Event, 1)
	h.bus.Subscribe(bus.EventSessionEntered, func(e bus.Event) { entered <- e })

	require.NoError(t, h.agent.Enter(ctx))
	st := h.agent.Status()
	require.True(t, st.InSession)
	require.NotEmpty(t, st.SessionID)
	assert.True(t, h.body.PresenceRunning())
	assert.True(t, h.agent.Gaze().Running())

	select {
	case e := <-entered:
		assert.Equal(t, st.SessionID, e.Data["session"])
	case <-time.After(time.Second):
		t.Fatal("no session.entered event")
	}

	// entering again keeps the same session
	require.NoError(t, h.agent.Enter(ctx))
	assert.Equal(t, st.SessionID, h.agent.Status().SessionID)

	resp, greeted, err := h.agent.CloseRange(ctx)
	require.NoError(t, err)
	assert.True(t, greeted)
	assert.NotEmpty(t, resp.Text)

	_, greeted, err = h.agent.CloseRange(ctx)
	require.NoError(t, err)
	assert.False(t, greeted)

	_, err = h.agent.Say(ctx, "¿Quién vivía aquí?")
	require.NoError(t, err)
	h.drain(t)

	turns, err := h.jr.Turns(ctx, st.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, DefaultGreeting, turns[0].Content)
	assert.Equal(t, journal.RoleAssistant, turns[1].Role)
	assert.Equal(t, "wave", turns[1].Gesture)
	assert.Equal(t, "¿Quién vivía aquí?", turns[2].Content)

	require.NoError(t, h.agent.Exit(ctx))
	assert.False(t, h.agent.Status().InSession)
	assert.False(t, h.agent.Gaze().Running())
	assert.True(t, h.body.PresenceRunning())

	s, err := h.jr.Session(ctx, st.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, s.EndedAt)

	// a new session greets again
	require.NoError(t, h.agent.Enter(ctx))
	assert.NotEqual(t, st.SessionID, h.agent.Status().SessionID)
	_, greeted, err = h.agent.CloseRange(ctx)
	require.NoError(t, err)
	assert.True(t, greeted)
	h.drain(t)
}

func TestExitOutsideSession(t *testing.T) {
	h := newHarness(t, true)
	assert.NoError(t, h.agent.Exit(context.Background()))
}

func TestSayOutsideSessionIsNotJournaled(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	_, err := h.agent.Say(ctx, "hola")
	require.NoError(t, err)
	h.drain(t)

	require.NoError(t, h.agent.Enter(ctx))
	turns, err := h.jr.Turns(ctx, h.agent.Status().SessionID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestBrainlessMode(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.agent.Say(ctx, "hola")
	assert.ErrorIs(t, err, ErrNoBrain)
	_, _, err = h.agent.CloseRange(ctx)
	assert.ErrorIs(t, err, ErrNoBrain)
	assert.ErrorIs(t, h.agent.Reset(), ErrNoBrain)

	require.NoError(t, h.agent.Enter(ctx))
	assert.True(t, h.body.PresenceRunning())
	assert.False(t, h.agent.Status().HasBrain)
}

func TestReset(t *testing.T) {
	h := newHarness(t, true)
	got := make(chan struct{}, 1)
	h.bus.Subscribe(bus.EventAgentReset, func(bus.Event) { got <- struct{}{} })

	_, err := h.agent.Say(context.Background(), "hola")
	require.NoError(t, err)
	h.drain(t)

	require.NoError(t, h.agent.Reset())
	assert.Len(t, h.agent.Brain().History(), 1)
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("no agent.reset event")
	}
}

func TestClose(t *testing.T) {
	// genai pulls in opencensus, whose view worker starts at init
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)

	h := newHarness(t, true)
	ctx := context.Background()
	require.NoError(t, h.agent.Enter(ctx))

	_, err := h.agent.Say(ctx, "hola")
	require.NoError(t, err)
	_, err = h.agent.Say(ctx, "adiós")
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		h.agent.Close()
		close(closed)
	}()
	for {
		select {
		case <-closed:
			_, err = h.agent.Say(ctx, "¿sigues ahí?")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, h.agent.Enter(ctx), ErrClosed)
			assert.False(t, h.body.PresenceRunning())
			return
		case <-time.After(time.Millisecond):
			h.clock.Advance(500 * time.Millisecond)
		}
	}
}
