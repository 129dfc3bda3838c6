// Package agent joins the guide's brain, body and gaze into one unit and
// drives it from visitor session signals.
package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexguide/internal/avatar"
	"github.com/normanking/cortexguide/internal/body"
	"github.com/normanking/cortexguide/internal/brain"
	"github.com/normanking/cortexguide/internal/bus"
	"github.com/normanking/cortexguide/internal/gaze"
	"github.com/normanking/cortexguide/internal/journal"
)

var (
	// ErrNoBrain is returned by conversation calls when the agent runs
	// without a cognitive path, for example because credentials are missing.
	ErrNoBrain = errors.New("agent: no brain")
	ErrClosed  = errors.New("agent: closed")
)

// DefaultGreeting is said on the first close-range signal of a session
const DefaultGreeting = "Hola"

type Option func(*Agent)

// WithBrain attaches the cognitive path. Without it the agent only runs
// presence and gaze.
func WithBrain(b *brain.Brain) Option {
	return func(a *Agent) { a.brain = b }
}

func WithBus(eb *bus.EventBus) Option {
	return func(a *Agent) { a.bus = eb }
}

// WithJournal records each session's turns
func WithJournal(j *journal.Journal) Option {
	return func(a *Agent) { a.journal = j }
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Agent) { a.log = l }
}

func WithGreeting(text string) Option {
	return func(a *Agent) {
		if text != "" {
			a.greeting = text
		}
	}
}

// Status is a snapshot of the session state
type Status struct {
	InSession bool   `json:"inSession"`
	SessionID string `json:"sessionId,omitempty"`
	Greeted   bool   `json:"greeted"`
	HasBrain  bool   `json:"hasBrain"`
	Pending   int    `json:"pending"`
}

// Agent owns one brain, one body and one gaze coordinator
type Agent struct {
	name     string
	brain    *brain.Brain
	body     *body.Body
	gaze     *gaze.Coordinator
	bus      *bus.EventBus
	journal  *journal.Journal
	log      zerolog.Logger
	greeting string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// turn admits one Say from the brain call through the body queue,
	// so journal and body order follow brain order
	turn chan struct{}

	mu        sync.Mutex
	tail      chan struct{}
	pending   int
	inSession bool
	sessionID string
	greeted   bool
	closed    bool
}

// New builds an agent around b and g. name labels journal sessions.
func New(name string, b *body.Body, g *gaze.Coordinator, opts ...Option) *Agent {
	a := &Agent{
		name:     name,
		body:     b,
		gaze:     g,
		log:      zerolog.Nop(),
		greeting: DefaultGreeting,
		turn:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With().Str("component", "agent").Logger()
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a
}

func (a *Agent) Name() string        { return a.name }
func (a *Agent) Brain() *brain.Brain { return a.brain }
func (a *Agent) Body() *body.Body    { return a.body }
func (a *Agent) Gaze() *gaze.Coordinator {
	return a.gaze
}

// Status returns the current session state
func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{
		InSession: a.inSession,
		SessionID: a.sessionID,
		Greeted:   a.greeted,
		HasBrain:  a.brain != nil,
		Pending:   a.pending,
	}
}

// Say runs one conversation turn and returns the response as soon as the
// brain has it. The body plays responses in the order they were produced,
// one at a time, also when Say is called concurrently.
func (a *Agent) Say(ctx context.Context, text string) (avatar.Response, error) {
	if a.brain == nil {
		return avatar.Response{}, ErrNoBrain
	}
	select {
	case a.turn <- struct{}{}:
	case <-ctx.Done():
		return avatar.Response{}, ctx.Err()
	}
	defer func() { <-a.turn }()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return avatar.Response{}, ErrClosed
	}
	sessionID := a.sessionID
	a.mu.Unlock()

	resp, err := a.brain.ProcessMessage(ctx, text)
	if err != nil {
		return avatar.Response{}, err
	}

	a.record(ctx, sessionID, text, resp)
	a.bus.Publish(bus.Event{Type: bus.EventAgentResponse, Data: map[string]any{
		"text":      resp.Text,
		"emotion":   string(resp.Emotion),
		"gesture":   string(resp.Gesture),
		"intensity": resp.Intensity,
		"session":   sessionID,
	}})
	a.perform(resp)
	return resp, nil
}

// perform queues resp behind the previous response
func (a *Agent) perform(resp avatar.Response) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	prev := a.tail
	done := make(chan struct{})
	a.tail = done
	a.pending++
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		defer close(done)
		defer func() {
			a.mu.Lock()
			a.pending--
			a.mu.Unlock()
		}()

		if prev != nil {
			<-prev
		}
		if a.ctx.Err() != nil {
			return
		}
		if err := a.body.ExecuteResponse(a.ctx, resp); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn().Err(err).Msg("body execution failed")
		}
	}()
}

func (a *Agent) record(ctx context.Context, sessionID, text string, resp avatar.Response) {
	if a.journal == nil || sessionID == "" {
		return
	}
	turns := []journal.Turn{
		{SessionID: sessionID, Role: journal.RoleUser, Content: text},
		{SessionID: sessionID, Role: journal.RoleAssistant, Content: resp.Text, Emotion: string(resp.Emotion), Gesture: string(resp.Gesture)},
	}
	for _, t := range turns {
		if _, err := a.journal.RecordTurn(ctx, t); err != nil {
			a.log.Warn().Err(err).Str("session", sessionID).Msg("journal write failed")
			return
		}
	}
}

// Wait blocks until every queued body execution has finished
func (a *Agent) Wait() {
	a.wg.Wait()
}

// Enter marks a visitor arriving: presence and gaze start and a new
// session opens. Entering while in a session does nothing.
func (a *Agent) Enter(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if a.inSession {
		return nil
	}

	if err := a.body.StartPresence(); err != nil {
		return err
	}
	if a.gaze != nil {
		a.gaze.Start()
	}

	id := ""
	if a.journal != nil {
		s, err := a.journal.StartSession(ctx, a.name)
		if err != nil {
			a.log.Warn().Err(err).Msg("journal session not opened")
		} else {
			id = s.ID
		}
	}
	a.inSession = true
	a.sessionID = id
	a.greeted = false

	a.bus.Publish(bus.Event{Type: bus.EventSessionEntered, Data: map[string]any{"session": id}})
	a.log.Info().Str("session", id).Msg("visitor entered")
	return nil
}

// Exit marks the visitor leaving. Gaze stops, the session closes and the
// next close-range signal greets again. Exiting outside a session does
// nothing.
func (a *Agent) Exit(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.inSession {
		return nil
	}

	if a.gaze != nil {
		a.gaze.Stop()
	}
	id := a.sessionID
	if a.journal != nil && id != "" {
		if err := a.journal.EndSession(ctx, id); err != nil {
			a.log.Warn().Err(err).Str("session", id).Msg("journal session not closed")
		}
	}
	a.inSession = false
	a.sessionID = ""
	a.greeted = false

	a.bus.Publish(bus.Event{Type: bus.EventSessionExited, Data: map[string]any{"session": id}})
	a.log.Info().Str("session", id).Msg("visitor exited")
	return nil
}

// CloseRange signals the visitor is near. The first signal after Enter
// (or after construction) greets; later ones are ignored and report false.
func (a *Agent) CloseRange(ctx context.Context) (avatar.Response, bool, error) {
	if a.brain == nil {
		return avatar.Response{}, false, ErrNoBrain
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return avatar.Response{}, false, ErrClosed
	}
	if a.greeted {
		a.mu.Unlock()
		return avatar.Response{}, false, nil
	}
	a.greeted = true
	a.mu.Unlock()

	resp, err := a.Say(ctx, a.greeting)
	if err != nil {
		a.mu.Lock()
		a.greeted = false
		a.mu.Unlock()
		return avatar.Response{}, false, err
	}
	return resp, true, nil
}

// Reset returns the brain to its neutral defaults
func (a *Agent) Reset() error {
	if a.brain == nil {
		return ErrNoBrain
	}
	a.brain.Reset()
	a.bus.Publish(bus.Event{Type: bus.EventAgentReset})
	return nil
}

// Close ends any session, lets the in-flight body execution finish,
// drops the ones still queued and stops the body.
func (a *Agent) Close() {
	a.Exit(context.Background())

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
	if a.gaze != nil {
		a.gaze.Stop()
	}
	a.body.Close()
	a.log.Info().Msg("agent closed")
}
