// Package brain is the guide's cognitive controller. It owns the emotional
// state, the conversation memory and the dialogue log, and turns each user
// message into an avatar.Response through the language gateway.
package brain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexguide/internal/avatar"
	"github.com/normanking/cortexguide/internal/llm"
	"github.com/normanking/cortexguide/internal/persona"
)

// Gateway is the part of llm.Gateway the brain needs
type Gateway interface {
	SetContext(system string)
	SendMessage(ctx context.Context, history []llm.Message) (llm.Reply, error)
}

// Tone deltas and per-turn steps
const (
	HostileMoodDelta       = -20.0
	PoliteMoodDelta        = 10.0
	CuriousEngagementDelta = 15.0

	EngagementStep = 2.0
	EnergyStep     = 1.0

	DefaultIntensity float32 = 0.5
)

// Config tunes the brain. Zero fields take the defaults.
type Config struct {
	HistoryCap    int
	KeepRecent    int
	IdleDecay     time.Duration
	DecayFactor   float64
	FallbackLines []string
}

// DefaultFallbackLines are spoken when the language service fails
var DefaultFallbackLines = []string{
	"Disculpa, viajero. Mis pensamientos se pierden entre las piedras por un momento.",
	"Los ancestros guardan silencio ahora. Pregúntame de nuevo, te lo ruego.",
	"El viento se llevó mis palabras. ¿Qué decías?",
}

// DefaultConfig returns the standard tuning
func DefaultConfig() Config {
	return Config{
		HistoryCap:    20,
		KeepRecent:    10,
		IdleDecay:     5 * time.Minute,
		DecayFactor:   0.7,
		FallbackLines: DefaultFallbackLines,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HistoryCap <= 2 {
		c.HistoryCap = d.HistoryCap
	}
	if c.KeepRecent <= 0 || c.KeepRecent > c.HistoryCap-2 {
		c.KeepRecent = min(d.KeepRecent, c.HistoryCap-2)
	}
	if c.IdleDecay <= 0 {
		c.IdleDecay = d.IdleDecay
	}
	if c.DecayFactor <= 0 || c.DecayFactor >= 1 {
		c.DecayFactor = d.DecayFactor
	}
	if len(c.FallbackLines) == 0 {
		c.FallbackLines = d.FallbackLines
	}
	return c
}

// Option configures a Brain
type Option func(*Brain)

func WithConfig(c Config) Option {
	return func(b *Brain) { b.cfg = c.withDefaults() }
}

func WithClock(c clockwork.Clock) Option {
	return func(b *Brain) {
		if c != nil {
			b.clock = c
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *Brain) { b.log = l }
}

// WithClassifier replaces the reply inference strategy
func WithClassifier(c Classifier) Option {
	return func(b *Brain) {
		if c != nil {
			b.classifier = c
		}
	}
}

// WithToneDetector replaces the user tone strategy
func WithToneDetector(t ToneDetector) Option {
	return func(b *Brain) {
		if t != nil {
			b.tone = t
		}
	}
}

// Brain is the conversational state machine. ProcessMessage calls are
// served one at a time in arrival order.
type Brain struct {
	gateway    Gateway
	profile    persona.Profile
	cfg        Config
	clock      clockwork.Clock
	log        zerolog.Logger
	classifier Classifier
	tone       ToneDetector

	// sem admits one ProcessMessage or Reset at a time
	sem chan struct{}

	mu       sync.RWMutex
	state    persona.EmotionalState
	memory   persona.Memory
	history  []llm.Message
	fallback int
}

type noGateway struct{}

func (noGateway) SetContext(string) {}
func (noGateway) SendMessage(context.Context, []llm.Message) (llm.Reply, error) {
	return llm.Reply{}, llm.ErrUnavailable
}

// New creates a brain speaking through gw with the given personality.
// A nil gateway answers every message with a fallback line.
func New(gw Gateway, profile persona.Profile, opts ...Option) *Brain {
	if gw == nil {
		gw = noGateway{}
	}
	kc := NewKeywordClassifier()
	b := &Brain{
		gateway:    gw,
		profile:    profile.Clone(),
		cfg:        DefaultConfig(),
		clock:      clockwork.NewRealClock(),
		log:        zerolog.Nop(),
		classifier: kc,
		tone:       kc,
		sem:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With().Str("component", "brain").Logger()
	b.resetLocked()
	return b
}

func (b *Brain) resetLocked() {
	now := b.clock.Now()
	b.state = persona.NewEmotionalState(now)
	b.memory = persona.NewMemory()
	b.history = []llm.Message{{Role: llm.RoleSystem, Content: b.systemPrompt()}}
	b.fallback = 0
}

func (b *Brain) systemPrompt() string {
	return persona.BuildSystemPrompt(b.profile, b.state, b.memory)
}

// Reset restores the neutral defaults. It waits for an in-flight message.
func (b *Brain) Reset() {
	b.sem <- struct{}{}
	defer func() { <-b.sem }()

	b.mu.Lock()
	b.resetLocked()
	b.mu.Unlock()
	b.log.Info().Msg("state reset")
}

// ProcessMessage runs one conversation turn. Gateway failures become a
// fallback line; the only error is ctx ending while waiting for a turn.
func (b *Brain) ProcessMessage(ctx context.Context, text string) (avatar.Response, error) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return avatar.Response{}, ctx.Err()
	}
	defer func() { <-b.sem }()

	text = strings.TrimSpace(text)
	thinking, history := b.prepare(text)

	reply, err := b.gateway.SendMessage(ctx, history)

	var resp avatar.Response
	if err != nil {
		b.logFailure(err)
		resp = b.fallbackResponse(thinking)
	} else {
		resp = b.toResponse(reply, thinking)
	}

	b.finish(text, resp)
	return resp, nil
}

// prepare runs the local steps before dispatch and returns the thinking
// time and a copy of the log to send.
func (b *Brain) prepare(text string) (time.Duration, []llm.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()

	tone := b.tone.DetectTone(text)
	b.memory.UserTone = tone
	switch tone {
	case avatar.ToneAggressive:
		b.state.AdjustMood(HostileMoodDelta)
	case avatar.ToneRespectful:
		b.state.AdjustMood(PoliteMoodDelta)
	case avatar.ToneCurious:
		b.state.RaiseEngagement(CuriousEngagementDelta)
	}

	if b.state.Decay(now, b.cfg.IdleDecay, b.cfg.DecayFactor) {
		b.log.Debug().Float64("mood", b.state.Mood).Msg("mood decayed")
	}
	b.state.RaiseEngagement(EngagementStep)
	b.state.DrainEnergy(EnergyStep)
	b.state.LastUpdate = now

	b.history = append(b.history, llm.Message{Role: llm.RoleUser, Content: text})
	kept, evicted := compact(b.history, b.cfg.HistoryCap, b.cfg.KeepRecent)
	if len(evicted) > 0 {
		b.history = kept
		b.memory.Summary = summarize(evicted)
		b.log.Debug().Int("evicted", len(evicted)).Str("summary", b.memory.Summary).Msg("history compacted")
	}

	thinking := thinkingTime(text, b.state.Mood)

	system := b.systemPrompt()
	b.history[0] = llm.Message{Role: llm.RoleSystem, Content: system}
	b.gateway.SetContext(system)

	return thinking, append([]llm.Message(nil), b.history...)
}

func (b *Brain) finish(text string, resp avatar.Response) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.memory.AddTopics(persona.Keywords(text, 0)...)
	b.memory.InteractionCount++
	b.memory.LastInteraction = b.clock.Now()
	b.history = append(b.history, llm.Message{Role: llm.RoleAssistant, Content: resp.Text})

	b.log.Info().
		Str("tone", string(b.memory.UserTone)).
		Str("emotion", string(resp.Emotion)).
		Str("gesture", string(resp.Gesture)).
		Float64("mood", b.state.Mood).
		Float64("engagement", b.state.Engagement).
		Int("interactions", b.memory.InteractionCount).
		Msg("turn processed")
}

func (b *Brain) logFailure(err error) {
	var te *llm.TransportError
	ev := b.log.Warn().Err(err)
	if errors.As(err, &te) {
		ev = ev.Bool("timeout", te.Timeout()).Int("status", te.StatusCode)
	}
	ev.Msg("language service failed, using fallback")
}

func (b *Brain) fallbackResponse(thinking time.Duration) avatar.Response {
	b.mu.Lock()
	lines := b.cfg.FallbackLines
	line := lines[b.fallback%len(lines)]
	b.fallback++
	b.mu.Unlock()
	return avatar.NewResponse(line, avatar.EmotionNeutral, avatar.GestureIdle, DefaultIntensity, thinking)
}

// toResponse maps every reply variant onto a Response
func (b *Brain) toResponse(reply llm.Reply, thinking time.Duration) avatar.Response {
	text := reply.Text
	if text == "" {
		return b.fallbackResponse(thinking)
	}

	switch reply.Kind {
	case llm.Structured, llm.InlineTagged:
		if reply.Emotion == "" && reply.Gesture == "" {
			break
		}
		intensity := DefaultIntensity
		if reply.Intensity != nil {
			intensity = *reply.Intensity
		}
		return avatar.NewResponse(text, avatar.ParseEmotion(reply.Emotion), avatar.ParseGesture(reply.Gesture), intensity, thinking)
	}

	tag := b.classifier.Classify(text)
	return avatar.NewResponse(text, tag.Emotion, tag.Gesture, tag.Intensity, thinking)
}

// State is a read-only snapshot of the brain
type State struct {
	Profile   string                 `json:"profile"`
	Emotional persona.EmotionalState `json:"emotional"`
	Mood      string                 `json:"mood"`
	Memory    persona.Memory         `json:"memory"`
	History   []llm.Message          `json:"history"`
}

// Snapshot copies the current state
func (b *Brain) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return State{
		Profile:   b.profile.Name,
		Emotional: b.state,
		Mood:      b.state.MoodLabel(),
		Memory:    b.memory.Clone(),
		History:   append([]llm.Message(nil), b.history...),
	}
}

// EmotionalState returns the current emotional state
func (b *Brain) EmotionalState() persona.EmotionalState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Memory returns a copy of the conversation memory
func (b *Brain) Memory() persona.Memory {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.memory.Clone()
}

// History returns a copy of the dialogue log
func (b *Brain) History() []llm.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]llm.Message(nil), b.history...)
}

// Profile returns the personality the brain was built with
func (b *Brain) Profile() persona.Profile {
	return b.profile.Clone()
}
