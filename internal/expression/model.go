package expression

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/normanking/cortexguide/internal/avatar"
	"github.com/normanking/cortexguide/internal/scene"
)

const (
	TransitionFast   = 150 * time.Millisecond
	TransitionNormal = 400 * time.Millisecond
	TransitionSlow   = 800 * time.Millisecond

	DefaultBlink = 150 * time.Millisecond
)

type transition struct {
	from     Weights
	to       Weights
	start    time.Time
	duration time.Duration
}

func (t *transition) at(now time.Time) (Weights, bool) {
	elapsed := now.Sub(t.start)
	if elapsed >= t.duration {
		return t.to, true
	}
	progress := float32(elapsed) / float32(t.duration)
	return t.from.Lerp(t.to, easeInOutCubic(progress)), false
}

// Model is the expression state of one actor
type Model struct {
	clock clockwork.Clock

	mu         sync.Mutex
	current    Weights
	source     avatar.Emotion
	target     avatar.Emotion
	transition *transition
	blinkUntil time.Time
}

// NewModel starts at the neutral expression. A nil clock uses wall time.
func NewModel(clock clockwork.Clock) *Model {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Model{
		clock:  clock,
		source: avatar.EmotionNeutral,
		target: avatar.EmotionNeutral,
	}
}

// SetEmotion starts a crossfade from the currently blended weights to the
// emotion's table. Targeting the active emotion again is a no-op and
// returns false.
func (m *Model) SetEmotion(e avatar.Emotion, duration time.Duration) bool {
	if !e.Valid() {
		e = avatar.EmotionNeutral
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e == m.target {
		return false
	}

	now := m.clock.Now()
	from := m.current
	if m.transition != nil {
		from, _ = m.transition.at(now)
	}

	m.source, m.target = m.target, e
	to := Table(e)
	if duration <= 0 {
		m.current = to
		m.transition = nil
		return true
	}
	m.transition = &transition{from: from, to: to, start: now, duration: duration}
	return true
}

// Update advances the crossfade, applies any blink and writes the result
// into the actor's morph slots. A nil actor only advances state.
func (m *Model) Update(actor scene.Actor) Weights {
	m.mu.Lock()
	now := m.clock.Now()
	if m.transition != nil {
		var done bool
		m.current, done = m.transition.at(now)
		if done {
			m.transition = nil
		}
	}
	out := m.current
	if now.Before(m.blinkUntil) {
		out[EyeBlinkLeft] = 1
		out[EyeBlinkRight] = 1
	}
	m.mu.Unlock()

	if actor != nil {
		apply(actor, out)
	}
	return out
}

// Blink closes the eyelids for duration on top of whatever expression is
// blending. The closed state is written to the actor immediately.
func (m *Model) Blink(actor scene.Actor, duration time.Duration) {
	if duration <= 0 {
		duration = DefaultBlink
	}
	m.mu.Lock()
	m.blinkUntil = m.clock.Now().Add(duration)
	m.mu.Unlock()

	if actor != nil {
		actor.SetMorphWeight(shapeNames[EyeBlinkLeft], 1)
		actor.SetMorphWeight(shapeNames[EyeBlinkRight], 1)
	}
}

// Blinking reports whether a blink override is active
func (m *Model) Blinking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Now().Before(m.blinkUntil)
}

// Emotion returns the target emotion and the one it is fading from
func (m *Model) Emotion() (target, source avatar.Emotion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target, m.source
}

func (m *Model) Transitioning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transition != nil
}

// Current returns the blended weights as of the last Update
func (m *Model) Current() Weights {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Reset snaps to neutral with no transition or blink pending
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Weights{}
	m.transition = nil
	m.blinkUntil = time.Time{}
	m.source, m.target = avatar.EmotionNeutral, avatar.EmotionNeutral
}

func apply(actor scene.Actor, w Weights) {
	for i, v := range w {
		actor.SetMorphWeight(shapeNames[i], v)
	}
}

func easeInOutCubic(t float32) float32 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - float32(math.Pow(float64(-2*t+2), 3))/2
}
