// Package body is the guide's physical controller. It runs the presence
// loops (breathing, blinking, head sway, gaze) on the render tick and plays
// a brain response as a timed sequence of expression and gesture.
package body

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexguide/internal/animation"
	"github.com/normanking/cortexguide/internal/bus"
	"github.com/normanking/cortexguide/internal/expression"
	"github.com/normanking/cortexguide/internal/scene"
	"github.com/normanking/cortexguide/internal/schedule"
)

// ErrClosed is returned by a Body used after Close
var ErrClosed = errors.New("body closed")

// gazeSmoothing is the exponential approach rate of a smooth LookAt
const gazeSmoothing = 4.0

// blinkSpread is how far a blink interval may stray from the mean, as a
// fraction of it
const blinkSpread = 0.5

// Option configures a Body
type Option func(*Body)

func WithClock(c clockwork.Clock) Option {
	return func(b *Body) {
		if c != nil {
			b.clock = c
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *Body) { b.log = l }
}

func WithBus(eb *bus.EventBus) Option {
	return func(b *Body) { b.bus = eb }
}

// WithAnimator shares an animator between bodies in one scene
func WithAnimator(a *animation.Animator) Option {
	return func(b *Body) {
		if a != nil {
			b.animator = a
		}
	}
}

func WithPresence(c PresenceConfig) Option {
	return func(b *Body) { b.presence = c }
}

// WithSeed fixes the random source behind blink timing and sway offsets
func WithSeed(seed int64) Option {
	return func(b *Body) { b.seed = seed }
}

type rest struct {
	node scene.Node
	pos  mgl32.Vec3
	rot  mgl32.Quat
}

// Body drives one actor
type Body struct {
	actor    scene.Actor
	clock    clockwork.Clock
	log      zerolog.Logger
	bus      *bus.EventBus
	animator *animation.Animator
	expr     *expression.Model
	seed     int64
	clips    map[clipKey]*animation.Clip

	root, spine, head *rest

	// sem admits one ExecuteResponse at a time
	sem chan struct{}

	mu       sync.Mutex
	presence PresenceConfig
	running  bool
	closed   bool
	blink    *schedule.Timer
	elapsed  float32
	sway     [3]float32
	phase    Phase
	gazeCur  mgl32.Quat
	gazeTgt  mgl32.Quat
	gazeSet  bool
	gazeOn   bool
	smooth   bool
}

type clipKey struct {
	action animation.Action
	style  animation.Style
}

// New attaches a body to actor. Named nodes the rig lacks are skipped.
func New(actor scene.Actor, opts ...Option) *Body {
	b := &Body{
		actor:    actor,
		clock:    clockwork.NewRealClock(),
		log:      zerolog.Nop(),
		presence: DefaultPresence(),
		seed:     time.Now().UnixNano(),
		sem:      make(chan struct{}, 1),
		phase:    PhaseRest,
		gazeCur:  mgl32.QuatIdent(),
		gazeTgt:  mgl32.QuatIdent(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.animator == nil {
		b.animator = animation.NewAnimator()
	}
	b.log = b.log.With().Str("component", "body").Str("actor", actor.ID()).Logger()
	b.expr = expression.NewModel(b.clock)

	rng := rand.New(rand.NewSource(b.seed))
	for i := range b.sway {
		b.sway[i] = rng.Float32() * 100
	}

	root := actor.Root()
	b.root = captureRest(root)
	b.spine = captureRest(root.Find(scene.NodeSpine))
	b.head = captureRest(root.Find(scene.NodeHead))

	b.clips = make(map[clipKey]*animation.Clip)
	for _, a := range animation.Actions() {
		for _, s := range []animation.Style{animation.StyleSubtle, animation.StyleNormal} {
			b.clips[clipKey{a, s}] = animation.MustGenerate(a, s)
		}
	}

	b.blink = schedule.NewTimer(b.clock, b.blinkDistribution(), b.doBlink,
		schedule.WithRand(rand.New(rand.NewSource(b.seed+1))))
	return b
}

func captureRest(n scene.Node) *rest {
	if n == nil {
		return nil
	}
	return &rest{node: n, pos: n.Position(), rot: n.Rotation()}
}

func (r *rest) reset() {
	if r != nil {
		r.node.SetPosition(r.pos)
		r.node.SetRotation(r.rot)
	}
}

func (b *Body) blinkDistribution() schedule.Distribution {
	mean := b.presence.BlinkInterval
	return schedule.Jitter{Mean: mean, Spread: blinkSpread}
}

func (b *Body) doBlink() {
	b.expr.Blink(b.actor, expression.DefaultBlink)
}

// Actor returns the driven actor
func (b *Body) Actor() scene.Actor { return b.actor }

// Expression returns the body's expression model
func (b *Body) Expression() *expression.Model { return b.expr }

// StartPresence begins the idle loops. Starting twice does nothing.
func (b *Body) StartPresence() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.running {
		return nil
	}
	b.running = true
	b.startLoopsLocked()
	b.animator.CrossFade(b.actor, b.clip(animation.ActionIdle, animation.StyleSubtle), 300*time.Millisecond, true)
	b.log.Debug().Msg("presence started")
	return nil
}

// StopPresence halts the idle loops and returns the tracked nodes to rest
func (b *Body) StopPresence() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.running = false
	b.blink.Stop()
	b.root.reset()
	b.spine.reset()
	b.head.reset()
	b.log.Debug().Msg("presence stopped")
}

func (b *Body) startLoopsLocked() {
	if b.presence.Blinking {
		b.blink.SetDistribution(b.blinkDistribution())
		b.blink.Start()
	}
}

// PresenceRunning reports whether the idle loops are on
func (b *Body) PresenceRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// PresenceConfig returns the current presence settings
func (b *Body) PresenceConfig() PresenceConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presence
}

// SetPresenceConfig applies a partial update and restarts running loops
func (b *Body) SetPresenceConfig(p PresencePatch) PresenceConfig {
	b.mu.Lock()
	b.presence = p.Apply(b.presence)
	cfg := b.presence
	if b.running {
		b.blink.Stop()
		b.startLoopsLocked()
	}
	b.mu.Unlock()

	b.bus.Publish(bus.Event{Type: bus.EventBodyPresenceChanged, Data: map[string]any{"presence": cfg}})
	b.log.Info().
		Bool("breathing", cfg.Breathing).
		Bool("blinking", cfg.Blinking).
		Bool("gaze", cfg.Gaze).
		Bool("micro", cfg.MicroMovement).
		Dur("blink_interval", cfg.BlinkInterval).
		Msg("presence updated")
	return cfg
}

// LookAt turns the actor to face target. With smooth the turn is eased
// over the following ticks, otherwise it snaps.
func (b *Body) LookAt(target mgl32.Vec3, smooth bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir := target.Sub(b.root.node.Position())
	if dir[0] == 0 && dir[2] == 0 {
		return
	}
	yaw := float32(math.Atan2(float64(dir[0]), float64(dir[2])))
	b.gazeTgt = mgl32.QuatRotate(yaw, mgl32.Vec3{0, 1, 0})
	b.gazeSet = true
	b.smooth = smooth
	if !smooth {
		b.gazeCur = b.gazeTgt
	}
}

// Update advances the body by one render tick
func (b *Body) Update(dt time.Duration) {
	seconds := float32(dt.Seconds())

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.elapsed += seconds
	cfg := b.presence
	running := b.running
	t := b.elapsed

	// gaze only steers the root while presence runs with gaze on; turning
	// it off puts the root back at rest and the next turn starts from there
	wasOn := b.gazeOn
	b.gazeOn = running && cfg.Gaze && b.gazeSet
	if b.gazeOn {
		if b.smooth {
			k := 1 - float32(math.Exp(-gazeSmoothing*float64(seconds)))
			b.gazeCur = mgl32.QuatSlerp(b.gazeCur, b.gazeTgt, k).Normalize()
		} else {
			b.gazeCur = b.gazeTgt
		}
	} else if wasOn {
		b.gazeCur = mgl32.QuatIdent()
	}
	gaze, gazeOn := b.gazeCur, b.gazeOn
	b.mu.Unlock()

	// presence writes offsets on top of the animated pose, so the tracked
	// nodes start every tick from rest
	b.spine.reset()
	b.head.reset()

	b.animator.Update(seconds)

	if running {
		if cfg.Breathing && b.spine != nil {
			n := b.spine.node
			n.SetPosition(n.Position().Add(breathOffset(t, cfg.BreathingIntensity)))
		}
		if cfg.MicroMovement && b.head != nil {
			n := b.head.node
			n.SetRotation(n.Rotation().Mul(headSway(t, b.sway)).Normalize())
		}
	}
	switch {
	case gazeOn:
		b.root.node.SetRotation(b.root.rot.Mul(gaze).Normalize())
	case wasOn:
		b.root.reset()
	}

	b.expr.Update(b.actor)
}

// Close stops everything and detaches the actor's mixer. In-flight
// responses finish first.
func (b *Body) Close() {
	b.sem <- struct{}{}
	defer func() { <-b.sem }()

	b.StopPresence()
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.animator.Detach(b.actor)
}

func (b *Body) clip(a animation.Action, s animation.Style) *animation.Clip {
	return b.clips[clipKey{a, s}]
}
