// Package gaze keeps the guide looking at the visitor: every few seconds,
// at a randomized interval, the body is retargeted at the viewpoint.
package gaze

import (
	"math/rand"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexguide/internal/body"
	"github.com/normanking/cortexguide/internal/scene"
	"github.com/normanking/cortexguide/internal/schedule"
)

// Default retarget interval bounds
const (
	DefaultMinInterval = 2 * time.Second
	DefaultMaxInterval = 5 * time.Second
)

// Body is what the coordinator turns
type Body interface {
	LookAt(target mgl32.Vec3, smooth bool)
	PresenceConfig() body.PresenceConfig
}

// Option configures a Coordinator
type Option func(*Coordinator)

func WithClock(c clockwork.Clock) Option {
	return func(g *Coordinator) {
		if c != nil {
			g.clock = c
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Coordinator) { g.log = l }
}

// WithInterval sets the retarget bounds. Invalid bounds are ignored.
func WithInterval(min, max time.Duration) Option {
	return func(g *Coordinator) {
		if min > 0 && max >= min {
			g.dist = schedule.Uniform{Min: min, Max: max}
		}
	}
}

func WithRand(r *rand.Rand) Option {
	return func(g *Coordinator) { g.rng = r }
}

// Coordinator periodically points a body at a viewpoint
type Coordinator struct {
	body     Body
	viewport scene.Viewpoint
	clock    clockwork.Clock
	log      zerolog.Logger
	dist     schedule.Distribution
	rng      *rand.Rand
	timer    *schedule.Timer

	mu      sync.Mutex
	last    mgl32.Vec3
	retargs int
}

// New creates a stopped coordinator
func New(b Body, vp scene.Viewpoint, opts ...Option) *Coordinator {
	g := &Coordinator{
		body:     b,
		viewport: vp,
		clock:    clockwork.NewRealClock(),
		log:      zerolog.Nop(),
		dist:     schedule.Uniform{Min: DefaultMinInterval, Max: DefaultMaxInterval},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With().Str("component", "gaze").Logger()

	var topts []schedule.Option
	if g.rng != nil {
		topts = append(topts, schedule.WithRand(g.rng))
	}
	g.timer = schedule.NewTimer(g.clock, g.dist, g.Retarget, topts...)
	return g
}

// Start looks at the viewpoint right away and keeps retargeting
func (g *Coordinator) Start() {
	if g.timer.Running() {
		return
	}
	g.Retarget()
	g.timer.Start()
}

// Stop halts retargeting. The body keeps its last heading.
func (g *Coordinator) Stop() {
	g.timer.Stop()
}

func (g *Coordinator) Running() bool {
	return g.timer.Running()
}

// NextRetarget reports when the next retarget is due
func (g *Coordinator) NextRetarget() time.Time {
	return g.timer.NextFire()
}

// Retarget reads the viewpoint and turns the body toward it smoothly.
// It does nothing while gaze is disabled in the body's presence config.
func (g *Coordinator) Retarget() {
	if !g.body.PresenceConfig().Gaze {
		return
	}
	target := g.viewport.Position()
	g.body.LookAt(target, true)

	g.mu.Lock()
	g.last = target
	g.retargs++
	g.mu.Unlock()
	g.log.Debug().Floats32("target", target[:]).Msg("retarget")
}

// Last returns the most recent target and how many retargets happened
func (g *Coordinator) Last() (mgl32.Vec3, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.retargs
}
