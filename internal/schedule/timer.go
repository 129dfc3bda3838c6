// Package schedule runs callbacks at randomized intervals on an injectable clock.
package schedule

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Distribution picks the delay before the next firing
type Distribution interface {
	Next(r *rand.Rand) time.Duration
}

// Uniform draws uniformly from [Min, Max]
type Uniform struct {
	Min, Max time.Duration
}

func (u Uniform) Next(r *rand.Rand) time.Duration {
	if u.Max <= u.Min {
		return u.Min
	}
	return u.Min + time.Duration(r.Int63n(int64(u.Max-u.Min)+1))
}

// Jitter draws from Mean ± Spread*Mean
type Jitter struct {
	Mean   time.Duration
	Spread float64
}

func (j Jitter) Next(r *rand.Rand) time.Duration {
	if j.Spread <= 0 {
		return j.Mean
	}
	offset := (r.Float64()*2 - 1) * j.Spread * float64(j.Mean)
	d := j.Mean + time.Duration(offset)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// Timer calls fn repeatedly, drawing a fresh delay from its distribution
// after every firing. The next delay is drawn only once fn returns.
type Timer struct {
	clock clockwork.Clock
	fn    func()

	mu      sync.Mutex
	dist    Distribution
	rng     *rand.Rand
	timer   clockwork.Timer
	running bool
	gen     uint64
	next    time.Time
}

// Option configures a Timer
type Option func(*Timer)

// WithRand fixes the random source, mostly for tests
func WithRand(r *rand.Rand) Option {
	return func(t *Timer) { t.rng = r }
}

// NewTimer creates a stopped timer
func NewTimer(clock clockwork.Clock, dist Distribution, fn func(), opts ...Option) *Timer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	t := &Timer{
		clock: clock,
		fn:    fn,
		dist:  dist,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins scheduling. Starting a running timer does nothing.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.gen++
	t.scheduleLocked()
}

// Stop cancels the pending firing. A callback already executing finishes
// but is not rescheduled.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// SetDistribution swaps the distribution, rescheduling a running timer
func (t *Timer) SetDistribution(dist Distribution) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dist = dist
	if !t.running {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	t.scheduleLocked()
}

// Running reports whether the timer is scheduled
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// NextFire returns when the pending firing is due, zero when stopped
func (t *Timer) NextFire() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return time.Time{}
	}
	return t.next
}

func (t *Timer) scheduleLocked() {
	gen := t.gen
	delay := t.dist.Next(t.rng)
	t.next = t.clock.Now().Add(delay)
	t.timer = t.clock.AfterFunc(delay, func() { t.fire(gen) })
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if !t.running || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.fn()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running && gen == t.gen {
		t.scheduleLocked()
	}
}
