package gaze

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/normanking/cortexguide/internal/body"
	"github.com/normanking/cortexguide/internal/scene"
)

type fakeBody struct {
	mu      sync.Mutex
	cfg     body.PresenceConfig
	targets []mgl32.Vec3
	smooth  []bool
}

func newFakeBody() *fakeBody {
	return &fakeBody{cfg: body.DefaultPresence()}
}

func (b *fakeBody) LookAt(target mgl32.Vec3, smooth bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targets = append(b.targets, target)
	b.smooth = append(b.smooth, smooth)
}

func (b *fakeBody) PresenceConfig() body.PresenceConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

func (b *fakeBody) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.targets)
}

func TestRetargetsWithinBounds(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fb := newFakeBody()
	vp := scene.NewTrackedViewpoint(mgl32.Vec3{0, 1.6, 3})
	g := New(fb, vp, WithClock(fc), WithRand(rand.New(rand.NewSource(1))))

	g.Start()
	defer g.Stop()
	require.Equal(t, 1, fb.count())

	for i := 0; i < 5; i++ {
		wait := g.NextRetarget().Sub(fc.Now())
		assert.GreaterOrEqual(t, wait, DefaultMinInterval)
		assert.LessOrEqual(t, wait, DefaultMaxInterval)

		want := fb.count() + 1
		vp.Set(mgl32.Vec3{float32(i), 1.6, 3})
		fc.Advance(wait)
		require.Eventually(t, func() bool {
			return fb.count() == want && g.NextRetarget().After(fc.Now())
		}, time.Second, time.Millisecond)
	}

	last, n := g.Last()
	assert.Equal(t, 6, n)
	assert.Equal(t, mgl32.Vec3{4, 1.6, 3}, last)
	assert.True(t, fb.smooth[len(fb.smooth)-1])
}

func TestGazeDisabled(t *testing.T) {
	fb := newFakeBody()
	fb.cfg.Gaze = false
	g := New(fb, scene.StaticViewpoint{0, 1.6, 3}, WithClock(clockwork.NewFakeClock()))

	g.Retarget()
	assert.Zero(t, fb.count())
	_, n := g.Last()
	assert.Zero(t, n)
}

func TestWithInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()
	g := New(newFakeBody(), scene.StaticViewpoint{}, WithClock(fc), WithInterval(100*time.Millisecond, 200*time.Millisecond))
	g.Start()
	defer g.Stop()

	wait := g.NextRetarget().Sub(fc.Now())
	assert.GreaterOrEqual(t, wait, 100*time.Millisecond)
	assert.LessOrEqual(t, wait, 200*time.Millisecond)

	g.Stop()
	assert.False(t, g.Running())
	assert.True(t, g.NextRetarget().IsZero())
}

func TestDrivesRealBody(t *testing.T) {
	defer goleak.VerifyNone(t)

	actor := scene.NewHumanoid("guide", nil)
	b := body.New(actor, body.WithClock(clockwork.NewFakeClock()))
	g := New(b, scene.StaticViewpoint{5, 1.6, 0}, WithInterval(5*time.Millisecond, 10*time.Millisecond))

	require.NoError(t, b.StartPresence())
	g.Start()
	for i := 0; i < 400; i++ {
		b.Update(16 * time.Millisecond)
	}
	g.Stop()
	b.Close()

	facing := actor.Root().Rotation().Rotate(mgl32.Vec3{0, 0, 1})
	assert.InDelta(t, 1, facing.X(), 1e-2)
}
