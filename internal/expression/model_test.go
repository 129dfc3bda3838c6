package expression

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexguide/internal/avatar"
	"github.com/normanking/cortexguide/internal/scene"
)

func TestSetEmotion_ReachesTableExactly(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := NewModel(fc)
	actor := scene.NewHumanoid("guide", ShapeNames())

	require.True(t, m.SetEmotion(avatar.EmotionHappy, 500*time.Millisecond))

	for elapsed := time.Duration(0); elapsed < 500*time.Millisecond; elapsed += 16 * time.Millisecond {
		m.Update(actor)
		fc.Advance(16 * time.Millisecond)
	}
	got := m.Update(actor)

	assert.Equal(t, Table(avatar.EmotionHappy), got)
	assert.False(t, m.Transitioning())

	w, ok := actor.MorphWeight("mouthSmileLeft")
	require.True(t, ok)
	assert.Equal(t, float32(0.45), w)

	// same target again starts nothing
	assert.False(t, m.SetEmotion(avatar.EmotionHappy, 500*time.Millisecond))
	assert.False(t, m.Transitioning())
}

func TestSetEmotion_BlendsFromCurrentWeights(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := NewModel(fc)

	m.SetEmotion(avatar.EmotionHappy, time.Second)
	fc.Advance(500 * time.Millisecond)
	mid := m.Update(nil)

	smile := mid.Get(MouthSmileLeft)
	assert.Greater(t, smile, float32(0))
	assert.Less(t, smile, float32(0.45))

	// reversing starts from the half-blended pose, not from the happy table
	m.SetEmotion(avatar.EmotionNeutral, time.Second)
	target, source := m.Emotion()
	assert.Equal(t, avatar.EmotionNeutral, target)
	assert.Equal(t, avatar.EmotionHappy, source)

	next := m.Update(nil)
	assert.InDelta(t, smile, next.Get(MouthSmileLeft), 1e-6)

	fc.Advance(time.Second)
	assert.Equal(t, Weights{}, m.Update(nil))
}

func TestSetEmotion_ZeroDurationIsImmediate(t *testing.T) {
	m := NewModel(clockwork.NewFakeClock())
	m.SetEmotion(avatar.EmotionSerious, 0)
	assert.Equal(t, Table(avatar.EmotionSerious), m.Update(nil))
}

func TestSetEmotion_UnknownFallsBackToNeutral(t *testing.T) {
	m := NewModel(clockwork.NewFakeClock())
	assert.False(t, m.SetEmotion(avatar.Emotion("giddy"), time.Second))
}

func TestBlink_OverridesAndExpires(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := NewModel(fc)
	actor := scene.NewHumanoid("guide", ShapeNames())

	m.SetEmotion(avatar.EmotionSad, 0)
	m.Blink(actor, 150*time.Millisecond)

	w, _ := actor.MorphWeight("eyeBlinkRight")
	assert.Equal(t, float32(1), w)
	assert.True(t, m.Blinking())

	got := m.Update(actor)
	assert.Equal(t, float32(1), got.Get(EyeBlinkLeft))
	assert.Equal(t, Table(avatar.EmotionSad).Get(BrowInnerUp), got.Get(BrowInnerUp))

	fc.Advance(200 * time.Millisecond)
	got = m.Update(actor)
	assert.Equal(t, float32(0), got.Get(EyeBlinkLeft))
	assert.False(t, m.Blinking())
}

func TestTables_InRange(t *testing.T) {
	for _, e := range avatar.Emotions {
		for _, v := range Table(e) {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.LessOrEqual(t, v, float32(1))
		}
	}
	assert.Equal(t, Weights{}, Table(avatar.EmotionNeutral))
}

func TestWeightsGetOnValues(t *testing.T) {
	assert.Zero(t, Weights{}.Get(JawOpen))
	happy := Table(avatar.EmotionHappy)
	for s := Shape(0); s < ShapeCount; s++ {
		assert.Equal(t, happy[s], Table(avatar.EmotionHappy).Get(s))
	}
}

func TestShapeNames(t *testing.T) {
	assert.Len(t, ShapeNames(), int(ShapeCount))
	assert.Equal(t, JawOpen, ShapeFromName("jawOpen"))
	assert.Equal(t, Shape(-1), ShapeFromName("nope"))
	assert.Equal(t, "tongueOut", TongueOut.String())
}

func TestReset(t *testing.T) {
	m := NewModel(clockwork.NewFakeClock())
	m.SetEmotion(avatar.EmotionHappy, time.Second)
	m.Reset()
	target, _ := m.Emotion()
	assert.Equal(t, avatar.EmotionNeutral, target)
	assert.Equal(t, Weights{}, m.Update(nil))
}
