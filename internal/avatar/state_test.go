package avatar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEmotion(t *testing.T) {
	cases := map[string]Emotion{
		"happy":      EmotionHappy,
		"  HAPPY ":   EmotionHappy,
		"feliz":      EmotionHappy,
		"wise":       EmotionContemplative,
		"pensativo":  EmotionContemplative,
		"angry":      EmotionSerious,
		"":           EmotionNeutral,
		"bewildered": EmotionNeutral,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseEmotion(in), "input %q", in)
	}
}

func TestParseGesture(t *testing.T) {
	assert.Equal(t, GestureNod, ParseGesture("nod"))
	assert.Equal(t, GestureShake, ParseGesture("Shake"))
	assert.Equal(t, GestureWave, ParseGesture("saludar"))
	assert.Equal(t, GestureIdle, ParseGesture("juggle"))
}

func TestNewResponse_ClampsIntensity(t *testing.T) {
	r := NewResponse("hola", EmotionHappy, GestureWave, 1.7, time.Second)
	assert.Equal(t, float32(1), r.Intensity)
	assert.True(t, r.ShouldSpeak)

	r = NewResponse("", "", "", -3, 0)
	assert.Equal(t, float32(0), r.Intensity)
	assert.Equal(t, EmotionNeutral, r.Emotion)
	assert.Equal(t, GestureIdle, r.Gesture)
	assert.False(t, r.ShouldSpeak)
	assert.True(t, r.Valid())
}

func TestResponse_Valid(t *testing.T) {
	assert.False(t, Response{Emotion: "giddy", Gesture: GestureNod}.Valid())
	assert.False(t, Response{Emotion: EmotionHappy, Gesture: "juggle"}.Valid())
	assert.True(t, Response{Emotion: EmotionHappy, Gesture: GestureNod}.Valid())
}
