package body

import (
	"encoding/json"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// PresenceConfig toggles the always-on idle motion
type PresenceConfig struct {
	Breathing          bool          `json:"breathing"`
	Blinking           bool          `json:"blinking"`
	Gaze               bool          `json:"gaze"`
	MicroMovement      bool          `json:"microMovement"`
	BreathingIntensity float32       `json:"breathingIntensity"`
	BlinkInterval      time.Duration `json:"-"`
}

// DefaultPresence has every loop on
func DefaultPresence() PresenceConfig {
	return PresenceConfig{
		Breathing:          true,
		Blinking:           true,
		Gaze:               true,
		MicroMovement:      true,
		BreathingIntensity: 0.03,
		BlinkInterval:      4 * time.Second,
	}
}

func (c PresenceConfig) MarshalJSON() ([]byte, error) {
	type plain PresenceConfig
	return json.Marshal(struct {
		plain
		BlinkIntervalMs int64 `json:"blinkIntervalMs"`
	}{plain(c), c.BlinkInterval.Milliseconds()})
}

// PresencePatch is a partial update. Nil fields are left alone.
type PresencePatch struct {
	Breathing          *bool    `json:"breathing,omitempty"`
	Blinking           *bool    `json:"blinking,omitempty"`
	Gaze               *bool    `json:"gaze,omitempty"`
	MicroMovement      *bool    `json:"microMovement,omitempty"`
	BreathingIntensity *float32 `json:"breathingIntensity,omitempty"`
	BlinkIntervalMs    *int64   `json:"blinkIntervalMs,omitempty"`
}

// Apply returns c with the patch's set fields replaced
func (p PresencePatch) Apply(c PresenceConfig) PresenceConfig {
	if p.Breathing != nil {
		c.Breathing = *p.Breathing
	}
	if p.Blinking != nil {
		c.Blinking = *p.Blinking
	}
	if p.Gaze != nil {
		c.Gaze = *p.Gaze
	}
	if p.MicroMovement != nil {
		c.MicroMovement = *p.MicroMovement
	}
	if p.BreathingIntensity != nil && *p.BreathingIntensity >= 0 {
		c.BreathingIntensity = *p.BreathingIntensity
	}
	if p.BlinkIntervalMs != nil && *p.BlinkIntervalMs > 0 {
		c.BlinkInterval = time.Duration(*p.BlinkIntervalMs) * time.Millisecond
	}
	return c
}

// Full returns a patch that sets every field from c
func Full(c PresenceConfig) PresencePatch {
	ms := c.BlinkInterval.Milliseconds()
	return PresencePatch{
		Breathing:          &c.Breathing,
		Blinking:           &c.Blinking,
		Gaze:               &c.Gaze,
		MicroMovement:      &c.MicroMovement,
		BreathingIntensity: &c.BreathingIntensity,
		BlinkIntervalMs:    &ms,
	}
}

const (
	breathingRate = 0.2 // Hz

	headSwayRate      = 0.1
	headSwayAmplitude = 0.04 // radians
)

// breathOffset is the torso's vertical offset at time t
func breathOffset(t, intensity float32) mgl32.Vec3 {
	phase := float64(t * breathingRate * 2 * math.Pi)
	return mgl32.Vec3{0, float32(math.Sin(phase)) * intensity, 0}
}

// layeredSine is cheap smooth noise in [-1,1]
func layeredSine(t, offset float32) float32 {
	t += offset
	n1 := math.Sin(float64(t))
	n2 := math.Sin(float64(t*2.3+1.7)) * 0.5
	n3 := math.Sin(float64(t*4.1+3.2)) * 0.25
	return float32((n1 + n2 + n3) / 1.75)
}

// headSway is a low-amplitude multi-axis rotation at time t
func headSway(t float32, offsets [3]float32) mgl32.Quat {
	x := layeredSine(t*headSwayRate*2*math.Pi, offsets[0]) * headSwayAmplitude * 0.6
	y := layeredSine(t*headSwayRate*0.8*2*math.Pi, offsets[1]) * headSwayAmplitude
	z := layeredSine(t*headSwayRate*0.6*2*math.Pi, offsets[2]) * headSwayAmplitude * 0.4
	return mgl32.AnglesToQuat(x, y, z, mgl32.XYZ)
}
