package animation

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/normanking/cortexguide/internal/scene"
)

// Action is one entry of the procedural motion vocabulary
type Action string

const (
	ActionIdle  Action = "idle"
	ActionWalk  Action = "walk"
	ActionWave  Action = "wave"
	ActionNod   Action = "nod"
	ActionTurn  Action = "turn"
	ActionTilt  Action = "tilt"
	ActionShake Action = "shake"
)

// Style scales an action's amplitude and frequency
type Style string

const (
	StyleSubtle      Style = "subtle"
	StyleNormal      Style = "normal"
	StyleExaggerated Style = "exaggerated"
)

func (s Style) factors() (amplitude, frequency float64) {
	switch s {
	case StyleSubtle:
		return 0.5, 0.8
	case StyleExaggerated:
		return 1.6, 1.25
	default:
		return 1, 1
	}
}

// DefaultSteps is the number of sample intervals per clip
const DefaultSteps = 30

// Config selects what GenerateAnimation builds
type Config struct {
	Action Action
	Style  Style
	Steps  int
}

// pose is a per-node offset produced by an action function
type pose struct {
	pos mgl32.Vec3
	rot mgl32.Vec3 // euler radians, XYZ
}

type actionSpec struct {
	duration time.Duration
	loop     bool
	nodes    []string
	// fn evaluates every node at normalized time u in [0,1]
	fn func(u, amp, freq float64) map[string]pose
}

var actions = map[Action]actionSpec{
	ActionIdle: {
		duration: 4 * time.Second,
		loop:     true,
		nodes:    []string{scene.NodeSpine, scene.NodeHead},
		fn: func(u, amp, _ float64) map[string]pose {
			p := 2 * math.Pi * u
			return map[string]pose{
				scene.NodeSpine: {rot: euler(0.015*amp*math.Sin(p), 0, 0)},
				scene.NodeHead:  {rot: euler(0.01*amp*math.Sin(2*p), 0.03*amp*math.Sin(p), 0)},
			}
		},
	},
	ActionWalk: {
		duration: 1200 * time.Millisecond,
		loop:     true,
		nodes:    []string{scene.NodeHips, scene.NodeRightArm},
		fn: func(u, amp, freq float64) map[string]pose {
			cycles := math.Max(1, math.Round(freq))
			p := 2 * math.Pi * u * cycles
			return map[string]pose{
				scene.NodeHips: {
					pos: mgl32.Vec3{0, float32(0.03 * amp * math.Abs(math.Sin(p))), 0},
					rot: euler(0, 0.06*amp*math.Sin(p), 0),
				},
				scene.NodeRightArm: {rot: euler(0.4*amp*math.Sin(p), 0, 0)},
			}
		},
	},
	ActionWave: {
		duration: 2 * time.Second,
		nodes:    []string{scene.NodeRightArm, scene.NodeRightForearm},
		fn: func(u, amp, freq float64) map[string]pose {
			lift := plateau(u, 0.2)
			swing := math.Sin(2*math.Pi*3*freq*u) * lift
			return map[string]pose{
				scene.NodeRightArm:     {rot: euler(0, 0, 1.2*amp*lift)},
				scene.NodeRightForearm: {rot: euler(0, 0, 0.35*amp*swing)},
			}
		},
	},
	ActionNod: {
		duration: time.Second,
		nodes:    []string{scene.NodeHead},
		fn: func(u, amp, freq float64) map[string]pose {
			pitch := 0.25 * amp * math.Sin(2*math.Pi*2*freq*u) * math.Sin(math.Pi*u)
			return map[string]pose{scene.NodeHead: {rot: euler(math.Abs(pitch), 0, 0)}}
		},
	},
	ActionShake: {
		duration: 1200 * time.Millisecond,
		nodes:    []string{scene.NodeHead},
		fn: func(u, amp, freq float64) map[string]pose {
			yaw := 0.3 * amp * math.Sin(2*math.Pi*3*freq*u) * math.Sin(math.Pi*u)
			return map[string]pose{scene.NodeHead: {rot: euler(0, yaw, 0)}}
		},
	},
	ActionTurn: {
		duration: 2 * time.Second,
		nodes:    []string{scene.NodeChest, scene.NodeHead},
		fn: func(u, amp, _ float64) map[string]pose {
			look := plateau(u, 0.3)
			return map[string]pose{
				scene.NodeChest: {rot: euler(0, 0.35*amp*look, 0)},
				scene.NodeHead:  {rot: euler(0, 0.25*amp*look, 0)},
			}
		},
	},
	ActionTilt: {
		duration: 1500 * time.Millisecond,
		nodes:    []string{scene.NodeHead, scene.NodeNeck},
		fn: func(u, amp, _ float64) map[string]pose {
			tilt := plateau(u, 0.35)
			return map[string]pose{
				scene.NodeHead: {rot: euler(0, 0, 0.22*amp*tilt)},
				scene.NodeNeck: {rot: euler(0.05*amp*tilt, 0, 0)},
			}
		},
	},
}

// Actions lists the supported vocabulary
func Actions() []Action {
	return []Action{ActionIdle, ActionWalk, ActionWave, ActionNod, ActionTurn, ActionTilt, ActionShake}
}

// Duration returns an action's fixed clip length
func Duration(a Action) time.Duration {
	return actions[a].duration
}

// GenerateAnimation samples the action's function at a fixed step count
// and assembles the keyframes into a clip.
func GenerateAnimation(cfg Config) (*Clip, error) {
	spec, ok := actions[cfg.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", cfg.Action)
	}
	if cfg.Style == "" {
		cfg.Style = StyleNormal
	}
	steps := cfg.Steps
	if steps <= 0 {
		steps = DefaultSteps
	}
	amp, freq := cfg.Style.factors()

	clip := &Clip{
		Name:     fmt.Sprintf("%s_%s", cfg.Action, cfg.Style),
		Action:   cfg.Action,
		Style:    cfg.Style,
		Duration: spec.duration,
		Loop:     spec.loop,
		Tracks:   make([]Track, len(spec.nodes)),
	}
	for i, n := range spec.nodes {
		clip.Tracks[i] = Track{Node: n, Keyframes: make([]Keyframe, 0, steps+1)}
	}

	seconds := float32(spec.duration.Seconds())
	for step := 0; step <= steps; step++ {
		u := float64(step) / float64(steps)
		poses := spec.fn(u, amp, freq)
		for i := range clip.Tracks {
			p := poses[clip.Tracks[i].Node]
			clip.Tracks[i].Keyframes = append(clip.Tracks[i].Keyframes, Keyframe{
				Time:     float32(u) * seconds,
				Position: p.pos,
				Rotation: mgl32.AnglesToQuat(p.rot[0], p.rot[1], p.rot[2], mgl32.XYZ),
			})
		}
	}
	return clip, nil
}

// MustGenerate is GenerateAnimation for actions known at compile time
func MustGenerate(a Action, s Style) *Clip {
	clip, err := GenerateAnimation(Config{Action: a, Style: s})
	if err != nil {
		panic(err)
	}
	return clip
}

func euler(x, y, z float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(x), float32(y), float32(z)}
}

// plateau rises with an eased ramp over the first edge fraction, holds at 1,
// and falls back to 0 over the last edge fraction.
func plateau(u, edge float64) float64 {
	switch {
	case u <= 0 || u >= 1:
		return 0
	case u < edge:
		return easeInOut(u / edge)
	case u > 1-edge:
		return easeInOut((1 - u) / edge)
	default:
		return 1
	}
}

func easeInOut(t float64) float64 {
	return t * t * (3 - 2*t)
}
