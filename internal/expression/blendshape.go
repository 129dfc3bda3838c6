// Package expression maps emotions to facial blend weights and drives timed
// crossfades and blinks on an actor's morph slots.
package expression

// Shape indexes one ARKit-style facial blend shape
type Shape int

const (
	BrowDownLeft Shape = iota
	BrowDownRight
	BrowInnerUp
	BrowOuterUpLeft
	BrowOuterUpRight
	CheekPuff
	CheekSquintLeft
	CheekSquintRight
	EyeBlinkLeft
	EyeBlinkRight
	EyeLookDownLeft
	EyeLookDownRight
	EyeLookInLeft
	EyeLookInRight
	EyeLookOutLeft
	EyeLookOutRight
	EyeLookUpLeft
	EyeLookUpRight
	EyeSquintLeft
	EyeSquintRight
	EyeWideLeft
	EyeWideRight
	JawForward
	JawLeft
	JawOpen
	JawRight
	MouthClose
	MouthDimpleLeft
	MouthDimpleRight
	MouthFrownLeft
	MouthFrownRight
	MouthFunnel
	MouthLeft
	MouthLowerDownLeft
	MouthLowerDownRight
	MouthPressLeft
	MouthPressRight
	MouthPucker
	MouthRight
	MouthRollLower
	MouthRollUpper
	MouthShrugLower
	MouthShrugUpper
	MouthSmileLeft
	MouthSmileRight
	MouthStretchLeft
	MouthStretchRight
	MouthUpperUpLeft
	MouthUpperUpRight
	NoseSneerLeft
	NoseSneerRight
	TongueOut
	ShapeCount
)

var shapeNames = [ShapeCount]string{
	"browDownLeft", "browDownRight", "browInnerUp", "browOuterUpLeft", "browOuterUpRight",
	"cheekPuff", "cheekSquintLeft", "cheekSquintRight",
	"eyeBlinkLeft", "eyeBlinkRight",
	"eyeLookDownLeft", "eyeLookDownRight", "eyeLookInLeft", "eyeLookInRight",
	"eyeLookOutLeft", "eyeLookOutRight", "eyeLookUpLeft", "eyeLookUpRight",
	"eyeSquintLeft", "eyeSquintRight", "eyeWideLeft", "eyeWideRight",
	"jawForward", "jawLeft", "jawOpen", "jawRight",
	"mouthClose", "mouthDimpleLeft", "mouthDimpleRight", "mouthFrownLeft", "mouthFrownRight",
	"mouthFunnel", "mouthLeft", "mouthLowerDownLeft", "mouthLowerDownRight",
	"mouthPressLeft", "mouthPressRight", "mouthPucker", "mouthRight",
	"mouthRollLower", "mouthRollUpper", "mouthShrugLower", "mouthShrugUpper",
	"mouthSmileLeft", "mouthSmileRight", "mouthStretchLeft", "mouthStretchRight",
	"mouthUpperUpLeft", "mouthUpperUpRight", "noseSneerLeft", "noseSneerRight",
	"tongueOut",
}

func (s Shape) String() string {
	if s < 0 || s >= ShapeCount {
		return ""
	}
	return shapeNames[s]
}

// ShapeNames returns every blend shape name in index order
func ShapeNames() []string {
	out := make([]string, ShapeCount)
	copy(out, shapeNames[:])
	return out
}

// ShapeFromName returns the index for a morph name, or -1
func ShapeFromName(name string) Shape {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i)
		}
	}
	return -1
}

// Weights holds one value in [0,1] per blend shape
type Weights [ShapeCount]float32

func (w *Weights) Set(s Shape, value float32) {
	w[s] = clamp(value, 0, 1)
}

func (w Weights) Get(s Shape) float32 {
	return w[s]
}

// Lerp interpolates per shape toward target
func (w Weights) Lerp(target Weights, t float32) Weights {
	if t <= 0 {
		return w
	}
	if t >= 1 {
		return target
	}
	var out Weights
	for i := range w {
		out[i] = w[i] + (target[i]-w[i])*t
	}
	return out
}

// Scale multiplies each weight, clamped to [0,1]
func (w Weights) Scale(factor float32) Weights {
	var out Weights
	for i := range w {
		out[i] = clamp(w[i]*factor, 0, 1)
	}
	return out
}

// Map returns the non-zero weights keyed by shape name
func (w Weights) Map() map[string]float32 {
	out := make(map[string]float32)
	for i, v := range w {
		if v != 0 {
			out[shapeNames[i]] = v
		}
	}
	return out
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
