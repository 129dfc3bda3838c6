package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Viewpoint exposes a world-space position, usually the user's camera
type Viewpoint interface {
	Position() mgl32.Vec3
}

// StaticViewpoint never moves
type StaticViewpoint mgl32.Vec3

func (v StaticViewpoint) Position() mgl32.Vec3 {
	return mgl32.Vec3(v)
}

// TrackedViewpoint is pushed by the renderer whenever its camera moves
type TrackedViewpoint struct {
	mu  sync.RWMutex
	pos mgl32.Vec3
}

// NewTrackedViewpoint starts at the conversation camera position
func NewTrackedViewpoint(initial mgl32.Vec3) *TrackedViewpoint {
	return &TrackedViewpoint{pos: initial}
}

func (v *TrackedViewpoint) Set(p mgl32.Vec3) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pos = p
}

func (v *TrackedViewpoint) Position() mgl32.Vec3 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pos
}
