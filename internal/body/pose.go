package body

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/normanking/cortexguide/internal/scene"
)

// NodePose is one node's local transform
type NodePose struct {
	Position mgl32.Vec3 `json:"position"`
	Rotation [4]float32 `json:"rotation"` // x, y, z, w
	Scale    mgl32.Vec3 `json:"scale"`
}

// Pose is the full state a renderer needs to draw the actor
type Pose struct {
	Actor  string              `json:"actor"`
	Phase  Phase               `json:"phase"`
	Nodes  map[string]NodePose `json:"nodes"`
	Morphs map[string]float32  `json:"morphs"`
}

// Pose snapshots every node transform and non-zero morph weight
func (b *Body) Pose() Pose {
	p := Pose{
		Actor:  b.actor.ID(),
		Phase:  b.Phase(),
		Nodes:  make(map[string]NodePose),
		Morphs: make(map[string]float32),
	}
	scene.Walk(b.actor.Root(), func(n scene.Node) {
		q := n.Rotation()
		p.Nodes[n.Name()] = NodePose{
			Position: n.Position(),
			Rotation: [4]float32{q.V[0], q.V[1], q.V[2], q.W},
			Scale:    n.Scale(),
		}
	})
	for _, name := range b.actor.MorphTargets() {
		if w, ok := b.actor.MorphWeight(name); ok && w != 0 {
			p.Morphs[name] = w
		}
	}
	return p
}
