package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Node names used by the guide's body. Loaded models are matched by name,
// so any rig exposing these (case-insensitive) works.
const (
	NodeRoot          = "root"
	NodeHips          = "hips"
	NodeSpine         = "spine"
	NodeChest         = "chest"
	NodeNeck          = "neck"
	NodeHead          = "head"
	NodeRightShoulder = "rightShoulder"
	NodeRightArm      = "rightArm"
	NodeRightForearm  = "rightForearm"
)

// MemActor is an in-memory Actor
type MemActor struct {
	id   string
	root Node

	mu      sync.RWMutex
	names   []string
	weights map[string]float32
}

// NewActor wraps a node tree and a set of morph slot names
func NewActor(id string, root Node, morphNames []string) *MemActor {
	a := &MemActor{
		id:      id,
		root:    root,
		names:   make([]string, 0, len(morphNames)),
		weights: make(map[string]float32, len(morphNames)),
	}
	for _, name := range morphNames {
		if _, dup := a.weights[name]; dup {
			continue
		}
		a.names = append(a.names, name)
		a.weights[name] = 0
	}
	return a
}

func (a *MemActor) ID() string {
	return a.id
}

func (a *MemActor) Root() Node {
	return a.root
}

func (a *MemActor) MorphTargets() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

func (a *MemActor) SetMorphWeight(name string, weight float32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.weights[name]; !ok {
		return false
	}
	a.weights[name] = weight
	return true
}

func (a *MemActor) MorphWeight(name string) (float32, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	w, ok := a.weights[name]
	return w, ok
}

// MorphWeights returns a copy of every blend weight
func (a *MemActor) MorphWeights() map[string]float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]float32, len(a.weights))
	for k, v := range a.weights {
		out[k] = v
	}
	return out
}

// NewHumanoid builds the default upper-body rig the guide animates
// when no model file is configured.
func NewHumanoid(id string, morphNames []string) *MemActor {
	root := NewTransformNode(NodeRoot)

	hips := NewTransformNode(NodeHips)
	hips.SetPosition(mgl32.Vec3{0, 1.0, 0})
	root.AddChild(hips)

	spine := NewTransformNode(NodeSpine)
	spine.SetPosition(mgl32.Vec3{0, 0.1, 0})
	hips.AddChild(spine)

	chest := NewTransformNode(NodeChest)
	chest.SetPosition(mgl32.Vec3{0, 0.2, 0})
	spine.AddChild(chest)

	neck := NewTransformNode(NodeNeck)
	neck.SetPosition(mgl32.Vec3{0, 0.25, 0})
	chest.AddChild(neck)

	head := NewTransformNode(NodeHead)
	head.SetPosition(mgl32.Vec3{0, 0.1, 0})
	neck.AddChild(head)

	shoulder := NewTransformNode(NodeRightShoulder)
	shoulder.SetPosition(mgl32.Vec3{-0.15, 0.2, 0})
	chest.AddChild(shoulder)

	arm := NewTransformNode(NodeRightArm)
	arm.SetPosition(mgl32.Vec3{-0.1, 0, 0})
	shoulder.AddChild(arm)

	forearm := NewTransformNode(NodeRightForearm)
	forearm.SetPosition(mgl32.Vec3{-0.28, 0, 0})
	arm.AddChild(forearm)

	return NewActor(id, root, morphNames)
}
