// Package scene defines the handles the guide mutates inside a rendered scene:
// actor nodes with transforms and blend-weight slots, and viewpoints to look at.
// The renderer owns these objects; the guide never creates or destroys them in a
// real scene, it only writes transforms and weights.
package scene

import (
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is a transform in the actor hierarchy
type Node interface {
	Name() string

	Position() mgl32.Vec3
	SetPosition(p mgl32.Vec3)

	Rotation() mgl32.Quat
	SetRotation(q mgl32.Quat)

	Scale() mgl32.Vec3
	SetScale(s mgl32.Vec3)

	Children() []Node

	// Find returns the first node in this subtree whose name matches,
	// or nil when there is none.
	Find(name string) Node
}

// Actor is an animatable character handle
type Actor interface {
	ID() string
	Root() Node

	// MorphTargets lists the blend-weight slot names the actor exposes
	MorphTargets() []string

	// SetMorphWeight writes a blend weight; false when the slot does not exist
	SetMorphWeight(name string, weight float32) bool
	MorphWeight(name string) (float32, bool)
}

// TransformNode is an in-memory Node safe for concurrent use
type TransformNode struct {
	mu sync.RWMutex

	name     string
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	children []Node
}

// NewTransformNode creates a node at the origin with identity rotation and unit scale
func NewTransformNode(name string) *TransformNode {
	return &TransformNode{
		name:     name,
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (n *TransformNode) Name() string {
	return n.name
}

func (n *TransformNode) Position() mgl32.Vec3 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.position
}

func (n *TransformNode) SetPosition(p mgl32.Vec3) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.position = p
}

func (n *TransformNode) Rotation() mgl32.Quat {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.rotation
}

func (n *TransformNode) SetRotation(q mgl32.Quat) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rotation = q
}

func (n *TransformNode) Scale() mgl32.Vec3 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.scale
}

func (n *TransformNode) SetScale(s mgl32.Vec3) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scale = s
}

// AddChild appends child and returns it for chaining
func (n *TransformNode) AddChild(child Node) Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.children = append(n.children, child)
	return child
}

func (n *TransformNode) Children() []Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Node, len(n.children))
	copy(out, n.children)
	return out
}

// Find searches depth-first. Names compare case-insensitively, and a
// namespaced node such as "mixamorig:Head" matches "head".
func (n *TransformNode) Find(name string) Node {
	if nameMatches(n.name, name) {
		return n
	}
	for _, c := range n.Children() {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

func nameMatches(nodeName, want string) bool {
	if strings.EqualFold(nodeName, want) {
		return true
	}
	if i := strings.LastIndex(nodeName, ":"); i >= 0 {
		return strings.EqualFold(nodeName[i+1:], want)
	}
	return false
}

// Walk visits every node in the subtree rooted at n, parents first
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
