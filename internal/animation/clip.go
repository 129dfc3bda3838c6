// Package animation generates procedural motion clips from closed-form
// functions and plays them on actors through per-actor mixers.
package animation

import (
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Keyframe is a transform offset from a node's rest pose at Time seconds
type Keyframe struct {
	Time     float32
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// Track animates one named node
type Track struct {
	Node      string
	Keyframes []Keyframe
}

// Clip is a fixed-duration set of tracks
type Clip struct {
	Name     string
	Action   Action
	Style    Style
	Duration time.Duration
	Loop     bool
	Tracks   []Track
}

// Seconds returns the clip length in seconds
func (c *Clip) Seconds() float32 {
	return float32(c.Duration.Seconds())
}

func (c *Clip) track(node string) *Track {
	for i := range c.Tracks {
		if c.Tracks[i].Node == node {
			return &c.Tracks[i]
		}
	}
	return nil
}

// Nodes lists the node names the clip animates
func (c *Clip) Nodes() []string {
	out := make([]string, len(c.Tracks))
	for i, t := range c.Tracks {
		out[i] = t.Node
	}
	return out
}

// Sample returns the offset for node at t seconds, clamped to the clip.
// ok is false when the clip does not animate node.
func (c *Clip) Sample(node string, t float32) (pos mgl32.Vec3, rot mgl32.Quat, ok bool) {
	tr := c.track(node)
	if tr == nil || len(tr.Keyframes) == 0 {
		return mgl32.Vec3{}, mgl32.QuatIdent(), false
	}
	pos, rot = tr.sample(t)
	return pos, rot, true
}

func (tr *Track) sample(t float32) (mgl32.Vec3, mgl32.Quat) {
	kfs := tr.Keyframes
	if t <= kfs[0].Time {
		return kfs[0].Position, kfs[0].Rotation
	}
	last := kfs[len(kfs)-1]
	if t >= last.Time {
		return last.Position, last.Rotation
	}

	i := sort.Search(len(kfs), func(i int) bool { return kfs[i].Time > t })
	a, b := kfs[i-1], kfs[i]
	span := b.Time - a.Time
	if span <= 0 {
		return b.Position, b.Rotation
	}
	s := (t - a.Time) / span
	pos := a.Position.Add(b.Position.Sub(a.Position).Mul(s))
	return pos, mgl32.QuatSlerp(a.Rotation, b.Rotation, s)
}
