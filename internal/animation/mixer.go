package animation

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/normanking/cortexguide/internal/scene"
)

type restPose struct {
	node scene.Node
	pos  mgl32.Vec3
	rot  mgl32.Quat
}

type playback struct {
	clip *Clip
	time float32
	loop bool
}

func (p *playback) advance(dt float32) {
	p.time += dt
	length := p.clip.Seconds()
	if length <= 0 {
		p.time = 0
		return
	}
	if p.time >= length {
		if p.loop {
			for p.time >= length {
				p.time -= length
			}
		} else {
			p.time = length
		}
	}
}

func (p *playback) finished() bool {
	return !p.loop && p.time >= p.clip.Seconds()
}

// Mixer plays clips on a single actor. Tracks are written as offsets from
// the rest pose captured the first time each node is animated.
type Mixer struct {
	actor scene.Actor

	mu       sync.Mutex
	rest     map[string]*restPose
	current  *playback
	previous *playback
	fade     float32
	fadeLen  float32
}

func newMixer(actor scene.Actor) *Mixer {
	return &Mixer{actor: actor, rest: make(map[string]*restPose)}
}

// Play replaces whatever is playing
func (m *Mixer) Play(clip *Clip, loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoreUnused(clip, nil)
	m.current = &playback{clip: clip, loop: loop}
	m.previous = nil
	m.fade, m.fadeLen = 0, 0
}

// CrossFade fades from the current clip to clip over duration
func (m *Mixer) CrossFade(clip *Clip, duration time.Duration, loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crossFadeLocked(m.current, &playback{clip: clip, loop: loop}, duration)
}

// Blend fades from one clip to another. from starts at its beginning.
func (m *Mixer) Blend(from, to *Clip, duration time.Duration, loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crossFadeLocked(&playback{clip: from, loop: from.Loop}, &playback{clip: to, loop: loop}, duration)
}

func (m *Mixer) crossFadeLocked(from, to *playback, duration time.Duration) {
	if from == nil || duration <= 0 {
		var prevClip *Clip
		if from != nil {
			prevClip = from.clip
		}
		m.restoreUnused(to.clip, prevClip)
		m.current, m.previous = to, nil
		m.fade, m.fadeLen = 0, 0
		return
	}
	m.restoreUnused(to.clip, from.clip)
	m.previous, m.current = from, to
	m.fade, m.fadeLen = 0, float32(duration.Seconds())
}

// Stop halts playback and puts animated nodes back at rest
func (m *Mixer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rest {
		r.node.SetPosition(r.pos)
		r.node.SetRotation(r.rot)
	}
	m.current, m.previous = nil, nil
}

// Clip returns the clip currently playing, nil when stopped
func (m *Mixer) Clip() *Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.clip
}

// Finished reports whether a one-shot clip has reached its end
func (m *Mixer) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == nil || m.current.finished()
}

// Update advances playback by dt seconds and writes node transforms
func (m *Mixer) Update(dt float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return
	}
	m.current.advance(dt)

	weight := float32(1)
	if m.previous != nil {
		m.previous.advance(dt)
		m.fade += dt
		if m.fade >= m.fadeLen {
			m.previous = nil
		} else {
			weight = m.fade / m.fadeLen
		}
	}

	for _, name := range m.animatedNodes() {
		r := m.restFor(name)
		if r == nil {
			continue
		}
		pos, rot, _ := m.current.clip.Sample(name, m.current.time)
		if m.previous != nil {
			prevPos, prevRot, _ := m.previous.clip.Sample(name, m.previous.time)
			pos = prevPos.Add(pos.Sub(prevPos).Mul(weight))
			rot = mgl32.QuatSlerp(prevRot, rot, weight)
		}
		r.node.SetPosition(r.pos.Add(pos))
		r.node.SetRotation(r.rot.Mul(rot).Normalize())
	}
}

func (m *Mixer) animatedNodes() []string {
	names := m.current.clip.Nodes()
	if m.previous == nil {
		return names
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range m.previous.clip.Nodes() {
		if !seen[n] {
			names = append(names, n)
		}
	}
	return names
}

func (m *Mixer) restFor(name string) *restPose {
	if r, ok := m.rest[name]; ok {
		return r
	}
	node := m.actor.Root().Find(name)
	if node == nil {
		return nil
	}
	r := &restPose{node: node, pos: node.Position(), rot: node.Rotation()}
	m.rest[name] = r
	return r
}

// restoreUnused resets nodes the outgoing clips animated that next does not,
// so a replaced clip never leaves a node frozen mid-motion.
func (m *Mixer) restoreUnused(next, keep *Clip) {
	if m.current == nil && m.previous == nil {
		return
	}
	used := make(map[string]bool)
	for _, n := range next.Nodes() {
		used[n] = true
	}
	if keep != nil {
		for _, n := range keep.Nodes() {
			used[n] = true
		}
	}
	for name, r := range m.rest {
		if !used[name] {
			r.node.SetPosition(r.pos)
			r.node.SetRotation(r.rot)
		}
	}
}
