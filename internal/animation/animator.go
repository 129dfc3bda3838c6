package animation

import (
	"sync"
	"time"

	"github.com/normanking/cortexguide/internal/scene"
)

// Animator owns one mixer per actor, keyed by actor ID
type Animator struct {
	mu     sync.Mutex
	mixers map[string]*Mixer
}

func NewAnimator() *Animator {
	return &Animator{mixers: make(map[string]*Mixer)}
}

// Mixer returns the actor's mixer, attaching one on first use
func (a *Animator) Mixer(actor scene.Actor) *Mixer {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.mixers[actor.ID()]
	if !ok {
		m = newMixer(actor)
		a.mixers[actor.ID()] = m
	}
	return m
}

// Play replaces the actor's current clip
func (a *Animator) Play(actor scene.Actor, clip *Clip, loop bool) {
	a.Mixer(actor).Play(clip, loop)
}

// Blend crossfades between two clips on the same actor
func (a *Animator) Blend(actor scene.Actor, from, to *Clip, duration time.Duration, loop bool) {
	a.Mixer(actor).Blend(from, to, duration, loop)
}

// CrossFade fades from whatever the actor is playing to clip
func (a *Animator) CrossFade(actor scene.Actor, clip *Clip, duration time.Duration, loop bool) {
	a.Mixer(actor).CrossFade(clip, duration, loop)
}

// Detach stops and forgets the actor's mixer
func (a *Animator) Detach(actor scene.Actor) {
	a.mu.Lock()
	m, ok := a.mixers[actor.ID()]
	delete(a.mixers, actor.ID())
	a.mu.Unlock()
	if ok {
		m.Stop()
	}
}

// Update advances every attached mixer by dt seconds
func (a *Animator) Update(dt float32) {
	a.mu.Lock()
	mixers := make([]*Mixer, 0, len(a.mixers))
	for _, m := range a.mixers {
		mixers = append(mixers, m)
	}
	a.mu.Unlock()

	for _, m := range mixers {
		m.Update(dt)
	}
}

// Len reports how many actors have a mixer attached
func (a *Animator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.mixers)
}
