package body

import (
	"context"
	"time"

	"github.com/normanking/cortexguide/internal/animation"
	"github.com/normanking/cortexguide/internal/avatar"
	"github.com/normanking/cortexguide/internal/bus"
	"github.com/normanking/cortexguide/internal/expression"
)

// Phase is where the body is in playing a response
type Phase string

const (
	PhaseRest       Phase = "rest"
	PhaseThinking   Phase = "thinking"
	PhaseExpression Phase = "expression"
	PhaseGesture    Phase = "gesture"
	PhaseReturning  Phase = "returning"
)

// Timing of the response sequence
const (
	ClipFade       = 250 * time.Millisecond
	ReturnDelay    = 500 * time.Millisecond
	SubtleBelow    = float32(0.5)
	thinkingAction = animation.ActionTilt
)

// gestureActions maps a gesture tag onto the animation that performs it.
// Idle has no clip.
var gestureActions = map[avatar.Gesture]animation.Action{
	avatar.GestureNod:   animation.ActionNod,
	avatar.GestureShake: animation.ActionShake,
	avatar.GestureTilt:  animation.ActionTilt,
	avatar.GestureTurn:  animation.ActionTurn,
	avatar.GestureWave:  animation.ActionWave,
}

// GestureClip returns the clip a gesture plays at the given intensity, nil
// for idle.
func (b *Body) GestureClip(g avatar.Gesture, intensity float32) *animation.Clip {
	action, ok := gestureActions[g]
	if !ok {
		return nil
	}
	style := animation.StyleNormal
	if intensity < SubtleBelow {
		style = animation.StyleSubtle
	}
	return b.clip(action, style)
}

// Phase returns the current response phase
func (b *Body) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

func (b *Body) setPhase(p Phase, resp avatar.Response) {
	b.mu.Lock()
	b.phase = p
	b.mu.Unlock()

	b.log.Debug().Str("phase", string(p)).Msg("phase")
	b.bus.Publish(bus.Event{Type: bus.EventBodyPhase, Data: map[string]any{
		"phase":   string(p),
		"emotion": string(resp.Emotion),
		"gesture": string(resp.Gesture),
	}})
}

// ExecuteResponse plays resp as thinking, expression, gesture and return to
// idle, in that order, and returns when the sequence is done. Calls are
// served one at a time; ctx only bounds the wait for a turn, a started
// sequence always runs to completion.
func (b *Body) ExecuteResponse(ctx context.Context, resp avatar.Response) error {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-b.sem }()

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	start := b.clock.Now()

	// thinking
	b.setPhase(PhaseThinking, resp)
	b.animator.CrossFade(b.actor, b.clip(thinkingAction, animation.StyleSubtle), ClipFade, false)
	b.expr.SetEmotion(avatar.EmotionContemplative, expression.TransitionNormal)
	b.wait(resp.ThinkingTime)

	// expression
	b.setPhase(PhaseExpression, resp)
	b.expr.SetEmotion(resp.Emotion, expression.TransitionNormal)

	// gesture
	b.setPhase(PhaseGesture, resp)
	if clip := b.GestureClip(resp.Gesture, resp.Intensity); clip != nil {
		b.animator.CrossFade(b.actor, clip, ClipFade, false)
		b.wait(clip.Duration)
	}

	// return to idle
	b.setPhase(PhaseReturning, resp)
	b.animator.CrossFade(b.actor, b.clip(animation.ActionIdle, animation.StyleSubtle), ClipFade, true)
	b.wait(ReturnDelay)
	b.expr.SetEmotion(avatar.EmotionNeutral, expression.TransitionSlow)

	b.setPhase(PhaseRest, resp)
	b.log.Info().
		Str("emotion", string(resp.Emotion)).
		Str("gesture", string(resp.Gesture)).
		Dur("elapsed", b.clock.Since(start)).
		Msg("response executed")
	return nil
}

// wait blocks for d on the body's clock
func (b *Body) wait(d time.Duration) {
	if d <= 0 {
		return
	}
	<-b.clock.After(d)
}
