package persona

import "time"

// Bounds and defaults of the emotional state
const (
	MoodMin, MoodMax             = -100.0, 100.0
	EnergyFloor, EnergyMax       = 30.0, 100.0
	EngagementMin, EngagementMax = 0.0, 100.0

	DefaultMood       = 0.0
	DefaultEnergy     = 70.0
	DefaultEngagement = 50.0
)

// EmotionalState is the guide's mood toward the current visitor.
// It is owned by a single brain and never persisted.
type EmotionalState struct {
	Mood       float64   `json:"mood"`
	Energy     float64   `json:"energy"`
	Engagement float64   `json:"engagement"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// NewEmotionalState returns the neutral defaults stamped at now
func NewEmotionalState(now time.Time) EmotionalState {
	return EmotionalState{
		Mood:       DefaultMood,
		Energy:     DefaultEnergy,
		Engagement: DefaultEngagement,
		LastUpdate: now,
	}
}

// AdjustMood adds delta and clamps
func (s *EmotionalState) AdjustMood(delta float64) {
	s.Mood = clampFloat(s.Mood+delta, MoodMin, MoodMax)
}

// RaiseEngagement adds a non-negative step and clamps.
// Engagement never drops during a conversation.
func (s *EmotionalState) RaiseEngagement(step float64) {
	if step < 0 {
		return
	}
	s.Engagement = clampFloat(s.Engagement+step, EngagementMin, EngagementMax)
}

// DrainEnergy removes a non-negative step, never going below the floor.
// A state that starts below the floor is lifted to it.
func (s *EmotionalState) DrainEnergy(step float64) {
	if step < 0 {
		step = 0
	}
	s.Energy = clampFloat(s.Energy-step, EnergyFloor, EnergyMax)
}

// Decay pulls mood toward zero by factor when more than idle has passed
// since the last update. It reports whether decay applied.
func (s *EmotionalState) Decay(now time.Time, idle time.Duration, factor float64) bool {
	if s.LastUpdate.IsZero() || now.Sub(s.LastUpdate) <= idle {
		return false
	}
	s.Mood *= factor
	return true
}

// MoodLabel describes the mood for prompts and logs
func (s EmotionalState) MoodLabel() string {
	switch {
	case s.Mood <= -50:
		return "molesto"
	case s.Mood < -10:
		return "incómodo"
	case s.Mood >= 50:
		return "muy animado"
	case s.Mood > 10:
		return "contento"
	default:
		return "sereno"
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
