package persona

import (
	"time"

	"github.com/normanking/cortexguide/internal/avatar"
)

// MaxKeyTopics bounds Memory.KeyTopics
const MaxKeyTopics = 10

// Memory is what the guide remembers of the current conversation
type Memory struct {
	Summary          string      `json:"summary"`
	KeyTopics        []string    `json:"keyTopics"`
	UserTone         avatar.Tone `json:"userTone"`
	InteractionCount int         `json:"interactionCount"`
	LastInteraction  time.Time   `json:"lastInteraction"`
}

// NewMemory returns an empty memory with a neutral user tone
func NewMemory() Memory {
	return Memory{UserTone: avatar.ToneNeutral, KeyTopics: []string{}}
}

// AddTopics appends unseen topics, evicting the oldest past MaxKeyTopics
func (m *Memory) AddTopics(topics ...string) {
	for _, t := range topics {
		if t == "" || m.HasTopic(t) {
			continue
		}
		m.KeyTopics = append(m.KeyTopics, t)
		if len(m.KeyTopics) > MaxKeyTopics {
			m.KeyTopics = m.KeyTopics[len(m.KeyTopics)-MaxKeyTopics:]
		}
	}
}

func (m *Memory) HasTopic(topic string) bool {
	for _, t := range m.KeyTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// Clone returns a copy safe to hand out
func (m Memory) Clone() Memory {
	out := m
	out.KeyTopics = append([]string{}, m.KeyTopics...)
	return out
}
