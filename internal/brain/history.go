package brain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/normanking/cortexguide/internal/llm"
	"github.com/normanking/cortexguide/internal/persona"
)

// SummaryKeywords is how many keywords a compaction summary keeps
const SummaryKeywords = 5

// compact keeps the system turn plus the keepRecent newest turns once the
// log would leave no room for the next reply. It returns the new log and
// the turns it dropped.
func compact(history []llm.Message, limit, keepRecent int) (kept, evicted []llm.Message) {
	if len(history) <= limit-1 || len(history) <= keepRecent+1 {
		return history, nil
	}
	cut := len(history) - keepRecent
	evicted = append([]llm.Message(nil), history[1:cut]...)

	kept = make([]llm.Message, 0, keepRecent+1)
	kept = append(kept, history[0])
	kept = append(kept, history[cut:]...)
	return kept, evicted
}

// summarize derives a keyword summary from dropped turns. It is a lossy
// best-effort digest, not a semantic summary.
func summarize(turns []llm.Message) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.Content)
	}
	return strings.Join(persona.Keywords(strings.Join(parts, " "), SummaryKeywords), ", ")
}

// Thinking time pacing
const (
	ThinkingBase     = time.Second
	ThinkingPerRune  = 20 * time.Millisecond
	ThinkingMaxExtra = 2 * time.Second
	ThinkingMoodRate = 1.5
)

// thinkingTime grows with input length up to a cap and stretches when the
// guide is in a bad mood.
func thinkingTime(text string, mood float64) time.Duration {
	extra := time.Duration(utf8.RuneCountInString(text)) * ThinkingPerRune
	if extra > ThinkingMaxExtra {
		extra = ThinkingMaxExtra
	}
	d := ThinkingBase + extra
	if mood < 0 {
		d = time.Duration(float64(d) * ThinkingMoodRate)
	}
	return d
}
