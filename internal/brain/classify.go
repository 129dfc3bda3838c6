package brain

import (
	"regexp"
	"strings"

	"github.com/normanking/cortexguide/internal/avatar"
)

// Tag is what a classifier infers from unstructured reply text
type Tag struct {
	Emotion   avatar.Emotion
	Gesture   avatar.Gesture
	Intensity float32
}

// DefaultTag is returned when nothing matches
var DefaultTag = Tag{Emotion: avatar.EmotionNeutral, Gesture: avatar.GestureIdle, Intensity: 0.5}

// Classifier infers emotion and gesture from prose the language service
// returned without any structure.
type Classifier interface {
	Classify(text string) Tag
}

// ToneDetector decides the tone of a user message
type ToneDetector interface {
	DetectTone(text string) avatar.Tone
}

// rule is one keyword class. The first matching rule wins.
type rule struct {
	patterns []*regexp.Regexp
	tag      Tag
}

func (r rule) match(lower string) bool {
	for _, p := range r.patterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// words compiles a pattern matching any of the given words or phrases as
// whole words. Go's \b is ASCII only, so letters are checked explicitly to
// keep accented Spanish words intact.
func words(list ...string) *regexp.Regexp {
	quoted := make([]string, len(list))
	for i, w := range list {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:[^\p{L}\p{N}]|$)`)
}

var questionMark = regexp.MustCompile(`[?¿]`)

var (
	hostileWords = words(
		"idiota", "estúpido", "estupido", "tonto", "imbécil", "basura", "cállate", "callate",
		"mentira", "mentiroso", "inútil", "aburrido", "odio",
		"stupid", "idiot", "shut up", "liar", "useless", "boring", "hate",
	)
	politeWords = words(
		"gracias", "por favor", "disculpe", "disculpa", "perdón", "amable", "muy amable",
		"buenos días", "buenas tardes", "buenas noches", "un placer",
		"thanks", "thank you", "please", "kind",
	)
	interrogativeWords = words(
		"qué", "por qué", "cómo", "cuándo", "dónde", "quién", "quiénes", "cuál", "cuánto",
		"why", "how", "what", "when", "where", "who", "which",
	)

	hedgeWords = words(
		"quizás", "quizas", "quizá", "tal vez", "acaso", "posiblemente", "me pregunto", "puede que",
		"perhaps", "maybe", "wonder",
	)
	affirmWords = words(
		"sí", "correcto", "exacto", "exactamente", "claro", "efectivamente", "así es", "en efecto",
		"yes", "indeed", "correct", "exactly",
	)
	negateWords = words(
		"no", "nunca", "jamás", "incorrecto", "tampoco", "nada de eso",
		"never", "incorrect", "wrong",
	)
	lookWords = words(
		"mira", "mire", "mirad", "observa", "observe", "observad", "fíjate", "fíjese", "contempla", "ve hacia",
		"look", "see", "behold",
	)
)

// KeywordClassifier is the crude pattern layer used when the language
// service ignores the reply format. It also detects user tone.
type KeywordClassifier struct {
	rules []rule
}

// NewKeywordClassifier builds the default Spanish/English rule set
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: []rule{
		{
			patterns: []*regexp.Regexp{questionMark, hedgeWords},
			tag:      Tag{Emotion: avatar.EmotionCurious, Gesture: avatar.GestureTilt, Intensity: 0.6},
		},
		{
			patterns: []*regexp.Regexp{affirmWords},
			tag:      Tag{Emotion: avatar.EmotionHappy, Gesture: avatar.GestureNod, Intensity: 0.7},
		},
		{
			patterns: []*regexp.Regexp{negateWords},
			tag:      Tag{Emotion: avatar.EmotionSerious, Gesture: avatar.GestureShake, Intensity: 0.6},
		},
		{
			patterns: []*regexp.Regexp{lookWords},
			tag:      Tag{Emotion: avatar.EmotionNeutral, Gesture: avatar.GestureTurn, Intensity: 0.5},
		},
	}}
}

// Classify returns the tag of the first matching rule, DefaultTag otherwise
func (c *KeywordClassifier) Classify(text string) Tag {
	lower := strings.ToLower(text)
	for _, r := range c.rules {
		if r.match(lower) {
			return r.tag
		}
	}
	return DefaultTag
}

// DetectTone checks hostile, polite and interrogative words in that order
func (c *KeywordClassifier) DetectTone(text string) avatar.Tone {
	lower := strings.ToLower(text)
	switch {
	case hostileWords.MatchString(lower):
		return avatar.ToneAggressive
	case politeWords.MatchString(lower):
		return avatar.ToneRespectful
	case questionMark.MatchString(lower) || interrogativeWords.MatchString(lower):
		return avatar.ToneCurious
	default:
		return avatar.ToneNeutral
	}
}
