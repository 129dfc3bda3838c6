// Package avatar holds the vocabulary shared by the guide's brain and body
package avatar

import (
	"strings"
	"time"
)

// Emotion represents the avatar's emotional expression
type Emotion string

const (
	EmotionNeutral       Emotion = "neutral"
	EmotionHappy         Emotion = "happy"
	EmotionSad           Emotion = "sad"
	EmotionSurprised     Emotion = "surprised"
	EmotionCurious       Emotion = "curious"
	EmotionContemplative Emotion = "contemplative"
	EmotionSerious       Emotion = "serious"
)

// Emotions lists every emotion the expression model has a table for
var Emotions = []Emotion{
	EmotionNeutral,
	EmotionHappy,
	EmotionSad,
	EmotionSurprised,
	EmotionCurious,
	EmotionContemplative,
	EmotionSerious,
}

// Valid reports whether e is one of the known emotions
func (e Emotion) Valid() bool {
	for _, known := range Emotions {
		if e == known {
			return true
		}
	}
	return false
}

// Gesture is a discrete physical action tag
type Gesture string

const (
	GestureNod   Gesture = "nod"
	GestureShake Gesture = "shake"
	GestureTilt  Gesture = "tilt"
	GestureTurn  Gesture = "turn"
	GestureWave  Gesture = "wave"
	GestureIdle  Gesture = "idle"
)

func (g Gesture) Valid() bool {
	switch g {
	case GestureNod, GestureShake, GestureTilt, GestureTurn, GestureWave, GestureIdle:
		return true
	}
	return false
}

// Tone is the last detected tone of the user
type Tone string

const (
	ToneRespectful Tone = "respectful"
	ToneNeutral    Tone = "neutral"
	ToneAggressive Tone = "aggressive"
	ToneCurious    Tone = "curious"
)

// emotionAliases maps whatever the language service says to a known emotion.
// Spanish and English synonyms both show up in replies.
var emotionAliases = map[string]Emotion{
	"neutral":       EmotionNeutral,
	"neutro":        EmotionNeutral,
	"calm":          EmotionNeutral,
	"calmado":       EmotionNeutral,
	"tranquilo":     EmotionNeutral,
	"happy":         EmotionHappy,
	"joy":           EmotionHappy,
	"joyful":        EmotionHappy,
	"pleased":       EmotionHappy,
	"feliz":         EmotionHappy,
	"alegre":        EmotionHappy,
	"contento":      EmotionHappy,
	"sad":           EmotionSad,
	"melancholic":   EmotionSad,
	"triste":        EmotionSad,
	"melancólico":   EmotionSad,
	"surprised":     EmotionSurprised,
	"amazed":        EmotionSurprised,
	"sorprendido":   EmotionSurprised,
	"asombrado":     EmotionSurprised,
	"curious":       EmotionCurious,
	"interested":    EmotionCurious,
	"curioso":       EmotionCurious,
	"intrigado":     EmotionCurious,
	"contemplative": EmotionContemplative,
	"thinking":      EmotionContemplative,
	"thoughtful":    EmotionContemplative,
	"wise":          EmotionContemplative,
	"mysterious":    EmotionContemplative,
	"pensativo":     EmotionContemplative,
	"sabio":         EmotionContemplative,
	"misterioso":    EmotionContemplative,
	"contemplativo": EmotionContemplative,
	"serious":       EmotionSerious,
	"stern":         EmotionSerious,
	"angry":         EmotionSerious,
	"concerned":     EmotionSerious,
	"serio":         EmotionSerious,
	"enojado":       EmotionSerious,
	"preocupado":    EmotionSerious,
}

// ParseEmotion maps a free-form emotion label to an Emotion.
// Unknown labels fall back to neutral.
func ParseEmotion(label string) Emotion {
	if e, ok := emotionAliases[strings.ToLower(strings.TrimSpace(label))]; ok {
		return e
	}
	return EmotionNeutral
}

// ParseGesture maps a gesture label to a Gesture, unknown labels become idle
func ParseGesture(label string) Gesture {
	g := Gesture(strings.ToLower(strings.TrimSpace(label)))
	if g.Valid() {
		return g
	}
	switch g {
	case "asentir":
		return GestureNod
	case "negar":
		return GestureShake
	case "saludar":
		return GestureWave
	case "girar", "mirar":
		return GestureTurn
	}
	return GestureIdle
}

// Response is the structured reply the brain hands to the body.
// It is a value object; build it with NewResponse so intensity is clamped.
type Response struct {
	Text         string        `json:"text"`
	Emotion      Emotion       `json:"emotion"`
	Gesture      Gesture       `json:"gesture"`
	Intensity    float32       `json:"intensity"`
	ThinkingTime time.Duration `json:"thinkingTime"`
	ShouldSpeak  bool          `json:"shouldSpeak"`
}

// NewResponse builds a Response with intensity clamped to [0,1]
func NewResponse(text string, emotion Emotion, gesture Gesture, intensity float32, thinking time.Duration) Response {
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	if emotion == "" {
		emotion = EmotionNeutral
	}
	if gesture == "" {
		gesture = GestureIdle
	}
	return Response{
		Text:         text,
		Emotion:      emotion,
		Gesture:      gesture,
		Intensity:    intensity,
		ThinkingTime: thinking,
		ShouldSpeak:  strings.TrimSpace(text) != "",
	}
}

// Valid reports whether the response carries known enum values
func (r Response) Valid() bool {
	return r.Emotion.Valid() && r.Gesture.Valid()
}
