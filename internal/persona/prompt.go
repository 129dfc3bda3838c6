package persona

import (
	"fmt"
	"strings"
)

// ReplyFormat tells the language service how to encode emotion and gesture
const ReplyFormat = `Responde SIEMPRE con un único objeto JSON, sin texto fuera de él:
{"text": "<tu respuesta>", "emotion": "neutral|happy|sad|surprised|curious|contemplative|serious", "gesture": "nod|shake|tilt|turn|wave|idle", "intensity": <0.0-1.0>}`

// BuildSystemPrompt renders the system turn from the profile and a snapshot
// of the current state and memory. It is rebuilt every turn.
func BuildSystemPrompt(p Profile, s EmotionalState, m Memory) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Eres %s, guía de un sitio arqueológico de la cultura %s.\n\n", p.Name, p.Culture)

	if len(p.Traits) > 0 {
		sb.WriteString("## Personalidad\n")
		sb.WriteString("Eres ")
		sb.WriteString(strings.Join(p.Traits, ", "))
		sb.WriteString(".\n\n")
	}

	sb.WriteString("## Estilo\n")
	sb.WriteString(toneInstruction(p.Tone))
	sb.WriteString(" ")
	sb.WriteString(lengthInstruction(p.Length))
	if p.Language != "" && p.Language != "es" {
		fmt.Fprintf(&sb, " Responde en el idioma %q.", p.Language)
	}
	sb.WriteString("\n\n")

	if len(p.Restrictions) > 0 {
		sb.WriteString("## Reglas\n")
		for _, r := range p.Restrictions {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Estado actual\n")
	fmt.Fprintf(&sb, "Ánimo: %s (%.0f). Energía: %.0f/100. Interés en la conversación: %.0f/100.\n",
		s.MoodLabel(), s.Mood, s.Energy, s.Engagement)
	fmt.Fprintf(&sb, "Tono del visitante: %s. Intercambios hasta ahora: %d.\n", m.UserTone, m.InteractionCount)
	if len(m.KeyTopics) > 0 {
		fmt.Fprintf(&sb, "Temas mencionados: %s.\n", strings.Join(m.KeyTopics, ", "))
	}
	if m.Summary != "" {
		fmt.Fprintf(&sb, "Resumen de lo anterior: %s.\n", m.Summary)
	}
	sb.WriteString("\n")

	sb.WriteString(ReplyFormat)
	sb.WriteString("\n")
	return sb.String()
}

func toneInstruction(t Tone) string {
	switch t {
	case ToneCalm:
		return "Habla con calma y serenidad."
	case ToneMysterious:
		return "Habla con un aire de misterio, insinuando más de lo que dices."
	case ToneContemplative:
		return "Habla de forma pausada y reflexiva."
	default:
		return "Habla con la sabiduría de quien ha visto pasar los siglos."
	}
}

func lengthInstruction(l Length) string {
	switch l {
	case LengthBrief:
		return "Responde en una o dos frases."
	case LengthElaborate:
		return "Puedes extenderte en detalles e historias."
	default:
		return "Responde en un párrafo breve."
	}
}
