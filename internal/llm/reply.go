package llm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// ReplyKind tells how a raw reply encoded its emotion and gesture
type ReplyKind int

const (
	// Unstructured replies carry prose only
	Unstructured ReplyKind = iota
	// Structured replies embed a JSON object
	Structured
	// InlineTagged replies carry [emotion: x] style tags
	InlineTagged
)

func (k ReplyKind) String() string {
	switch k {
	case Structured:
		return "structured"
	case InlineTagged:
		return "inline"
	default:
		return "unstructured"
	}
}

// Reply is a parsed service reply. Emotion, Gesture and Intensity are the
// raw labels the service sent; they are empty or nil for Unstructured.
type Reply struct {
	Kind      ReplyKind
	Raw       string
	Text      string
	Emotion   string
	Gesture   string
	Intensity *float32
}

type structuredReply struct {
	Text      string   `json:"text"`
	Response  string   `json:"response"`
	Message   string   `json:"message"`
	Emotion   string   `json:"emotion"`
	Gesture   string   `json:"gesture"`
	Intensity *float64 `json:"intensity"`
}

var inlineTag = regexp.MustCompile(`(?i)\[\s*(emotion|emoci[oó]n|gesture|gesto|intensity|intensidad)\s*[:=]\s*([^\]]*?)\s*\]`)

// ParseReply classifies raw text as Structured, InlineTagged or Unstructured.
// It never fails; anything it cannot decode is Unstructured.
func ParseReply(raw string) Reply {
	if r, ok := parseStructured(raw); ok {
		return r
	}
	if r, ok := parseInline(raw); ok {
		return r
	}
	return Reply{Kind: Unstructured, Raw: raw, Text: strings.TrimSpace(raw)}
}

func parseStructured(raw string) (Reply, bool) {
	start, end, ok := firstBalancedObject(raw)
	if !ok {
		return Reply{}, false
	}
	var sr structuredReply
	if err := json.Unmarshal([]byte(raw[start:end]), &sr); err != nil {
		return Reply{}, false
	}

	text := firstNonEmpty(sr.Text, sr.Response, sr.Message)
	if text == "" {
		// prose around the object is the answer
		text = strings.TrimSpace(raw[:start] + " " + raw[end:])
	}

	r := Reply{
		Kind:    Structured,
		Raw:     raw,
		Text:    strings.TrimSpace(text),
		Emotion: sr.Emotion,
		Gesture: sr.Gesture,
	}
	if sr.Intensity != nil {
		v := float32(*sr.Intensity)
		r.Intensity = &v
	}
	return r, true
}

func parseInline(raw string) (Reply, bool) {
	matches := inlineTag.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return Reply{}, false
	}

	r := Reply{Kind: InlineTagged, Raw: raw}
	for _, m := range matches {
		key, val := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		switch {
		case strings.HasPrefix(key, "emo"):
			r.Emotion = val
		case strings.HasPrefix(key, "gest"):
			r.Gesture = val
		default:
			if f, err := strconv.ParseFloat(strings.ReplaceAll(val, ",", "."), 32); err == nil {
				v := float32(f)
				r.Intensity = &v
			}
		}
	}
	r.Text = strings.Join(strings.Fields(inlineTag.ReplaceAllString(raw, " ")), " ")
	return r, true
}

// firstBalancedObject finds the first {...} substring whose braces balance,
// ignoring braces inside JSON strings.
func firstBalancedObject(s string) (start, end int, ok bool) {
	start = strings.IndexByte(s, '{')
	if start < 0 {
		return 0, 0, false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return start, i + 1, true
			}
		}
	}
	return 0, 0, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
