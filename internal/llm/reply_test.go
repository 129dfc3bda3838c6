package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply_Structured(t *testing.T) {
	r := ParseReply(`Claro. {"text": "Los mayas observaban {el cielo}.", "emotion": "happy", "gesture": "nod", "intensity": 0.8} fin`)

	require.Equal(t, Structured, r.Kind)
	assert.Equal(t, "Los mayas observaban {el cielo}.", r.Text)
	assert.Equal(t, "happy", r.Emotion)
	assert.Equal(t, "nod", r.Gesture)
	require.NotNil(t, r.Intensity)
	assert.InDelta(t, 0.8, *r.Intensity, 1e-6)
}

func TestParseReply_StructuredWithoutText(t *testing.T) {
	r := ParseReply(`El templo mira al este. {"emotion": "wise"}`)
	require.Equal(t, Structured, r.Kind)
	assert.Equal(t, "El templo mira al este.", r.Text)
	assert.Nil(t, r.Intensity)
}

func TestParseReply_MalformedJSONFallsThrough(t *testing.T) {
	r := ParseReply(`{"text": "sin cerrar", "emotion": }`)
	assert.Equal(t, Unstructured, r.Kind)

	r = ParseReply(`{"text": "abierto`)
	assert.Equal(t, Unstructured, r.Kind)
}

func TestParseReply_InlineTagged(t *testing.T) {
	r := ParseReply("[emoción: curious] ¿Ves esa estela? [gesture: turn] [intensidad: 0,6]")

	require.Equal(t, InlineTagged, r.Kind)
	assert.Equal(t, "curious", r.Emotion)
	assert.Equal(t, "turn", r.Gesture)
	require.NotNil(t, r.Intensity)
	assert.InDelta(t, 0.6, *r.Intensity, 1e-6)
	assert.Equal(t, "¿Ves esa estela?", r.Text)
}

func TestParseReply_Unstructured(t *testing.T) {
	r := ParseReply("  Sí, correcto.  ")
	assert.Equal(t, Unstructured, r.Kind)
	assert.Equal(t, "Sí, correcto.", r.Text)
	assert.Empty(t, r.Emotion)
}

func TestFirstBalancedObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`a {"b": {"c": 1}} d {"e": 2}`, `{"b": {"c": 1}}`, true},
		{`{"s": "}"}`, `{"s": "}"}`, true},
		{`{"s": "\"}"}`, `{"s": "\"}"}`, true},
		{`no braces`, ``, false},
		{`{ unbalanced`, ``, false},
	}
	for _, tc := range cases {
		start, end, ok := firstBalancedObject(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if ok {
			assert.Equal(t, tc.want, tc.in[start:end])
		}
	}
}
