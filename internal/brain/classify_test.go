package brain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/normanking/cortexguide/internal/avatar"
	"github.com/normanking/cortexguide/internal/llm"
)

func TestDetectTone(t *testing.T) {
	c := NewKeywordClassifier()
	cases := []struct {
		in   string
		want avatar.Tone
	}{
		{"¿Por qué construyeron esto?", avatar.ToneCurious},
		{"how old is it", avatar.ToneCurious},
		{"Gracias, muy amable", avatar.ToneRespectful},
		{"Por favor, ¿qué significa?", avatar.ToneRespectful},
		{"Eres un idiota, ¿por qué hablas tanto?", avatar.ToneAggressive},
		{"Cállate ya", avatar.ToneAggressive},
		{"Cuéntame de las estelas", avatar.ToneNeutral},
		{"cooking", avatar.ToneNeutral},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.DetectTone(tc.in), tc.in)
	}
}

func TestClassify(t *testing.T) {
	c := NewKeywordClassifier()
	assert.Equal(t, avatar.GestureNod, c.Classify("Sí").Gesture)
	assert.Equal(t, avatar.GestureNod, c.Classify("Eso es correcto").Gesture)
	assert.Equal(t, avatar.GestureTilt, c.Classify("¿Te lo imaginas?").Gesture)
	assert.Equal(t, avatar.GestureShake, c.Classify("No lo creo").Gesture)
	assert.Equal(t, avatar.GestureTurn, c.Classify("Observe los relieves").Gesture)
	assert.Equal(t, DefaultTag, c.Classify("El sol se oculta."))
	// whole words only
	assert.Equal(t, DefaultTag, c.Classify("Nosotros tallamos piedra."))
}

func TestCompact(t *testing.T) {
	h := []llm.Message{{Role: llm.RoleSystem, Content: "sys"}}
	for i := 0; i < 9; i++ {
		h = append(h, llm.Message{Role: llm.RoleUser, Content: "turno"})
	}
	kept, evicted := compact(h, 20, 4)
	assert.Len(t, kept, 10)
	assert.Nil(t, evicted)

	for i := 0; i < 10; i++ {
		h = append(h, llm.Message{Role: llm.RoleAssistant, Content: "respuesta"})
	}
	kept, evicted = compact(h, 20, 4)
	assert.Len(t, kept, 5)
	assert.Len(t, evicted, 15)
	assert.Equal(t, "sys", kept[0].Content)
}

func TestSummarize(t *testing.T) {
	turns := []llm.Message{
		{Role: llm.RoleUser, Content: "Háblame del observatorio y del calendario"},
		{Role: llm.RoleAssistant, Content: "El observatorio seguía a Venus. El calendario marcaba ciclos agrícolas sagrados."},
	}
	assert.Equal(t, "háblame, observatorio, calendario, seguía, marcaba", summarize(turns))
}
