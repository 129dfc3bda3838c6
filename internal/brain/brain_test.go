package brain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexguide/internal/avatar"
	"github.com/normanking/cortexguide/internal/llm"
	"github.com/normanking/cortexguide/internal/persona"
)

// stubGateway answers with a fixed raw reply or error and records calls
type stubGateway struct {
	mu      sync.Mutex
	raw     string
	err     error
	system  string
	history []llm.Message
	calls   int
}

func (g *stubGateway) SetContext(system string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.system = system
}

func (g *stubGateway) SendMessage(_ context.Context, history []llm.Message) (llm.Reply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.history = history
	if g.err != nil {
		return llm.Reply{}, g.err
	}
	return llm.ParseReply(g.raw), nil
}

func failing() *stubGateway {
	return &stubGateway{err: &llm.TransportError{Provider: "stub", Err: errors.New("connection refused")}}
}

func TestProcessMessage_CuriousFallbackScenario(t *testing.T) {
	b := New(failing(), persona.DefaultProfile())
	require.Zero(t, b.EmotionalState().Mood)

	resp, err := b.ProcessMessage(context.Background(), "¿Por qué construyeron esto?")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Text)
	assert.Contains(t, DefaultFallbackLines, resp.Text)
	assert.Equal(t, avatar.EmotionNeutral, resp.Emotion)
	assert.Equal(t, avatar.GestureIdle, resp.Gesture)
	assert.True(t, resp.Valid())

	mem := b.Memory()
	assert.Equal(t, avatar.ToneCurious, mem.UserTone)
	assert.Equal(t, 1, mem.InteractionCount)
	assert.True(t, mem.HasTopic("construyeron"))

	st := b.EmotionalState()
	assert.Equal(t, persona.DefaultEngagement+CuriousEngagementDelta+EngagementStep, st.Engagement)
	assert.Equal(t, persona.DefaultEnergy-EnergyStep, st.Energy)

	h := b.History()
	require.Len(t, h, 3)
	assert.Equal(t, llm.RoleSystem, h[0].Role)
	assert.Equal(t, llm.RoleAssistant, h[2].Role)
	assert.Equal(t, resp.Text, h[2].Content)
}

func TestProcessMessage_FallbackRotates(t *testing.T) {
	b := New(failing(), persona.DefaultProfile())
	first, _ := b.ProcessMessage(context.Background(), "hola")
	second, _ := b.ProcessMessage(context.Background(), "hola")
	assert.NotEqual(t, first.Text, second.Text)
	assert.Equal(t, 2, b.Memory().InteractionCount)
}

func TestProcessMessage_NilGateway(t *testing.T) {
	b := New(nil, persona.DefaultProfile())
	resp, err := b.ProcessMessage(context.Background(), "hola")
	require.NoError(t, err)
	assert.Contains(t, DefaultFallbackLines, resp.Text)
}

func TestProcessMessage_StructuredReply(t *testing.T) {
	gw := &stubGateway{raw: `Aquí va: {"text": "¡Bienvenido a Palenque!", "emotion": "feliz", "gesture": "wave", "intensity": 0.9}`}
	b := New(gw, persona.DefaultProfile())

	resp, err := b.ProcessMessage(context.Background(), "Hola")
	require.NoError(t, err)
	assert.Equal(t, "¡Bienvenido a Palenque!", resp.Text)
	assert.Equal(t, avatar.EmotionHappy, resp.Emotion)
	assert.Equal(t, avatar.GestureWave, resp.Gesture)
	assert.InDelta(t, 0.9, resp.Intensity, 1e-6)
	assert.True(t, resp.ShouldSpeak)
}

func TestProcessMessage_StructuredUnknownLabels(t *testing.T) {
	gw := &stubGateway{raw: `{"text": "Así fue.", "emotion": "euphoric", "gesture": "backflip"}`}
	b := New(gw, persona.DefaultProfile())

	resp, _ := b.ProcessMessage(context.Background(), "Hola")
	assert.Equal(t, avatar.EmotionNeutral, resp.Emotion)
	assert.Equal(t, avatar.GestureIdle, resp.Gesture)
	assert.Equal(t, DefaultIntensity, resp.Intensity)
}

func TestProcessMessage_InlineReply(t *testing.T) {
	gw := &stubGateway{raw: "[emotion: contemplative] [gesture: tilt] Las estrellas guiaban la siembra."}
	b := New(gw, persona.DefaultProfile())

	resp, _ := b.ProcessMessage(context.Background(), "Háblame del calendario")
	assert.Equal(t, "Las estrellas guiaban la siembra.", resp.Text)
	assert.Equal(t, avatar.EmotionContemplative, resp.Emotion)
	assert.Equal(t, avatar.GestureTilt, resp.Gesture)
}

func TestProcessMessage_UnstructuredInference(t *testing.T) {
	cases := []struct {
		raw     string
		gesture avatar.Gesture
		emotion avatar.Emotion
	}{
		{"Sí, correcto. Ese era el juego de pelota.", avatar.GestureNod, avatar.EmotionHappy},
		{"No, nunca se usó como palacio.", avatar.GestureShake, avatar.EmotionSerious},
		{"Mira hacia la pirámide del norte.", avatar.GestureTurn, avatar.EmotionNeutral},
		{"Quizás la respuesta esté en los glifos.", avatar.GestureTilt, avatar.EmotionCurious},
		{"El templo tiene nueve niveles.", avatar.GestureIdle, avatar.EmotionNeutral},
	}
	for _, tc := range cases {
		b := New(&stubGateway{raw: tc.raw}, persona.DefaultProfile())
		resp, err := b.ProcessMessage(context.Background(), "cuéntame")
		require.NoError(t, err)
		assert.Equal(t, tc.gesture, resp.Gesture, tc.raw)
		assert.Equal(t, tc.emotion, resp.Emotion, tc.raw)
	}
}

type fixedClassifier struct{ tag Tag }

func (c fixedClassifier) Classify(string) Tag { return c.tag }

func TestProcessMessage_InjectedClassifier(t *testing.T) {
	tag := Tag{Emotion: avatar.EmotionSurprised, Gesture: avatar.GestureWave, Intensity: 1}
	b := New(&stubGateway{raw: "Sí."}, persona.DefaultProfile(), WithClassifier(fixedClassifier{tag}))

	resp, _ := b.ProcessMessage(context.Background(), "hola")
	assert.Equal(t, avatar.EmotionSurprised, resp.Emotion)
	assert.Equal(t, avatar.GestureWave, resp.Gesture)
}

func TestProcessMessage_ContextIsFresh(t *testing.T) {
	gw := &stubGateway{raw: "De acuerdo."}
	b := New(gw, persona.DefaultProfile())

	_, _ = b.ProcessMessage(context.Background(), "Gracias por la explicación")
	h := b.History()
	assert.Equal(t, h[0].Content, gw.system)
	assert.Contains(t, gw.system, "Kinich")
	require.Len(t, gw.history, 2)
	assert.Equal(t, "Gracias por la explicación", gw.history[1].Content)
	assert.Equal(t, PoliteMoodDelta, b.EmotionalState().Mood)
	assert.Equal(t, avatar.ToneRespectful, b.Memory().UserTone)
}

func TestHistoryInvariant(t *testing.T) {
	b := New(&stubGateway{raw: "Los gobernantes registraban sus hazañas."}, persona.DefaultProfile())
	limit := DefaultConfig().HistoryCap

	for i := 0; i < 50; i++ {
		_, err := b.ProcessMessage(context.Background(), fmt.Sprintf("pregunta%02d sobre arquitectura", i))
		require.NoError(t, err)

		h := b.History()
		require.LessOrEqual(t, len(h), limit)
		require.Equal(t, llm.RoleSystem, h[0].Role)
		for _, m := range h[1:] {
			require.NotEqual(t, llm.RoleSystem, m.Role)
		}
	}

	h := b.History()
	assert.Equal(t, "pregunta49 sobre arquitectura", h[len(h)-2].Content)
	assert.NotEmpty(t, b.Memory().Summary)
	assert.LessOrEqual(t, len(b.Memory().KeyTopics), persona.MaxKeyTopics)
	assert.Equal(t, 50, b.Memory().InteractionCount)
}

func TestStateStaysClamped(t *testing.T) {
	b := New(failing(), persona.DefaultProfile())
	for i := 0; i < 120; i++ {
		_, _ = b.ProcessMessage(context.Background(), "eres un idiota")
		st := b.EmotionalState()
		require.GreaterOrEqual(t, st.Mood, persona.MoodMin)
		require.LessOrEqual(t, st.Mood, persona.MoodMax)
		require.GreaterOrEqual(t, st.Energy, persona.EnergyFloor)
		require.LessOrEqual(t, st.Engagement, persona.EngagementMax)
	}
	assert.Equal(t, persona.MoodMin, b.EmotionalState().Mood)
	assert.Equal(t, persona.EnergyFloor, b.EmotionalState().Energy)
	assert.Equal(t, avatar.ToneAggressive, b.Memory().UserTone)
}

func TestMoodDecaysAfterIdle(t *testing.T) {
	fc := clockwork.NewFakeClock()
	b := New(failing(), persona.DefaultProfile(), WithClock(fc))

	_, _ = b.ProcessMessage(context.Background(), "eres un idiota")
	require.Equal(t, HostileMoodDelta, b.EmotionalState().Mood)

	fc.Advance(time.Minute)
	_, _ = b.ProcessMessage(context.Background(), "cuéntame de las estelas")
	require.Equal(t, HostileMoodDelta, b.EmotionalState().Mood)

	fc.Advance(6 * time.Minute)
	_, _ = b.ProcessMessage(context.Background(), "cuéntame de las estelas")
	assert.InDelta(t, HostileMoodDelta*0.7, b.EmotionalState().Mood, 1e-9)
	assert.Equal(t, fc.Now(), b.EmotionalState().LastUpdate)
}

func TestReset(t *testing.T) {
	b := New(failing(), persona.DefaultProfile())
	for i := 0; i < 5; i++ {
		_, _ = b.ProcessMessage(context.Background(), "eres un idiota, dime algo interesante")
	}

	b.Reset()

	st := b.Snapshot()
	assert.Equal(t, persona.DefaultMood, st.Emotional.Mood)
	assert.Equal(t, persona.DefaultEnergy, st.Emotional.Energy)
	assert.Equal(t, persona.DefaultEngagement, st.Emotional.Engagement)
	assert.Empty(t, st.Memory.KeyTopics)
	assert.Empty(t, st.Memory.Summary)
	assert.Zero(t, st.Memory.InteractionCount)
	assert.Equal(t, avatar.ToneNeutral, st.Memory.UserTone)
	require.Len(t, st.History, 1)
	assert.Equal(t, llm.RoleSystem, st.History[0].Role)
	assert.Equal(t, "Kinich", st.Profile)
}

// blockingGateway holds SendMessage until released
type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGateway) SetContext(string) {}
func (g *blockingGateway) SendMessage(ctx context.Context, _ []llm.Message) (llm.Reply, error) {
	g.entered <- struct{}{}
	<-g.release
	return llm.ParseReply("Claro."), nil
}

func TestProcessMessage_Serialized(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}, 2), release: make(chan struct{})}
	b := New(gw, persona.DefaultProfile())

	done := make(chan struct{})
	go func() {
		_, _ = b.ProcessMessage(context.Background(), "primero")
		close(done)
	}()
	<-gw.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.ProcessMessage(ctx, "segundo")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// state reads do not wait for the gateway
	assert.Len(t, b.History(), 2)

	close(gw.release)
	<-done
	assert.Equal(t, 1, b.Memory().InteractionCount)
	assert.Len(t, b.History(), 3)
}

func TestThinkingTime(t *testing.T) {
	assert.Equal(t, ThinkingBase+4*ThinkingPerRune, thinkingTime("hola", 0))
	assert.Equal(t, ThinkingBase+4*ThinkingPerRune, thinkingTime("¿qué", 10))
	long := string(make([]rune, 500))
	assert.Equal(t, ThinkingBase+ThinkingMaxExtra, thinkingTime(long, 0))
	assert.Equal(t, time.Duration(float64(ThinkingBase+ThinkingMaxExtra)*ThinkingMoodRate), thinkingTime(long, -1))
}
