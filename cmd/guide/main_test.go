package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexguide/internal/agent"
	"github.com/normanking/cortexguide/internal/body"
	"github.com/normanking/cortexguide/internal/brain"
	"github.com/normanking/cortexguide/internal/bus"
	"github.com/normanking/cortexguide/internal/config"
	"github.com/normanking/cortexguide/internal/expression"
	"github.com/normanking/cortexguide/internal/gaze"
	"github.com/normanking/cortexguide/internal/llm"
	"github.com/normanking/cortexguide/internal/logging"
	"github.com/normanking/cortexguide/internal/persona"
	"github.com/normanking/cortexguide/internal/scene"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "guide dev\n", out.String())
}

func TestPresenceMapping(t *testing.T) {
	p := config.DefaultConfig().Presence
	p.Gaze = false
	p.BlinkInterval = 3 * time.Second
	p.BreathingIntensity = 0.05

	got := presenceConfig(p)
	assert.False(t, got.Gaze)
	assert.True(t, got.Breathing)
	assert.Equal(t, 3*time.Second, got.BlinkInterval)
	assert.InDelta(t, 0.05, got.BreathingIntensity, 1e-6)
}

type echoGateway struct{}

func (echoGateway) SetContext(string) {}

func (echoGateway) SendMessage(_ context.Context, history []llm.Message) (llm.Reply, error) {
	last := history[len(history)-1].Content
	return llm.ParseReply(`{"text":"Dijiste: ` + last + `","emotion":"curious","gesture":"tilt","intensity":0.6}`), nil
}

func testRuntime(t *testing.T) (*runtime, clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	cfg := config.DefaultConfig()
	presence := body.DefaultPresence()
	presence.Blinking = false

	eb := bus.New()
	vp := scene.NewTrackedViewpoint(defaultViewpoint)
	b := body.New(scene.NewHumanoid("guide", expression.ShapeNames()),
		body.WithClock(fc), body.WithBus(eb), body.WithPresence(presence))
	g := gaze.New(b, vp, gaze.WithClock(fc))
	a := agent.New("kinich", b, g,
		agent.WithBus(eb),
		agent.WithBrain(brain.New(echoGateway{}, persona.DefaultProfile())),
	)
	return &runtime{
		cfg:       cfg,
		logs:      logging.Nop(),
		bus:       eb,
		viewpoint: vp,
		body:      b,
		gaze:      g,
		agent:     a,
	}, fc
}

func TestChat(t *testing.T) {
	rt, fc := testRuntime(t)

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
				fc.Advance(500 * time.Millisecond)
			}
		}
	}()
	defer close(stop)

	in := strings.NewReader("¿Quién eres?\n\n/reset\n/quit\nnunca llega\n")
	var out bytes.Buffer
	require.NoError(t, chat(context.Background(), rt, in, &out))
	rt.close()

	text := out.String()
	assert.Contains(t, text, "Kinich [curious/tilt 0.6]: Dijiste: Hola")
	assert.Contains(t, text, "Dijiste: ¿Quién eres?")
	assert.Contains(t, text, "(reset)")
	assert.NotContains(t, text, "nunca llega")
	assert.False(t, rt.agent.Status().InSession)
}
