package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/normanking/cortexguide/internal/agent"
	"github.com/normanking/cortexguide/internal/body"
	"github.com/normanking/cortexguide/internal/brain"
	"github.com/normanking/cortexguide/internal/bus"
	"github.com/normanking/cortexguide/internal/config"
	"github.com/normanking/cortexguide/internal/expression"
	"github.com/normanking/cortexguide/internal/gaze"
	"github.com/normanking/cortexguide/internal/journal"
	"github.com/normanking/cortexguide/internal/llm"
	"github.com/normanking/cortexguide/internal/logging"
	"github.com/normanking/cortexguide/internal/persona"
	"github.com/normanking/cortexguide/internal/scene"
)

// defaultViewpoint is where a visitor's eyes are before the renderer
// reports a camera position
var defaultViewpoint = mgl32.Vec3{0, 1.6, 2}

// runtime is every long-lived component of one guide process
type runtime struct {
	cfg        *config.Config
	configPath string
	logs       *logging.Logger
	bus        *bus.EventBus
	viewpoint  *scene.TrackedViewpoint
	body       *body.Body
	gaze       *gaze.Coordinator
	agent      *agent.Agent
	journal    *journal.Journal
}

func loadConfig(flags *rootFlags) (*config.Config, string, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, "", err
	}
	path := flags.configPath
	if path == "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return nil, "", err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	return cfg, path, nil
}

func build(flags *rootFlags, console bool) (*runtime, error) {
	cfg, path, err := loadConfig(flags)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := logging.LogLevel(cfg.Log.Level)
	if flags.verbose {
		level = logging.LevelDebug
	}
	logs, err := logging.New(&logging.Config{
		LogDir:  cfg.Log.Dir,
		Level:   level,
		Console: console && cfg.Log.Console,
	})
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:        cfg,
		configPath: path,
		logs:       logs,
		bus:        bus.New(),
		viewpoint:  scene.NewTrackedViewpoint(defaultViewpoint),
	}

	actor, err := loadActor(cfg.Agent.ModelFile)
	if err != nil {
		logs.Close()
		return nil, err
	}
	rt.body = body.New(actor,
		body.WithBus(rt.bus),
		body.WithLogger(logs.Component("body")),
		body.WithPresence(presenceConfig(cfg.Presence)),
	)
	rt.gaze = gaze.New(rt.body, rt.viewpoint,
		gaze.WithLogger(logs.Component("gaze")),
		gaze.WithInterval(cfg.Gaze.MinInterval, cfg.Gaze.MaxInterval),
	)

	opts := []agent.Option{
		agent.WithBus(rt.bus),
		agent.WithLogger(logs.Component("agent")),
	}

	br, err := buildBrain(cfg, logs)
	switch {
	case errors.Is(err, config.ErrMissingCredential):
		logs.Warn("main", "running without a brain", map[string]interface{}{"reason": err.Error()})
	case err != nil:
		rt.body.Close()
		logs.Close()
		return nil, err
	default:
		opts = append(opts, agent.WithBrain(br))
	}

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path, journal.WithLogger(logs.Component("journal")))
		if err != nil {
			logs.Warn("main", "journal disabled", map[string]interface{}{"error": err.Error()})
		} else {
			rt.journal = j
			opts = append(opts, agent.WithJournal(j))
		}
	}

	rt.agent = agent.New("kinich", rt.body, rt.gaze, opts...)
	return rt, nil
}

func loadActor(modelFile string) (scene.Actor, error) {
	if modelFile == "" {
		return scene.NewHumanoid("guide", expression.ShapeNames()), nil
	}
	actor, err := scene.LoadGLTF(modelFile)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return actor, nil
}

func buildBrain(cfg *config.Config, logs *logging.Logger) (*brain.Brain, error) {
	profile := persona.DefaultProfile()
	if cfg.Agent.PersonaFile != "" {
		p, err := persona.LoadProfile(cfg.Agent.PersonaFile)
		if err != nil {
			return nil, fmt.Errorf("load persona: %w", err)
		}
		profile = p
	}

	creds, err := config.LoadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(creds.ProviderConfig(cfg.LLM))
	if err != nil {
		return nil, err
	}
	gw := llm.NewGateway(provider,
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithLogger(logs.Component("llm")),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !gw.CheckAvailability(ctx) {
		logs.Warn("main", "language service not reachable, replies will fall back", map[string]interface{}{
			"provider": gw.ProviderName(),
		})
	}

	return brain.New(gw, profile,
		brain.WithLogger(logs.Component("brain")),
		brain.WithConfig(brain.Config{
			HistoryCap:    cfg.Agent.HistoryCap,
			KeepRecent:    cfg.Agent.KeepRecent,
			IdleDecay:     cfg.Agent.IdleDecay,
			DecayFactor:   cfg.Agent.DecayFactor,
			FallbackLines: cfg.Agent.FallbackLines,
		}),
	), nil
}

// presenceConfig converts the file settings into the body's
func presenceConfig(p config.PresenceConfig) body.PresenceConfig {
	return presencePatch(p).Apply(body.DefaultPresence())
}

func presencePatch(p config.PresenceConfig) body.PresencePatch {
	intensity := float32(p.BreathingIntensity)
	ms := p.BlinkInterval.Milliseconds()
	return body.PresencePatch{
		Breathing:          &p.Breathing,
		Blinking:           &p.Blinking,
		Gaze:               &p.Gaze,
		MicroMovement:      &p.MicroMovement,
		BreathingIntensity: &intensity,
		BlinkIntervalMs:    &ms,
	}
}

// tick drives the body at rate updates per second until ctx is done
func tick(ctx context.Context, b *body.Body, rate int) error {
	if rate <= 0 {
		rate = 60
	}
	t := time.NewTicker(time.Second / time.Duration(rate))
	defer t.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			b.Update(now.Sub(last))
			last = now
		}
	}
}

func (rt *runtime) close() {
	rt.agent.Close()
	if rt.journal != nil {
		rt.journal.Close()
	}
	rt.logs.Close()
}
