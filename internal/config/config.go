// Package config provides configuration management for the guide
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	dirName   = ".cortexguide"
	envPrefix = "GUIDE"
)

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Presence PresenceConfig `mapstructure:"presence" yaml:"presence"`
	Gaze     GazeConfig     `mapstructure:"gaze" yaml:"gaze"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Journal  JournalConfig  `mapstructure:"journal" yaml:"journal"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// LLMConfig selects the language service
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"` // openai, groq, anthropic, ollama, gemini
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKeyEnv   string        `mapstructure:"api_key_env" yaml:"api_key_env"` // empty uses the provider's usual variable
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
}

// AgentConfig configures the guide's persona and dialogue
type AgentConfig struct {
	PersonaFile   string        `mapstructure:"persona_file" yaml:"persona_file"`
	ModelFile     string        `mapstructure:"model_file" yaml:"model_file"` // glTF; empty uses the built-in rig
	HistoryCap    int           `mapstructure:"history_cap" yaml:"history_cap"`
	KeepRecent    int           `mapstructure:"keep_recent" yaml:"keep_recent"`
	IdleDecay     time.Duration `mapstructure:"idle_decay" yaml:"idle_decay"`
	DecayFactor   float64       `mapstructure:"decay_factor" yaml:"decay_factor"`
	FallbackLines []string      `mapstructure:"fallback_lines" yaml:"fallback_lines,omitempty"`
}

// PresenceConfig toggles the idle loops
type PresenceConfig struct {
	Breathing          bool          `mapstructure:"breathing" yaml:"breathing"`
	Blinking           bool          `mapstructure:"blinking" yaml:"blinking"`
	Gaze               bool          `mapstructure:"gaze" yaml:"gaze"`
	MicroMovement      bool          `mapstructure:"micro_movement" yaml:"micro_movement"`
	BreathingIntensity float64       `mapstructure:"breathing_intensity" yaml:"breathing_intensity"`
	BlinkInterval      time.Duration `mapstructure:"blink_interval" yaml:"blink_interval"`
}

// GazeConfig bounds the retarget interval
type GazeConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval" yaml:"min_interval"`
	MaxInterval time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
}

// ServerConfig configures the HTTP API and render loop
type ServerConfig struct {
	Addr       string `mapstructure:"addr" yaml:"addr"`
	TickRate   int    `mapstructure:"tick_rate" yaml:"tick_rate"`     // body updates per second
	StreamRate int    `mapstructure:"stream_rate" yaml:"stream_rate"` // pose frames per second
}

// JournalConfig configures the transcript store
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig configures logging
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	dir, _ := GetConfigDir()
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Timeout:     30 * time.Second,
			MaxTokens:   400,
			Temperature: 0.7,
		},
		Agent: AgentConfig{
			HistoryCap:  20,
			KeepRecent:  10,
			IdleDecay:   5 * time.Minute,
			DecayFactor: 0.7,
		},
		Presence: PresenceConfig{
			Breathing:          true,
			Blinking:           true,
			Gaze:               true,
			MicroMovement:      true,
			BreathingIntensity: 0.03,
			BlinkInterval:      4 * time.Second,
		},
		Gaze: GazeConfig{
			MinInterval: 2 * time.Second,
			MaxInterval: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr:       "127.0.0.1:8585",
			TickRate:   60,
			StreamRate: 30,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "journal.db"),
		},
		Log: LogConfig{
			Level:   "info",
			Dir:     filepath.Join(dir, "logs"),
			Console: true,
		},
	}
}

// Load reads configuration from file and environment. An empty path
// searches the config directory and the working directory, writing a
// default file into the config directory when none exists.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	v, err := newViper(cfg)
	if err != nil {
		return cfg, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		configDir, err := GetConfigDir()
		if err != nil {
			return cfg, err
		}
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return cfg, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Save(cfg); err != nil {
			return cfg, fmt.Errorf("write default config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// newViper returns a viper instance seeded with cfg as defaults, so every
// key is known to the environment lookup.
func newViper(cfg *Config) (*viper.Viper, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var defaults map[string]any
	if err := yaml.Unmarshal(raw, &defaults); err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// Save writes the configuration to the config directory
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return SaveAs(cfg, filepath.Join(configDir, "config.yaml"))
}

// SaveAs writes the configuration to path
func SaveAs(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	v := viper.New()
	v.Set("llm", cfg.LLM)
	v.Set("agent", cfg.Agent)
	v.Set("presence", cfg.Presence)
	v.Set("gaze", cfg.Gaze)
	v.Set("server", cfg.Server)
	v.Set("journal", cfg.Journal)
	v.Set("log", cfg.Log)
	return v.WriteConfigAs(path)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, dirName), nil
}
