// Package config handles loading and validating the shadowcast configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the shadowcast daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Narration  NarrationConfig  `mapstructure:"narration"`
	Typewriter TypewriterConfig `mapstructure:"typewriter"`
	Player     PlayerConfig     `mapstructure:"player"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC health transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP API transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// EndpointConfig describes how to reach one vendor API.
type EndpointConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// ChatConfig selects and configures the text-generation backend.
type ChatConfig struct {
	Provider    string                    `mapstructure:"provider"` // "openai", "glm", "anthropic", "gemini"
	Temperature float64                   `mapstructure:"temperature"`
	MaxTokens   int                       `mapstructure:"max_tokens"`
	Providers   map[string]EndpointConfig `mapstructure:"providers"`
}

// Endpoint returns the endpoint settings of the selected chat provider.
func (c ChatConfig) Endpoint() EndpointConfig {
	return c.Providers[c.Provider]
}

// SpeechConfig selects and configures the text-to-speech backend.
type SpeechConfig struct {
	Provider  string                    `mapstructure:"provider"` // "openai", "glm", "azure", "gemini", "piper"
	Voice     string                    `mapstructure:"voice"`
	Model     string                    `mapstructure:"model"`
	Speed     float64                   `mapstructure:"speed"`
	Providers map[string]EndpointConfig `mapstructure:"providers"`
	Piper     PiperConfig               `mapstructure:"piper"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`  // Wyoming TCP endpoint (host:port)
	Endpoints map[string]string `mapstructure:"endpoints"` // language -> host:port overrides
	Voices    map[string]string `mapstructure:"voices"`    // language -> voice name overrides
}

// NarrationConfig bounds the prefetch/playback scheduler.
type NarrationConfig struct {
	PrefetchWindow  int `mapstructure:"prefetch_window"`
	MaxConcurrency  int `mapstructure:"max_concurrency"`
	MaxSegmentChars int `mapstructure:"max_segment_chars"`
}

// TypewriterConfig controls the reveal rate of streamed text.
type TypewriterConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	ChunkSize int           `mapstructure:"chunk_size"`
}

// PlayerConfig selects the audio output device.
type PlayerConfig struct {
	Backend string `mapstructure:"backend"` // "exec" or "discard"
	Command string `mapstructure:"command"` // used by the exec backend; {file} is replaced by the clip path
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./shadowcast.yaml, ./configs/shadowcast.yaml, /etc/shadowcast/shadowcast.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("shadowcast")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/shadowcast")
	}

	// Environment variables: SHADOWCAST_CHAT_PROVIDER, SHADOWCAST_SPEECH_VOICE, etc.
	v.SetEnvPrefix("SHADOWCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	for name, ep := range cfg.Chat.Providers {
		ep.APIKey = resolveEnvRef(ep.APIKey)
		cfg.Chat.Providers[name] = ep
	}
	for name, ep := range cfg.Speech.Providers {
		ep.APIKey = resolveEnvRef(ep.APIKey)
		cfg.Speech.Providers[name] = ep
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)

	v.SetDefault("chat.provider", "openai")
	v.SetDefault("chat.temperature", 0.7)
	v.SetDefault("chat.max_tokens", 2048)
	v.SetDefault("chat.providers.openai.base_url", "https://api.openai.com")
	v.SetDefault("chat.providers.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("chat.providers.openai.model", "gpt-4o-mini")
	v.SetDefault("chat.providers.glm.base_url", "https://open.bigmodel.cn")
	v.SetDefault("chat.providers.glm.api_key", "${GLM_API_KEY}")
	v.SetDefault("chat.providers.glm.model", "glm-4-flash")
	v.SetDefault("chat.providers.anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("chat.providers.anthropic.api_key", "${ANTHROPIC_API_KEY}")
	v.SetDefault("chat.providers.anthropic.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("chat.providers.gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("chat.providers.gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("chat.providers.gemini.model", "gemini-2.0-flash")

	v.SetDefault("speech.provider", "openai")
	v.SetDefault("speech.voice", "")
	v.SetDefault("speech.model", "")
	v.SetDefault("speech.speed", 0)
	v.SetDefault("speech.providers.openai.base_url", "")
	v.SetDefault("speech.providers.openai.api_key", "")
	v.SetDefault("speech.providers.azure.base_url", "")
	v.SetDefault("speech.providers.azure.api_key", "${AZURE_SPEECH_KEY}")
	v.SetDefault("speech.piper.endpoint", "localhost:10200")

	v.SetDefault("narration.prefetch_window", 2)
	v.SetDefault("narration.max_concurrency", 2)
	v.SetDefault("narration.max_segment_chars", 200)

	v.SetDefault("typewriter.interval", "20ms")
	v.SetDefault("typewriter.chunk_size", 3)

	v.SetDefault("player.backend", "exec")
	v.SetDefault("player.command", "ffplay -nodisp -autoexit -loglevel quiet {file}")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks value ranges. Provider ids are resolved by the registry.
func (c *Config) Validate() error {
	if c.Narration.PrefetchWindow < 1 {
		return errors.New("narration.prefetch_window must be >= 1")
	}
	if c.Narration.MaxConcurrency < 1 {
		return errors.New("narration.max_concurrency must be >= 1")
	}
	if c.Narration.MaxSegmentChars < 1 {
		return errors.New("narration.max_segment_chars must be >= 1")
	}
	if c.Typewriter.Interval <= 0 {
		return errors.New("typewriter.interval must be positive")
	}
	if c.Typewriter.ChunkSize < 1 {
		return errors.New("typewriter.chunk_size must be >= 1")
	}
	if c.Chat.MaxTokens < 0 {
		return errors.New("chat.max_tokens must be >= 0")
	}
	if c.Speech.Speed < 0 {
		return errors.New("speech.speed must be >= 0")
	}
	switch c.Player.Backend {
	case "exec":
		if strings.TrimSpace(c.Player.Command) == "" {
			return errors.New("player.command must be set when backend=exec")
		}
	case "discard":
	default:
		return fmt.Errorf("player.backend must be one of exec|discard, got %q", c.Player.Backend)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// SpeechEndpoint returns the endpoint of the selected speech provider. Blank
// fields fall back to the chat endpoint registered under the same vendor id,
// so a single OpenAI or GLM key serves both capabilities.
func (c *Config) SpeechEndpoint() EndpointConfig {
	ep := c.Speech.Providers[c.Speech.Provider]
	chat := c.Chat.Providers[c.Speech.Provider]
	if ep.BaseURL == "" {
		ep.BaseURL = chat.BaseURL
	}
	if ep.APIKey == "" {
		ep.APIKey = chat.APIKey
	}
	if c.Speech.Model != "" {
		ep.Model = c.Speech.Model
	}
	return ep
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
