package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the honeypot service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Report     ReportConfig     `mapstructure:"report"`
	Engagement EngagementConfig `mapstructure:"engagement"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
	// APIKey is the shared secret expected in the X-API-Key header.
	APIKey string `mapstructure:"api_key"`
	// StaticDir serves the demo UI when set; empty disables it.
	StaticDir string `mapstructure:"static_dir"`
}

func (s ServerConfig) Validate() error {
	if s.APIKey == "" {
		return errors.New("server.api_key must be configured")
	}
	return nil
}

// LLMConfig configures the external dialogue service.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	if l.BaseURL == "" {
		return errors.New("llm.base_url must be configured")
	}
	if l.Timeout <= 0 {
		return errors.New("llm.timeout must be > 0")
	}
	return nil
}

// ReportConfig configures delivery to the external collector.
// An empty callback URL disables reporting entirely.
type ReportConfig struct {
	CallbackURL string        `mapstructure:"callback_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// Policy is "once" (one report per session) or "every-turn"
	// (re-deliver on every qualifying turn).
	Policy string `mapstructure:"policy"`
}

func (r ReportConfig) Validate() error {
	switch r.Policy {
	case "once", "every-turn":
	default:
		return fmt.Errorf("report.policy must be \"once\" or \"every-turn\", got %q", r.Policy)
	}
	if r.CallbackURL != "" && r.Timeout <= 0 {
		return errors.New("report.timeout must be > 0")
	}
	return nil
}

// EngagementConfig tunes the conversation engine.
type EngagementConfig struct {
	// EscalationTurns is the turn count at which a session escalates
	// even without critical intelligence.
	EscalationTurns int `mapstructure:"escalation_turns"`
	// PersonaScript overrides the built-in persona when set.
	PersonaScript string `mapstructure:"persona_script"`
}

func (e EngagementConfig) Validate() error {
	if e.EscalationTurns <= 0 {
		return errors.New("engagement.escalation_turns must be > 0")
	}
	return nil
}

// StorageConfig selects the session ledger backend.
type StorageConfig struct {
	// SessionStore is "inmemory" or "redis".
	SessionStore string      `mapstructure:"session_store"`
	Redis        RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains redis connection settings for the optional
// redis-backed session ledger.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (s StorageConfig) Validate() error {
	switch s.SessionStore {
	case "inmemory":
	case "redis":
		if s.Redis.Host == "" || s.Redis.Port == "" {
			return errors.New("storage.redis.host/port must be configured for the redis session store")
		}
	default:
		return fmt.Errorf("storage.session_store must be \"inmemory\" or \"redis\", got %q", s.SessionStore)
	}
	return nil
}

// TelemetryConfig controls the prometheus metrics endpoint.
type TelemetryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// LoadConfig reads configuration from an optional file plus DECOY_*
// environment variables. It panics on malformed configuration; a
// missing config file is fine, env and defaults carry the day.
func LoadConfig(path string) *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Every key gets a default so DECOY_* env overrides survive
	// Unmarshal (viper only binds env for keys it already knows).
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "google/gemma-2-27b-it")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 300)
	v.SetDefault("llm.timeout", "15s")
	v.SetDefault("report.callback_url", "")
	v.SetDefault("report.timeout", "5s")
	v.SetDefault("report.policy", "once")
	v.SetDefault("engagement.escalation_turns", 5)
	v.SetDefault("engagement.persona_script", "")
	v.SetDefault("storage.session_store", "inmemory")
	v.SetDefault("storage.redis.host", "")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.namespace", "decoy")

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("DECOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	for _, err := range []error{
		config.Server.Validate(),
		config.LLM.Validate(),
		config.Report.Validate(),
		config.Engagement.Validate(),
		config.Storage.Validate(),
	} {
		if err != nil {
			panic(err)
		}
	}
	return &config
}
