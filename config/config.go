// Package config defines the service configuration and its loader.
// Precedence: defaults, then YAML file, then environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	// Server holds the HTTP listener settings.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Participant configures the default local chat participant.
	Participant ParticipantConfig `yaml:"participant" env:"PARTICIPANT"`

	// Group configures the round-robin group topology.
	Group GroupConfig `yaml:"group" env:"GROUP"`

	// Store selects and configures the thread store backend.
	Store StoreConfig `yaml:"store" env:"STORE"`

	// Remotes lists remote agents to join the conversation.
	Remotes []RemoteConfig `yaml:"remotes"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configures OTel export.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the API listens on.
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// ReadTimeout bounds reading the request, including the body.
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// WriteTimeout bounds writing the response. Zero disables it, which
	// streaming responses require.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// RateLimitRPS is the sustained request rate per instance.
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// RateLimitBurst is the burst allowance on top of RateLimitRPS.
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// MaxConcurrentTurns bounds turns executing at once across conversations.
	MaxConcurrentTurns int64 `yaml:"max_concurrent_turns" env:"MAX_CONCURRENT_TURNS"`
}

// ParticipantConfig configures the default local chat participant.
type ParticipantConfig struct {
	// Name identifies the participant in transcripts and store keys.
	Name string `yaml:"name" env:"NAME"`
	// Model names the backend model requested from the provider.
	Model string `yaml:"model" env:"MODEL"`
	// SystemPrompt steers the participant.
	SystemPrompt string `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
	// Greeting is the reply to an empty opening message.
	Greeting string `yaml:"greeting" env:"GREETING"`
	// Timeout is the budget for one turn against the provider.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Replies feed the scripted demo provider; a live backend replaces
	// them by wiring a different llm.Provider.
	Replies []string `yaml:"replies" env:"REPLIES"`
}

// GroupConfig configures the round-robin group topology.
type GroupConfig struct {
	// Enabled turns the API's default participant into a group.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Name identifies the group in transcripts and store keys.
	Name string `yaml:"name" env:"NAME"`
	// MaxIterations is how many full passes over the roster one turn runs.
	MaxIterations int `yaml:"max_iterations" env:"MAX_ITERATIONS"`
}

// StoreConfig selects and configures the thread store backend.
type StoreConfig struct {
	// Type is the backend: memory, redis, or sqlite.
	Type string `yaml:"type" env:"TYPE"`
	// Redis applies when Type is redis.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
	// SQLite applies when Type is sqlite.
	SQLite SQLiteConfig `yaml:"sqlite" env:"SQLITE"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	// KeyPrefix namespaces every key written by this service.
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// TTL expires idle conversations; zero keeps them forever.
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	// Path is the database file; ":memory:" keeps it in process.
	Path string `yaml:"path" env:"PATH"`
}

// RemoteConfig describes one remote agent endpoint.
type RemoteConfig struct {
	// Name overrides the identity from the resolved agent card.
	Name string `yaml:"name"`
	// URL is the remote agent's base URL.
	URL string `yaml:"url"`
	// CardPath overrides the well-known card location.
	CardPath string `yaml:"card_path"`
	// Timeout is the budget for one forwarded turn.
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap sink URLs.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig configures OTel export.
type TelemetryConfig struct {
	// Enabled gates all exporters; disabled keeps global providers noop.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLPEndpoint is the gRPC collector address.
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// ServiceName tags exported spans and metrics.
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Validate reports configuration errors a running service could not recover
// from.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MaxConcurrentTurns <= 0 {
		errs = append(errs, "max_concurrent_turns must be positive")
	}
	if c.Participant.Name == "" {
		errs = append(errs, "participant name must not be empty")
	}
	if c.Group.Enabled && c.Group.MaxIterations <= 0 {
		errs = append(errs, "group max_iterations must be positive")
	}
	switch c.Store.Type {
	case "memory", "redis", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unknown store type %q", c.Store.Type))
	}
	for i, r := range c.Remotes {
		if r.URL == "" {
			errs = append(errs, fmt.Sprintf("remote %d has no url", i))
		}
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be in [0, 1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
