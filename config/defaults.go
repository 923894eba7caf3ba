package config

import "time"

// DefaultConfig returns the shipped defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:      DefaultServerConfig(),
		Participant: DefaultParticipantConfig(),
		Group:       DefaultGroupConfig(),
		Store:       DefaultStoreConfig(),
		Log:         DefaultLogConfig(),
		Telemetry:   DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default listener settings. WriteTimeout is
// zero so streamed turns are never cut off by the server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:           8080,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       0,
		ShutdownTimeout:    15 * time.Second,
		RateLimitRPS:       100,
		RateLimitBurst:     200,
		MaxConcurrentTurns: 64,
	}
}

// DefaultParticipantConfig returns the default local participant.
func DefaultParticipantConfig() ParticipantConfig {
	return ParticipantConfig{
		Name:         "assistant",
		Model:        "gpt-4o",
		SystemPrompt: "You are a helpful assistant.",
		Timeout:      60 * time.Second,
	}
}

// DefaultGroupConfig returns the default group settings; the group topology
// is off by default.
func DefaultGroupConfig() GroupConfig {
	return GroupConfig{
		Enabled:       false,
		Name:          "roundtable",
		MaxIterations: 3,
	}
}

// DefaultStoreConfig returns the default store backend.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type: "memory",
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "roundtable:",
		},
		SQLite: SQLiteConfig{
			Path: "roundtable.db",
		},
	}
}

// DefaultLogConfig returns the default logging settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultTelemetryConfig returns the default telemetry settings.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "roundtable",
		SampleRate:   1.0,
	}
}
