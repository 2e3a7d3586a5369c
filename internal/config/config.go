package config

import "time"

// Config holds service configuration values.
type Config struct {
	// Addr is the HTTP listen address for the local API.
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// LobbyURL is the websocket endpoint of the lobby service.
	LobbyURL string `mapstructure:"lobby_url" yaml:"lobby_url"`
	// OpTimeout bounds a single lobby round trip.
	OpTimeout time.Duration `mapstructure:"op_timeout" yaml:"op_timeout"`
	// TaskBuffer sizes the owning goroutine's task queue.
	TaskBuffer int `mapstructure:"task_buffer" yaml:"task_buffer"`

	// Platform is the simplified native platform name reported in crossplay
	// records (for example "PC" or "PS5").
	Platform string `mapstructure:"platform" yaml:"platform"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`

	TokenSecret   string        `mapstructure:"token_secret" yaml:"token_secret"`
	TokenIssuer   string        `mapstructure:"token_issuer" yaml:"token_issuer"`
	TokenAudience string        `mapstructure:"token_audience" yaml:"token_audience"`
	TokenTTL      time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LobbyURL:          "ws://localhost:7680/lobby",
		OpTimeout:         10 * time.Second,
		TaskBuffer:        256,
		Platform:          "PC",
		DatabasePath:      "partyhub.db",
		LogLevel:          "info",
		TokenSecret:       "change-me",
		TokenIssuer:       "partyhub",
		TokenAudience:     "partyhub-clients",
		TokenTTL:          24 * time.Hour,
	}
}
