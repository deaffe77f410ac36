package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Session SessionConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" default:"3000"`
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// BackendConfig points at the disclosure answering service.
type BackendConfig struct {
	URL     string        `envconfig:"DISCLOSURE_API_URL" default:"http://localhost:8001"`
	Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"5m"`
}

type SessionConfig struct {
	TTL             time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	CleanupInterval time.Duration `envconfig:"SESSION_CLEANUP_INTERVAL" default:"10m"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("configuration loaded successfully", "backend_url", cfg.Backend.URL)
	return &cfg, nil
}
