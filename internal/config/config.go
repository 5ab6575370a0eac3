// Package config centralizes all application configuration into typed structs.
//
// Go Learning Note — Configuration Management:
// Go projects typically manage configuration in one of these ways:
//  1. Struct literals with defaults
//  2. Environment variables via os.Getenv() or os.LookupEnv()
//  3. Config files (YAML/TOML)
//  4. Command-line flags via the standard "flag" package
//
// This package combines 1 and 2: NewDefaultConfig() gives a working local
// setup, and LoadFromEnv() lets a deployment override any of it with
// RIDEHAIL_* variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "RIDEHAIL_"

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// DefaultJWTSecret only suits a local run. It is public, so Validate refuses
// it whenever POST /auth/token is exposed.
const DefaultJWTSecret = "dev-secret-change-me"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the top-level configuration container. Grouping related settings
// into sub-structs keeps the config organized as the application grows.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Messaging MessagingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig controls bearer tokens. AllowTokenIssue exposes POST
// /auth/token, which hands out tokens to anyone and is for development only.
type AuthConfig struct {
	JWTSecret       string
	TokenTTL        time.Duration
	AllowTokenIssue bool
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Driver      string
	PostgresDSN string
	SQLitePath  string
	MaxConns    int32
}

// MessagingConfig enables the RabbitMQ publisher when AMQPURL is set.
type MessagingConfig struct {
	AMQPURL         string
	Exchange        string
	Queue           string
	ConnectAttempts int
	ConnectBackoff  time.Duration
}

// NewDefaultConfig returns a Config populated with defaults suitable for a
// local run: in-memory storage, no broker, token issuing disabled.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret:       DefaultJWTSecret,
			TokenTTL:        time.Hour,
			AllowTokenIssue: false,
		},
		Storage: StorageConfig{
			Driver:     StorageMemory,
			SQLitePath: "data/ridehail.db",
			MaxConns:   10,
		},
		Messaging: MessagingConfig{
			Exchange:        "ride_topic",
			Queue:           "ride_created",
			ConnectAttempts: 10,
			ConnectBackoff:  3 * time.Second,
		},
	}
}

// LoadFromEnv starts from the defaults and applies RIDEHAIL_* overrides.
func LoadFromEnv() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	cfg := NewDefaultConfig()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(envPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("PORT", &cfg.Server.Port)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	dur("TOKEN_TTL", &cfg.Auth.TokenTTL)
	boolean("ALLOW_TOKEN_ISSUE", &cfg.Auth.AllowTokenIssue)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("AMQP_URL", &cfg.Messaging.AMQPURL)
	str("AMQP_EXCHANGE", &cfg.Messaging.Exchange)
	str("AMQP_QUEUE", &cfg.Messaging.Queue)

	if cfg.Server.Port != "" && !strings.Contains(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres storage needs %sPOSTGRES_DSN", ErrInvalidConfig, envPrefix)
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite storage needs %sSQLITE_PATH", ErrInvalidConfig, envPrefix)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("%w: %sJWT_SECRET must not be empty", ErrInvalidConfig, envPrefix)
	}
	if c.Auth.AllowTokenIssue && c.Auth.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("%w: %sALLOW_TOKEN_ISSUE needs %sJWT_SECRET set to a private value", ErrInvalidConfig, envPrefix, envPrefix)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: token TTL must be positive", ErrInvalidConfig)
	}
	if c.Messaging.AMQPURL != "" && c.Messaging.Exchange == "" {
		return fmt.Errorf("%w: %sAMQP_EXCHANGE must not be empty", ErrInvalidConfig, envPrefix)
	}
	return nil
}
