// Package config loads service configuration from defaults, an optional
// config file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CHAT_SERVER_PORT.
const EnvPrefix = "CHAT"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Bcrypt    BcryptConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Realtime  RealtimeConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            int
	CORSOrigins     string
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres". Empty picks postgres when URL is set.
	Driver   string
	Path     string
	URL      string
	MaxConns int32
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

type JWTConfig struct {
	Secret          string
	Issuer          string
	AccessDuration  time.Duration
	RefreshDuration time.Duration
}

type BcryptConfig struct {
	Cost int
}

type RedisConfig struct {
	// Addr is empty to run without Redis.
	Addr string
}

type RateLimitConfig struct {
	MessagesPerMinute int
}

type RealtimeConfig struct {
	RequireAuth     bool
	SendBuffer      int
	EventsPerSecond float64
	EventBurst      int
}

type LogConfig struct {
	// Level is "info" or "error".
	Level string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.cors_origins", "http://localhost:5173")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.path", "chat.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "chat123")
	v.SetDefault("jwt.access_duration", time.Hour)
	v.SetDefault("jwt.refresh_duration", 7*24*time.Hour)

	v.SetDefault("bcrypt.cost", 12)

	v.SetDefault("redis.addr", "")

	v.SetDefault("ratelimit.messages_per_minute", 30)

	v.SetDefault("realtime.require_auth", false)
	v.SetDefault("realtime.send_buffer", 256)
	v.SetDefault("realtime.events_per_second", 20.0)
	v.SetDefault("realtime.event_burst", 40)

	v.SetDefault("log.level", "info")
}

// Load reads configuration into a Config. configFile may be empty, in which
// case ./config.yaml is used when present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by existing deployments.
	aliases := map[string]string{
		"server.port":         "PORT",
		"server.cors_origins": "CORS_ALLOWED_ORIGINS",
		"database.url":        "DATABASE_URL",
		"jwt.secret":          "JWT_SECRET_KEY",
		"redis.addr":          "REDIS_ADDR",
	}
	for key, env := range aliases {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			CORSOrigins:     v.GetString("server.cors_origins"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("database.driver")),
			Path:     v.GetString("database.path"),
			URL:      v.GetString("database.url"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			Issuer:          v.GetString("jwt.issuer"),
			AccessDuration:  v.GetDuration("jwt.access_duration"),
			RefreshDuration: v.GetDuration("jwt.refresh_duration"),
		},
		Bcrypt: BcryptConfig{
			Cost: v.GetInt("bcrypt.cost"),
		},
		Redis: RedisConfig{
			Addr: v.GetString("redis.addr"),
		},
		RateLimit: RateLimitConfig{
			MessagesPerMinute: v.GetInt("ratelimit.messages_per_minute"),
		},
		Realtime: RealtimeConfig{
			RequireAuth:     v.GetBool("realtime.require_auth"),
			SendBuffer:      v.GetInt("realtime.send_buffer"),
			EventsPerSecond: v.GetFloat64("realtime.events_per_second"),
			EventBurst:      v.GetInt("realtime.event_burst"),
		},
		Log: LogConfig{
			Level: strings.ToLower(v.GetString("log.level")),
		},
	}

	// Without an explicit driver a database URL selects postgres.
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
		if cfg.Database.URL != "" {
			cfg.Database.Driver = "postgres"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.JWT.AccessDuration <= 0 || c.JWT.RefreshDuration <= 0 {
		return errors.New("jwt durations must be positive")
	}
	switch c.Log.Level {
	case "info", "error":
	default:
		return fmt.Errorf("unsupported log.level %q", c.Log.Level)
	}
	return nil
}
