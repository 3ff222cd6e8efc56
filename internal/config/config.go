// Package config loads server configuration from defaults, an optional
// YAML file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/mcoot/teamroster/internal/services/token"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// SecretEnvVar supplies auth.jwt_secret when neither file nor flag set it
const SecretEnvVar = "ROSTER_JWT_SECRET"

// Config is the complete server configuration
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Storage  StorageConfig  `koanf:"storage"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	Startup  StartupConfig  `koanf:"startup"`
	Seed     SeedConfig     `koanf:"seed"`
}

type HTTPConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type StorageConfig struct {
	Type string `koanf:"type"`
}

type DatabaseConfig struct {
	URL     string `koanf:"url"`
	Migrate bool   `koanf:"migrate"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SeedConfig names a YAML file of teams to create at startup
type SeedConfig struct {
	File string `koanf:"file"`
}

type StartupConfig struct {
	RetryAttempts uint64        `koanf:"retry_attempts"`
	RetryInterval time.Duration `koanf:"retry_interval"`
}

// RegisterFlags defines every configuration key as a flag on fs. Flag
// defaults are the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML configuration file")
	fs.String("http.host", "", "address to listen on")
	fs.Int("http.port", 8080, "port to listen on")
	fs.String("storage.type", StorageMemory, "storage backend: memory, postgres or redis")
	fs.String("database.url", "", "PostgreSQL connection URL")
	fs.Bool("database.migrate", false, "apply schema migrations at startup")
	fs.String("redis.url", "redis://localhost:6379", "Redis connection URL")
	fs.String("auth.jwt_secret", "", "HMAC secret for session tokens (at least 32 bytes)")
	fs.String("log.level", "info", "log level: debug, info, warn or error")
	fs.String("log.format", "json", "log format: json or text")
	fs.Uint64("startup.retry_attempts", 10, "times to retry reaching storage at startup")
	fs.Duration("startup.retry_interval", time.Second, "delay between startup retries")
	fs.String("seed.file", "", "YAML file of teams to create at startup")
}

// Load builds the configuration. Values from the file at path override flag
// defaults, and flags set explicitly override the file.
func Load(fs *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// posflag only applies unchanged flag defaults for keys the file left unset
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("loading flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = os.Getenv(SecretEnvVar)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Type {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required when storage.type is postgres"))
		}
	case StorageRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required when storage.type is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be memory, postgres or redis, got %q", c.Storage.Type))
	}

	if len(c.Auth.JWTSecret) < token.MinSecretLength {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d bytes", token.MinSecretLength))
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// NewLogger builds the process logger described by c
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
