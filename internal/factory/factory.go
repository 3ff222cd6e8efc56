package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/teamroster/internal/api"
	"github.com/mcoot/teamroster/internal/api/handler"
	"github.com/mcoot/teamroster/internal/dependencies/clock"
	"github.com/mcoot/teamroster/internal/metrics"
	"github.com/mcoot/teamroster/internal/services/auth"
	"github.com/mcoot/teamroster/internal/services/guard"
	"github.com/mcoot/teamroster/internal/services/membership"
	"github.com/mcoot/teamroster/internal/services/password"
	"github.com/mcoot/teamroster/internal/services/roster"
	"github.com/mcoot/teamroster/internal/services/token"
	"github.com/mcoot/teamroster/internal/storage"
	"github.com/mcoot/teamroster/internal/storage/memory"
	"github.com/mcoot/teamroster/internal/storage/postgres"
	redisstorage "github.com/mcoot/teamroster/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeRedis    = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Logger *slog.Logger

	// Services
	Hasher        password.Hasher
	Tokens        *token.Issuer
	Resolver      *membership.Resolver
	Guard         *guard.Guard
	AuthService   *auth.Service
	RosterService *roster.Service

	// Registry holds the application's Prometheus collectors
	Registry *prometheus.Registry

	// pinger is the storage health check, nil for memory storage
	pinger handler.Pinger
	closer io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// JWTSecret signs session tokens. Must be at least token.MinSecretLength bytes.
	JWTSecret []byte
	// StorageType selects the storage backend ("memory", "postgres" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds database settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config
}

// New creates a new application with all dependencies wired. Connecting to
// an external backend waits according to that backend's startup policy.
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var (
		store  storage.Storage
		pinger handler.Pinger
		closer io.Closer
	)
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(ctx, *cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store, pinger, closer = redisStore, redisStore, redisStore
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := postgres.Connect(ctx, *cfg.PostgresConfig)
		if err != nil {
			return nil, err
		}
		store, pinger, closer = pgStore, pgStore, pgStore
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'postgres' or 'redis'", storageType)
	}

	hasher, err := password.NewBcryptHasher()
	if err != nil {
		closeQuietly(closer)
		return nil, err
	}

	app, err := newWithDependencies(store, clock.New(), hasher, cfg.JWTSecret, logger)
	if err != nil {
		closeQuietly(closer)
		return nil, err
	}
	app.pinger = pinger
	app.closer = closer
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, hasher password.Hasher, secret []byte, logger *slog.Logger) (*App, error) {
	tokens, err := token.NewIssuer(secret, clk)
	if err != nil {
		return nil, err
	}

	// Create services
	resolver := membership.New(store)
	g := guard.New(store, resolver, logger)
	authService := auth.New(store, hasher, tokens, clk, logger)
	rosterService := roster.New(store, g, resolver, clk, logger)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	return &App{
		Storage:       store,
		Clock:         clk,
		Logger:        logger,
		Hasher:        hasher,
		Tokens:        tokens,
		Resolver:      resolver,
		Guard:         g,
		AuthService:   authService,
		RosterService: rosterService,
		Registry:      registry,
	}, nil
}

// Router builds the HTTP handler serving the API and /metrics
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:        a.Logger,
		AuthService:   a.AuthService,
		RosterService: a.RosterService,
		Pinger:        a.pinger,
		Gatherer:      a.Registry,
	})
}

// Close releases the storage connection, if any
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
