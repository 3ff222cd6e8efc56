package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/teamroster/internal/api"
	"github.com/mcoot/teamroster/internal/config"
	"github.com/mcoot/teamroster/internal/factory"
	"github.com/mcoot/teamroster/internal/seed"
	"github.com/mcoot/teamroster/internal/storage"
	"github.com/mcoot/teamroster/internal/storage/postgres"
	redisstorage "github.com/mcoot/teamroster/internal/storage/redis"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "roster-server",
		Short:         "Team roster API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServer,
	}
	config.RegisterFlags(cmd.Flags())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(cmd.Flags(), path)
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return err
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := factory.New(ctx, factoryConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("closing storage", slog.Any("error", err))
		}
	}()

	if cfg.Seed.File != "" {
		if err := applySeed(ctx, app, cfg.Seed.File); err != nil {
			logger.Error("failed to seed", slog.Any("error", err))
			return err
		}
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	server := api.NewServer(app.Router(), serverConfig, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.Any("error", err))
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}

func factoryConfig(cfg *config.Config, logger *slog.Logger) factory.Config {
	startup := storage.StartupRetry{
		Attempts: cfg.Startup.RetryAttempts,
		Interval: cfg.Startup.RetryInterval,
	}

	fc := factory.Config{
		Logger:      logger,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		StorageType: cfg.Storage.Type,
	}
	switch cfg.Storage.Type {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		redisCfg.Startup = startup
		fc.RedisConfig = &redisCfg
	case config.StoragePostgres:
		fc.PostgresConfig = &postgres.Config{
			URL:     cfg.Database.URL,
			Migrate: cfg.Database.Migrate,
			Startup: startup,
		}
	}
	return fc
}

func applySeed(ctx context.Context, app *factory.App, path string) error {
	f, err := seed.Load(path)
	if err != nil {
		return err
	}
	result, err := seed.New(app.Storage, app.Hasher, app.Clock, app.Logger).Apply(ctx, f)
	if err != nil {
		return err
	}
	app.Logger.Info("seed applied",
		slog.Int("teams_created", result.TeamsCreated),
		slog.Int("teams_skipped", result.TeamsSkipped),
		slog.Int("games_created", result.GamesCreated),
	)
	return nil
}
