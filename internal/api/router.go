package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/teamroster/internal/api/apierr"
	"github.com/mcoot/teamroster/internal/api/handler"
	apimiddleware "github.com/mcoot/teamroster/internal/api/middleware"
	"github.com/mcoot/teamroster/internal/middleware"
	"github.com/mcoot/teamroster/internal/services/auth"
	"github.com/mcoot/teamroster/internal/services/roster"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger        *slog.Logger
	AuthService   *auth.Service
	RosterService *roster.Service
	// Pinger backs the health check; nil reports healthy unconditionally
	Pinger handler.Pinger
	// Gatherer is exposed on /metrics when set
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, nil, apierr.NewNotFoundError())
	})

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	teamHandler := handler.NewTeamHandler(cfg.RosterService, cfg.Logger)
	playerHandler := handler.NewPlayerHandler(cfg.RosterService, cfg.Logger)
	scoutingHandler := handler.NewScoutingHandler(cfg.RosterService, cfg.Logger)
	healthHandler := handler.NewHealthHandler(cfg.Pinger, cfg.Logger)

	// Create middleware
	authMiddleware := apimiddleware.Auth(cfg.AuthService, cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api").Subrouter()
	api.Use(apimiddleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Metrics())

	// Auth routes (no token required except profile)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.Handle("/auth/profile", authMiddleware(http.HandlerFunc(authHandler.Profile))).Methods(http.MethodGet)

	// Team-scoped routes
	teams := api.PathPrefix("/teams").Subrouter()
	teams.Use(authMiddleware)
	teams.HandleFunc("", teamHandler.List).Methods(http.MethodGet)
	teams.HandleFunc("/{team_id:[0-9]+}/players", playerHandler.List).Methods(http.MethodGet)
	teams.HandleFunc("/{team_id:[0-9]+}/players", playerHandler.Create).Methods(http.MethodPost)
	teams.HandleFunc("/{team_id:[0-9]+}/scouting-reports", scoutingHandler.List).Methods(http.MethodGet)
	teams.HandleFunc("/{team_id:[0-9]+}/scouting-reports", scoutingHandler.Create).Methods(http.MethodPost)
	teams.HandleFunc("/{team_id:[0-9]+}/games", teamHandler.Games).Methods(http.MethodGet)

	// Player routes addressed by player id
	players := api.PathPrefix("/players").Subrouter()
	players.Use(authMiddleware)
	players.HandleFunc("/{player_id:[0-9]+}", playerHandler.Update).Methods(http.MethodPut)
	players.HandleFunc("/{player_id:[0-9]+}", playerHandler.Delete).Methods(http.MethodDelete)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return r
}
