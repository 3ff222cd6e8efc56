package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/teamroster/internal/api/middleware"
	"github.com/mcoot/teamroster/internal/api/response"
	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/roster"
)

// TeamHandler handles the caller's team list and team schedules
type TeamHandler struct {
	rosterService *roster.Service
	logger        *slog.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(rosterService *roster.Service, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{
		rosterService: rosterService,
		logger:        logger,
	}
}

// List handles GET /api/teams
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	teams, err := h.rosterService.MyTeams(r.Context(), identity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TeamSummariesFromService(teams))
}

// Games handles GET /api/teams/{team_id}/games
func (h *TeamHandler) Games(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	teamID, err := pathID(r, "team_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	games, err := h.rosterService.ListGames(r.Context(), identity, model.TeamID(teamID))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GamesFromModel(games))
}
