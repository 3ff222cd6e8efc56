package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/teamroster/internal/api/middleware"
	"github.com/mcoot/teamroster/internal/api/request"
	"github.com/mcoot/teamroster/internal/api/response"
	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/auth"
	"github.com/mcoot/teamroster/internal/services/roster"
)

// PlayerHandler handles roster endpoints
type PlayerHandler struct {
	rosterService *roster.Service
	logger        *slog.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(rosterService *roster.Service, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{
		rosterService: rosterService,
		logger:        logger,
	}
}

// List handles GET /api/teams/{team_id}/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	teamID, err := pathID(r, "team_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	players, err := h.rosterService.ListPlayers(r.Context(), identity, model.TeamID(teamID))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayersFromModel(players))
}

// Create handles POST /api/teams/{team_id}/players
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	teamID, err := pathID(r, "team_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	in, err := playerInput(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	player, err := h.rosterService.CreatePlayer(r.Context(), identity, model.TeamID(teamID), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(player))
}

// Update handles PUT /api/players/{player_id}
func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	playerID, err := pathID(r, "player_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	in, err := playerInput(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	player, err := h.rosterService.UpdatePlayer(r.Context(), identity, model.PlayerID(playerID), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// Delete handles DELETE /api/players/{player_id}
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	playerID, err := pathID(r, "player_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.rosterService.DeletePlayer(r.Context(), identity, model.PlayerID(playerID)); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}

func playerInput(w http.ResponseWriter, r *http.Request) (roster.PlayerInput, error) {
	var req request.PlayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return roster.PlayerInput{}, err
	}
	if req.JerseyNumber == nil {
		return roster.PlayerInput{}, &auth.ValidationError{Fields: []auth.FieldError{
			{Field: "jersey_number", Message: "is required"},
		}}
	}
	return roster.PlayerInput{
		Name:         req.Name,
		JerseyNumber: *req.JerseyNumber,
		Position:     req.Position,
	}, nil
}
