package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/teamroster/internal/api/middleware"
	"github.com/mcoot/teamroster/internal/api/request"
	"github.com/mcoot/teamroster/internal/api/response"
	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/roster"
)

// ScoutingHandler handles scouting report endpoints
type ScoutingHandler struct {
	rosterService *roster.Service
	logger        *slog.Logger
}

// NewScoutingHandler creates a new scouting handler
func NewScoutingHandler(rosterService *roster.Service, logger *slog.Logger) *ScoutingHandler {
	return &ScoutingHandler{
		rosterService: rosterService,
		logger:        logger,
	}
}

// List handles GET /api/teams/{team_id}/scouting-reports
func (h *ScoutingHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	teamID, err := pathID(r, "team_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	reports, err := h.rosterService.ListScoutingReports(r.Context(), identity, model.TeamID(teamID))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ScoutingReportsFromModel(reports))
}

// Create handles POST /api/teams/{team_id}/scouting-reports
func (h *ScoutingHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	teamID, err := pathID(r, "team_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req request.ScoutingReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	report, err := h.rosterService.CreateScoutingReport(r.Context(), identity, model.TeamID(teamID), roster.ReportInput{
		Opponent: req.Opponent,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.ScoutingReportFromModel(report))
}
