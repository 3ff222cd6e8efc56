// Package roster implements the team-scoped endpoints: players, scouting
// reports and games. Every call is authorized through the guard before
// storage is touched.
package roster

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mcoot/teamroster/internal/dependencies/clock"
	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/auth"
	"github.com/mcoot/teamroster/internal/services/guard"
	"github.com/mcoot/teamroster/internal/services/membership"
	"github.com/mcoot/teamroster/internal/storage"
)

// Jersey numbers accepted on a roster
const (
	MinJerseyNumber = 0
	MaxJerseyNumber = 99
)

// PlayerInput holds the editable fields of a player
type PlayerInput struct {
	Name         string
	JerseyNumber int
	Position     string
}

// ReportInput holds the fields of a new scouting report
type ReportInput struct {
	Opponent string
	Notes    string
}

// TeamSummary is a team the caller belongs to together with their role there
type TeamSummary struct {
	Team    model.Team
	Role    model.Role
	IsAdmin bool
}

// Service handles roster, scouting and schedule operations
type Service struct {
	storage  storage.Storage
	guard    *guard.Guard
	resolver *membership.Resolver
	clock    clock.Clock
	logger   *slog.Logger
}

// New creates a new roster Service
func New(storage storage.Storage, guard *guard.Guard, resolver *membership.Resolver, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage:  storage,
		guard:    guard,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

// MyTeams lists the teams the caller is enrolled in
func (s *Service) MyTeams(ctx context.Context, id auth.Identity) ([]TeamSummary, error) {
	memberships, err := s.resolver.TeamsForUser(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	result := make([]TeamSummary, 0, len(memberships))
	for _, m := range memberships {
		role := s.resolver.RoleOn(id.UserID, m)
		result = append(result, TeamSummary{Team: m.Team, Role: role, IsAdmin: role == model.RoleAdmin})
	}
	return result, nil
}

// Player operations

// ListPlayers returns the team's roster ordered by jersey number
func (s *Service) ListPlayers(ctx context.Context, id auth.Identity, teamID model.TeamID) ([]*model.Player, error) {
	if _, err := s.guard.RequireMember(ctx, id, teamID); err != nil {
		return nil, err
	}
	return s.storage.ListPlayersForTeam(ctx, teamID)
}

// CreatePlayer adds a player to a team the caller administers
func (s *Service) CreatePlayer(ctx context.Context, id auth.Identity, teamID model.TeamID, in PlayerInput) (*model.Player, error) {
	if _, err := s.guard.RequireTeamAdmin(ctx, id, teamID); err != nil {
		return nil, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.guard.CheckJerseyAvailable(ctx, teamID, in.JerseyNumber, nil); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	player := &model.Player{
		TeamID:       teamID,
		Name:         in.Name,
		JerseyNumber: in.JerseyNumber,
		Position:     in.Position,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.CreatePlayer(ctx, player); err != nil {
		return nil, mapJerseyErr(err)
	}

	s.logger.Info("player created",
		slog.Int64("user_id", int64(id.UserID)),
		slog.Int64("team_id", int64(teamID)),
		slog.Int64("player_id", int64(player.ID)),
	)
	return player, nil
}

// UpdatePlayer replaces a player's editable fields. The owning team is
// resolved from the stored player, never from the request.
func (s *Service) UpdatePlayer(ctx context.Context, id auth.Identity, playerID model.PlayerID, in PlayerInput) (*model.Player, error) {
	owned, err := s.guard.RequirePlayerAdmin(ctx, id, playerID)
	if err != nil {
		return nil, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.guard.CheckJerseyAvailable(ctx, owned.Player.TeamID, in.JerseyNumber, &playerID); err != nil {
		return nil, err
	}

	player := owned.Player
	player.Name = in.Name
	player.JerseyNumber = in.JerseyNumber
	player.Position = in.Position
	player.UpdatedAt = s.clock.Now()
	if err := s.storage.UpdatePlayer(ctx, &player); err != nil {
		return nil, mapJerseyErr(err)
	}

	s.logger.Info("player updated",
		slog.Int64("user_id", int64(id.UserID)),
		slog.Int64("player_id", int64(playerID)),
	)
	return &player, nil
}

// DeletePlayer removes a player from its team
func (s *Service) DeletePlayer(ctx context.Context, id auth.Identity, playerID model.PlayerID) error {
	if _, err := s.guard.RequirePlayerAdmin(ctx, id, playerID); err != nil {
		return err
	}
	if err := s.storage.DeletePlayer(ctx, playerID); err != nil {
		return err
	}
	s.logger.Info("player deleted",
		slog.Int64("user_id", int64(id.UserID)),
		slog.Int64("player_id", int64(playerID)),
	)
	return nil
}

// Scouting operations

// ListScoutingReports returns a team's reports, newest first
func (s *Service) ListScoutingReports(ctx context.Context, id auth.Identity, teamID model.TeamID) ([]*model.ScoutingReport, error) {
	if _, err := s.guard.RequireMember(ctx, id, teamID); err != nil {
		return nil, err
	}
	return s.storage.ListScoutingReportsForTeam(ctx, teamID)
}

// CreateScoutingReport files a report on behalf of the team admin
func (s *Service) CreateScoutingReport(ctx context.Context, id auth.Identity, teamID model.TeamID, in ReportInput) (*model.ScoutingReport, error) {
	if _, err := s.guard.RequireTeamAdmin(ctx, id, teamID); err != nil {
		return nil, err
	}
	in.Opponent = strings.TrimSpace(in.Opponent)
	in.Notes = strings.TrimSpace(in.Notes)

	var fields []auth.FieldError
	if in.Opponent == "" {
		fields = append(fields, auth.FieldError{Field: "opponent", Message: "is required"})
	}
	if in.Notes == "" {
		fields = append(fields, auth.FieldError{Field: "notes", Message: "is required"})
	}
	if len(fields) > 0 {
		return nil, &auth.ValidationError{Fields: fields}
	}

	report := &model.ScoutingReport{
		TeamID:    teamID,
		AuthorID:  id.UserID,
		Opponent:  in.Opponent,
		Notes:     in.Notes,
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.CreateScoutingReport(ctx, report); err != nil {
		return nil, err
	}
	s.logger.Info("scouting report created",
		slog.Int64("user_id", int64(id.UserID)),
		slog.Int64("team_id", int64(teamID)),
	)
	return report, nil
}

// Game operations

// ListGames returns the team's schedule ordered by kickoff
func (s *Service) ListGames(ctx context.Context, id auth.Identity, teamID model.TeamID) ([]*model.Game, error) {
	if _, err := s.guard.RequireMember(ctx, id, teamID); err != nil {
		return nil, err
	}
	return s.storage.ListGamesForTeam(ctx, teamID)
}

func (in PlayerInput) normalize() PlayerInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Position = strings.TrimSpace(in.Position)
	return in
}

func (in PlayerInput) validate() error {
	var fields []auth.FieldError
	if in.Name == "" {
		fields = append(fields, auth.FieldError{Field: "name", Message: "is required"})
	}
	if in.JerseyNumber < MinJerseyNumber || in.JerseyNumber > MaxJerseyNumber {
		fields = append(fields, auth.FieldError{Field: "jersey_number", Message: "must be between 0 and 99"})
	}
	if len(fields) > 0 {
		return &auth.ValidationError{Fields: fields}
	}
	return nil
}

// mapJerseyErr converts a uniqueness violation that slipped past the
// pre-check under a race into the same error the pre-check returns
func mapJerseyErr(err error) error {
	if errors.Is(err, storage.ErrJerseyTaken) {
		return guard.ErrJerseyConflict
	}
	return err
}
