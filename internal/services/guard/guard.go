// Package guard performs the ownership checks that gate team-scoped reads
// and roster mutations.
package guard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/teamroster/internal/metrics"
	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/auth"
	"github.com/mcoot/teamroster/internal/services/membership"
	"github.com/mcoot/teamroster/internal/storage"
)

// Errors
var (
	ErrForbidden      = errors.New("forbidden")
	ErrJerseyConflict = errors.New("jersey number already in use on this team")
)

// Check names used for denial metrics and logs
const (
	checkTeamAdmin   = "team_admin"
	checkPlayerAdmin = "player_admin"
	checkMember      = "member"
)

// Guard answers whether an identity may act on a team-scoped resource
type Guard struct {
	storage  storage.Storage
	resolver *membership.Resolver
	logger   *slog.Logger
}

// New creates a new Guard
func New(storage storage.Storage, resolver *membership.Resolver, logger *slog.Logger) *Guard {
	return &Guard{
		storage:  storage,
		resolver: resolver,
		logger:   logger,
	}
}

// RequireTeamAdmin returns the team if id administers it. A missing team is
// model.ErrTeamNotFound, anyone else is ErrForbidden.
func (g *Guard) RequireTeamAdmin(ctx context.Context, id auth.Identity, teamID model.TeamID) (*model.Team, error) {
	team, ok, err := g.resolver.IsTeamAdmin(ctx, id.UserID, teamID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, g.deny(checkTeamAdmin, id, slog.Int64("team_id", int64(teamID)))
	}
	return team, nil
}

// RequirePlayerAdmin re-resolves the player's owning team on every call and
// returns the player if id administers that team
func (g *Guard) RequirePlayerAdmin(ctx context.Context, id auth.Identity, playerID model.PlayerID) (*model.PlayerWithOwner, error) {
	owned, ok, err := g.resolver.IsPlayerAdmin(ctx, id.UserID, playerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, g.deny(checkPlayerAdmin, id, slog.Int64("player_id", int64(playerID)))
	}
	return owned, nil
}

// RequireMember returns the team if id is enrolled in it or administers it
func (g *Guard) RequireMember(ctx context.Context, id auth.Identity, teamID model.TeamID) (*model.Team, error) {
	team, err := g.resolver.Team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	ok, err := g.resolver.IsMember(ctx, id.UserID, team)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, g.deny(checkMember, id, slog.Int64("team_id", int64(teamID)))
	}
	return team, nil
}

// CheckJerseyAvailable fails with ErrJerseyConflict if another player on the
// team wears number. excludeID skips the player being updated.
func (g *Guard) CheckJerseyAvailable(ctx context.Context, teamID model.TeamID, number int, excludeID *model.PlayerID) error {
	taken, err := g.storage.FindConflictingJerseyNumber(ctx, teamID, number, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrJerseyConflict
	}
	return nil
}

func (g *Guard) deny(check string, id auth.Identity, attr slog.Attr) error {
	metrics.RecordDenial(check)
	g.logger.Warn("authorization denied",
		slog.String("check", check),
		slog.Int64("user_id", int64(id.UserID)),
		attr,
	)
	return ErrForbidden
}
