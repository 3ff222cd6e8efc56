package membership

import (
	"context"
	"errors"

	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/storage"
)

// Resolver answers which teams a user belongs to and whether they run them
type Resolver struct {
	storage storage.Storage
}

// New creates a new Resolver
func New(storage storage.Storage) *Resolver {
	return &Resolver{storage: storage}
}

// TeamsForUser returns every team the user is enrolled in with their role there
func (r *Resolver) TeamsForUser(ctx context.Context, userID model.UserID) ([]model.MembershipWithTeam, error) {
	return r.storage.ListMembershipsForUser(ctx, userID)
}

// Team loads a team, returning model.ErrTeamNotFound if absent
func (r *Resolver) Team(ctx context.Context, teamID model.TeamID) (*model.Team, error) {
	return r.storage.GetTeam(ctx, teamID)
}

// IsTeamAdmin loads the team and reports whether the user is its admin_id
func (r *Resolver) IsTeamAdmin(ctx context.Context, userID model.UserID, teamID model.TeamID) (*model.Team, bool, error) {
	team, err := r.storage.GetTeam(ctx, teamID)
	if err != nil {
		return nil, false, err
	}
	return team, team.IsAdmin(userID), nil
}

// IsPlayerAdmin resolves the player's owning team from storage on every call
// and reports whether the user is that team's admin
func (r *Resolver) IsPlayerAdmin(ctx context.Context, userID model.UserID, playerID model.PlayerID) (*model.PlayerWithOwner, bool, error) {
	owned, err := r.storage.FindPlayerWithOwningTeam(ctx, playerID)
	if err != nil {
		return nil, false, err
	}
	return owned, owned.TeamAdminID == userID, nil
}

// IsMember reports whether the user holds a membership on an already loaded
// team. The team admin always counts as a member, even without a membership row.
func (r *Resolver) IsMember(ctx context.Context, userID model.UserID, team *model.Team) (bool, error) {
	if team.IsAdmin(userID) {
		return true, nil
	}

	_, err := r.storage.GetMembership(ctx, userID, team.ID)
	if errors.Is(err, model.ErrMembershipNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RoleOn returns the user's team-scoped role for one of their memberships.
// The admin is reported as model.RoleAdmin whatever the membership row says.
func (r *Resolver) RoleOn(userID model.UserID, m model.MembershipWithTeam) model.Role {
	if m.Team.IsAdmin(userID) {
		return model.RoleAdmin
	}
	return m.Membership.Role
}
