package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/oops"

	"github.com/mcoot/teamroster/internal/model"
)

// Storage errors. Backends translate engine-specific failures into these so
// callers never see driver text.
var (
	// ErrUnavailable wraps any failure to reach or use the backing store
	ErrUnavailable = errors.New("storage unavailable")

	// Uniqueness violations
	ErrEmailTaken       = errors.New("email already registered")
	ErrInviteCodeTaken  = errors.New("invite code already in use")
	ErrMembershipExists = errors.New("membership already exists")
	ErrJerseyTaken      = errors.New("jersey number already taken on team")
)

// Unavailable wraps a backend failure so that errors.Is(err, ErrUnavailable)
// holds while the original cause stays available for logging.
func Unavailable(operation string, err error) error {
	return oops.
		Code("STORAGE_UNAVAILABLE").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrUnavailable, err))
}

// Tx is the set of operations available inside a transaction
type Tx interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	InsertUser(ctx context.Context, user *model.User) error
	InsertMembership(ctx context.Context, membership *model.TeamMembership) error
}

// Storage defines the interface for data persistence
type Storage interface {
	// InTx runs fn inside a transaction. If fn returns an error every write
	// made through tx is discarded.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// User operations
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)

	// Team operations
	CreateTeam(ctx context.Context, team *model.Team) error
	GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error)
	FindTeamByInviteCode(ctx context.Context, code string) (*model.Team, error)

	// Membership operations
	GetMembership(ctx context.Context, userID model.UserID, teamID model.TeamID) (*model.TeamMembership, error)
	ListMembershipsForUser(ctx context.Context, userID model.UserID) ([]model.MembershipWithTeam, error)

	// Player operations
	CreatePlayer(ctx context.Context, player *model.Player) error
	UpdatePlayer(ctx context.Context, player *model.Player) error
	DeletePlayer(ctx context.Context, id model.PlayerID) error
	FindPlayerWithOwningTeam(ctx context.Context, id model.PlayerID) (*model.PlayerWithOwner, error)
	ListPlayersForTeam(ctx context.Context, teamID model.TeamID) ([]*model.Player, error)
	// FindConflictingJerseyNumber reports whether another player on the team
	// already wears number. excludeID, when set, is ignored in the search.
	FindConflictingJerseyNumber(ctx context.Context, teamID model.TeamID, number int, excludeID *model.PlayerID) (bool, error)

	// Scouting report operations
	CreateScoutingReport(ctx context.Context, report *model.ScoutingReport) error
	ListScoutingReportsForTeam(ctx context.Context, teamID model.TeamID) ([]*model.ScoutingReport, error)

	// Game operations
	CreateGame(ctx context.Context, game *model.Game) error
	ListGamesForTeam(ctx context.Context, teamID model.TeamID) ([]*model.Game, error)
}
