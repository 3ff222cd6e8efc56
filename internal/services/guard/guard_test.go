package guard

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamroster/internal/metrics"
	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/auth"
	"github.com/mcoot/teamroster/internal/services/membership"
	"github.com/mcoot/teamroster/internal/storage"
	"github.com/mcoot/teamroster/internal/storage/memory"
	testlog "github.com/mcoot/teamroster/internal/testutil"
)

type GuardSuite struct {
	suite.Suite
	storage *memory.Storage
	guard   *Guard
	ctx     context.Context

	adminA  auth.Identity
	userB   auth.Identity
	teamA   *model.Team
	teamB   *model.Team
	playerA *model.Player
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.storage = memory.New()
	s.guard = New(s.storage, membership.New(s.storage), testlog.NopLogger())
	s.ctx = context.Background()

	a := &model.User{Name: "Admin A", Email: "a@x.com", Role: model.RoleAdmin}
	b := &model.User{Name: "User B", Email: "b@x.com", Role: model.RolePlayer}
	s.Require().NoError(s.storage.InTx(s.ctx, func(tx storage.Tx) error {
		if err := tx.InsertUser(s.ctx, a); err != nil {
			return err
		}
		return tx.InsertUser(s.ctx, b)
	}))
	s.adminA = auth.Identity{UserID: a.ID, Role: a.Role}
	s.userB = auth.Identity{UserID: b.ID, Role: b.Role}

	s.teamA = &model.Team{Name: "A", InviteCode: "A", AdminID: a.ID}
	s.teamB = &model.Team{Name: "B", InviteCode: "B", AdminID: b.ID}
	s.Require().NoError(s.storage.CreateTeam(s.ctx, s.teamA))
	s.Require().NoError(s.storage.CreateTeam(s.ctx, s.teamB))

	// B is also a plain member of team A
	s.Require().NoError(s.storage.InTx(s.ctx, func(tx storage.Tx) error {
		return tx.InsertMembership(s.ctx, &model.TeamMembership{UserID: b.ID, TeamID: s.teamA.ID, Role: model.RolePlayer})
	}))

	s.playerA = &model.Player{TeamID: s.teamA.ID, Name: "Sam", JerseyNumber: 12}
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, s.playerA))
}

// RequireTeamAdmin tests

func (s *GuardSuite) TestRequireTeamAdminAllowsAdmin() {
	team, err := s.guard.RequireTeamAdmin(s.ctx, s.adminA, s.teamA.ID)
	s.Require().NoError(err)
	s.Equal(s.teamA.ID, team.ID)
}

func (s *GuardSuite) TestRequireTeamAdminForbidsMember() {
	before := testutil.ToFloat64(metrics.AuthorizationDenialsTotal.WithLabelValues(checkTeamAdmin))

	_, err := s.guard.RequireTeamAdmin(s.ctx, s.userB, s.teamA.ID)
	s.ErrorIs(err, ErrForbidden)

	s.Equal(before+1, testutil.ToFloat64(metrics.AuthorizationDenialsTotal.WithLabelValues(checkTeamAdmin)))
}

func (s *GuardSuite) TestRequireTeamAdminMissingTeam() {
	_, err := s.guard.RequireTeamAdmin(s.ctx, s.adminA, 999)
	s.ErrorIs(err, model.ErrTeamNotFound)
}

// RequirePlayerAdmin tests

func (s *GuardSuite) TestRequirePlayerAdmin() {
	owned, err := s.guard.RequirePlayerAdmin(s.ctx, s.adminA, s.playerA.ID)
	s.Require().NoError(err)
	s.Equal(s.playerA.ID, owned.Player.ID)

	_, err = s.guard.RequirePlayerAdmin(s.ctx, s.userB, s.playerA.ID)
	s.ErrorIs(err, ErrForbidden)
}

func (s *GuardSuite) TestRequirePlayerAdminMissingPlayer() {
	_, err := s.guard.RequirePlayerAdmin(s.ctx, s.adminA, 999)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *GuardSuite) TestAdminOfOtherTeamCannotTouchPlayer() {
	// B administers team B but not the team that owns the player
	_, err := s.guard.RequirePlayerAdmin(s.ctx, s.userB, s.playerA.ID)
	s.ErrorIs(err, ErrForbidden)
}

// RequireMember tests

func (s *GuardSuite) TestRequireMember() {
	_, err := s.guard.RequireMember(s.ctx, s.userB, s.teamA.ID)
	s.NoError(err)

	_, err = s.guard.RequireMember(s.ctx, s.adminA, s.teamA.ID)
	s.NoError(err, "admin without membership row is a member")

	_, err = s.guard.RequireMember(s.ctx, s.adminA, s.teamB.ID)
	s.ErrorIs(err, ErrForbidden)

	_, err = s.guard.RequireMember(s.ctx, s.adminA, 999)
	s.ErrorIs(err, model.ErrTeamNotFound)
}

// CheckJerseyAvailable tests

func (s *GuardSuite) TestCheckJerseyAvailable() {
	s.ErrorIs(s.guard.CheckJerseyAvailable(s.ctx, s.teamA.ID, 12, nil), ErrJerseyConflict)
	s.NoError(s.guard.CheckJerseyAvailable(s.ctx, s.teamA.ID, 12, &s.playerA.ID))
	s.NoError(s.guard.CheckJerseyAvailable(s.ctx, s.teamB.ID, 12, nil))
	s.NoError(s.guard.CheckJerseyAvailable(s.ctx, s.teamA.ID, 13, nil))
}

// countingStorage counts team lookups
type countingStorage struct {
	storage.Storage
	getTeam int
}

func (c *countingStorage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	c.getTeam++
	return c.Storage.GetTeam(ctx, id)
}

func (s *GuardSuite) TestRequireMemberLoadsTeamOnce() {
	counting := &countingStorage{Storage: s.storage}
	g := New(counting, membership.New(counting), testlog.NopLogger())

	_, err := g.RequireMember(s.ctx, s.userB, s.teamA.ID)
	s.Require().NoError(err)
	s.Equal(1, counting.getTeam)

	counting.getTeam = 0
	_, err = g.RequireMember(s.ctx, s.adminA, s.teamA.ID)
	s.Require().NoError(err)
	s.Equal(1, counting.getTeam)
}
