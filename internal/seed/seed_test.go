package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamroster/internal/dependencies/mocks"
	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/password"
	"github.com/mcoot/teamroster/internal/storage"
	"github.com/mcoot/teamroster/internal/storage/memory"
	"github.com/mcoot/teamroster/internal/testutil"
)

const seedYAML = `
teams:
  - name: Falcons
    invite_code: FALCONS1
    admin:
      name: Coach Carter
      email: Coach@Example.com
      password: whistle1
    games:
      - opponent: Hawks
        location: Home
        scheduled_at: 2024-03-01T18:00:00Z
      - opponent: Eagles
        location: Away
        scheduled_at: 2024-02-01T18:00:00Z
        team_score: 3
        opponent_score: 1
  - name: Falcons Juniors
    invite_code: FALCONS2
    admin:
      name: Coach Carter
      email: coach@example.com
      password: whistle1
`

type SeedSuite struct {
	suite.Suite
	storage *memory.Storage
	seeder  *Seeder
	hasher  *password.BcryptHasher
	ctx     context.Context
}

func TestSeedSuite(t *testing.T) {
	suite.Run(t, new(SeedSuite))
}

func (s *SeedSuite) SetupTest() {
	s.storage = memory.New()
	hasher, err := password.NewBcryptHasher()
	s.Require().NoError(err)
	s.hasher = hasher
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.seeder = New(s.storage, hasher, clk, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *SeedSuite) writeFile(content string) string {
	path := filepath.Join(s.T().TempDir(), "seed.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *SeedSuite) TestLoadDecodesTeams() {
	f, err := Load(s.writeFile(seedYAML))
	s.Require().NoError(err)
	s.Require().Len(f.Teams, 2)
	s.Equal("FALCONS1", f.Teams[0].InviteCode)
	s.Require().Len(f.Teams[0].Games, 2)
	s.True(time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC).Equal(f.Teams[0].Games[0].ScheduledAt))
	s.Require().NotNil(f.Teams[0].Games[1].TeamScore)
	s.Equal(3, *f.Teams[0].Games[1].TeamScore)
	s.Nil(f.Teams[0].Games[0].TeamScore)
}

func (s *SeedSuite) TestLoadRejectsInvalidFile() {
	_, err := Load(s.writeFile(`
teams:
  - name: ""
    invite_code: X
  - name: Other
    invite_code: X
    admin: {email: a@b.co, password: pw}
`))
	s.Require().Error(err)
	s.Contains(err.Error(), "name is required")
	s.Contains(err.Error(), "duplicate invite_code")
	s.Contains(err.Error(), "admin email and password are required")
}

func (s *SeedSuite) TestApplyCreatesTeamsAdminAndGames() {
	f, err := Load(s.writeFile(seedYAML))
	s.Require().NoError(err)

	result, err := s.seeder.Apply(s.ctx, f)
	s.Require().NoError(err)
	s.Equal(Result{TeamsCreated: 2, GamesCreated: 2}, result)

	admin, err := s.storage.FindUserByEmail(s.ctx, "coach@example.com")
	s.Require().NoError(err)
	s.Equal(model.RoleAdmin, admin.Role)
	s.True(s.hasher.Verify("whistle1", admin.PasswordHash))

	team, err := s.storage.FindTeamByInviteCode(s.ctx, "FALCONS1")
	s.Require().NoError(err)
	s.Equal(admin.ID, team.AdminID)

	// The same admin runs both teams and is a member of each
	memberships, err := s.storage.ListMembershipsForUser(s.ctx, admin.ID)
	s.Require().NoError(err)
	s.Len(memberships, 2)

	games, err := s.storage.ListGamesForTeam(s.ctx, team.ID)
	s.Require().NoError(err)
	s.Require().Len(games, 2)
	s.Equal("Eagles", games[0].Opponent)
}

func (s *SeedSuite) TestApplyIsIdempotent() {
	f, err := Load(s.writeFile(seedYAML))
	s.Require().NoError(err)

	_, err = s.seeder.Apply(s.ctx, f)
	s.Require().NoError(err)
	result, err := s.seeder.Apply(s.ctx, f)
	s.Require().NoError(err)
	s.Equal(Result{TeamsSkipped: 2}, result)

	team, err := s.storage.FindTeamByInviteCode(s.ctx, "FALCONS1")
	s.Require().NoError(err)
	games, err := s.storage.ListGamesForTeam(s.ctx, team.ID)
	s.Require().NoError(err)
	s.Len(games, 2)
}

// membershipFailingStorage fails every membership insert
type membershipFailingStorage struct {
	storage.Storage
}

func (f *membershipFailingStorage) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return f.Storage.InTx(ctx, func(tx storage.Tx) error {
		return fn(&membershipFailingTx{Tx: tx})
	})
}

type membershipFailingTx struct {
	storage.Tx
}

func (t *membershipFailingTx) InsertMembership(context.Context, *model.TeamMembership) error {
	return errors.New("connection reset")
}

func (s *SeedSuite) TestRerunEnrolsAdminAfterPartialFailure() {
	f := &File{Teams: []Team{{
		Name:       "Falcons",
		InviteCode: "FALCONS1",
		Admin:      Admin{Name: "Coach", Email: "coach@example.com", Password: "whistle1"},
	}}}

	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	broken := New(&membershipFailingStorage{Storage: s.storage}, s.hasher, clk, testutil.NopLogger())
	_, err := broken.Apply(s.ctx, f)
	s.Require().Error(err)

	// The team exists but its admin has no membership yet
	team, err := s.storage.FindTeamByInviteCode(s.ctx, "FALCONS1")
	s.Require().NoError(err)
	memberships, err := s.storage.ListMembershipsForUser(s.ctx, team.AdminID)
	s.Require().NoError(err)
	s.Empty(memberships)

	result, err := s.seeder.Apply(s.ctx, f)
	s.Require().NoError(err)
	s.Equal(Result{TeamsSkipped: 1}, result)

	memberships, err = s.storage.ListMembershipsForUser(s.ctx, team.AdminID)
	s.Require().NoError(err)
	s.Require().Len(memberships, 1)
	s.Equal(team.ID, memberships[0].Team.ID)
	s.Equal(model.RoleAdmin, memberships[0].Membership.Role)
}
