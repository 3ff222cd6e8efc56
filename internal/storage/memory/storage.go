package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users           map[model.UserID]*model.User
	emailIndex      map[string]model.UserID
	teams           map[model.TeamID]*model.Team
	inviteCodeIndex map[string]model.TeamID
	memberships     map[membershipKey]*model.TeamMembership
	players         map[model.PlayerID]*model.Player
	jerseyIndex     map[jerseyKey]model.PlayerID
	reports         map[model.ScoutingReportID]*model.ScoutingReport
	games           map[model.GameID]*model.Game

	lastUserID   model.UserID
	lastTeamID   model.TeamID
	lastPlayerID model.PlayerID
	lastReportID model.ScoutingReportID
	lastGameID   model.GameID
}

type membershipKey struct {
	userID model.UserID
	teamID model.TeamID
}

type jerseyKey struct {
	teamID model.TeamID
	number int
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:           make(map[model.UserID]*model.User),
		emailIndex:      make(map[string]model.UserID),
		teams:           make(map[model.TeamID]*model.Team),
		inviteCodeIndex: make(map[string]model.TeamID),
		memberships:     make(map[membershipKey]*model.TeamMembership),
		players:         make(map[model.PlayerID]*model.Player),
		jerseyIndex:     make(map[jerseyKey]model.PlayerID),
		reports:         make(map[model.ScoutingReportID]*model.ScoutingReport),
		games:           make(map[model.GameID]*model.Game),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Transactions

// tx holds the storage write lock for its whole lifetime and records an undo
// step for every write so a failed transaction leaves no trace.
type tx struct {
	s    *Storage
	undo []func()
}

// InTx runs fn under the write lock. fn must only use the supplied Tx; calling
// back into the Storage from fn deadlocks.
func (s *Storage) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s}
	if err := fn(t); err != nil {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		return err
	}
	return nil
}

func (t *tx) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return t.s.findUserByEmail(email)
}

func (t *tx) InsertUser(ctx context.Context, user *model.User) error {
	if _, ok := t.s.emailIndex[user.Email]; ok {
		return storage.ErrEmailTaken
	}

	prevID := t.s.lastUserID
	t.s.lastUserID++
	user.ID = t.s.lastUserID

	stored := *user
	t.s.users[user.ID] = &stored
	t.s.emailIndex[user.Email] = user.ID

	t.undo = append(t.undo, func() {
		delete(t.s.users, stored.ID)
		delete(t.s.emailIndex, stored.Email)
		t.s.lastUserID = prevID
	})
	return nil
}

func (t *tx) InsertMembership(ctx context.Context, membership *model.TeamMembership) error {
	if _, ok := t.s.users[membership.UserID]; !ok {
		return model.ErrUserNotFound
	}
	if _, ok := t.s.teams[membership.TeamID]; !ok {
		return model.ErrTeamNotFound
	}
	key := membershipKey{userID: membership.UserID, teamID: membership.TeamID}
	if _, ok := t.s.memberships[key]; ok {
		return storage.ErrMembershipExists
	}

	stored := *membership
	t.s.memberships[key] = &stored

	t.undo = append(t.undo, func() {
		delete(t.s.memberships, key)
	})
	return nil
}

// User operations

func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findUserByEmail(email)
}

func (s *Storage) findUserByEmail(email string) (*model.User, error) {
	id, ok := s.emailIndex[email]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user := *s.users[id]
	return &user, nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// Team operations

func (s *Storage) CreateTeam(ctx context.Context, team *model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inviteCodeIndex[team.InviteCode]; ok {
		return storage.ErrInviteCodeTaken
	}
	s.lastTeamID++
	team.ID = s.lastTeamID
	stored := *team
	s.teams[team.ID] = &stored
	s.inviteCodeIndex[team.InviteCode] = team.ID
	return nil
}

func (s *Storage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	t := *team
	return &t, nil
}

func (s *Storage) FindTeamByInviteCode(ctx context.Context, code string) (*model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.inviteCodeIndex[code]
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	t := *s.teams[id]
	return &t, nil
}

// Membership operations

func (s *Storage) GetMembership(ctx context.Context, userID model.UserID, teamID model.TeamID) (*model.TeamMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[membershipKey{userID: userID, teamID: teamID}]
	if !ok {
		return nil, model.ErrMembershipNotFound
	}
	out := *m
	return &out, nil
}

func (s *Storage) ListMembershipsForUser(ctx context.Context, userID model.UserID) ([]model.MembershipWithTeam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []model.MembershipWithTeam{}
	for key, m := range s.memberships {
		if key.userID != userID {
			continue
		}
		team, ok := s.teams[key.teamID]
		if !ok {
			continue
		}
		result = append(result, model.MembershipWithTeam{Membership: *m, Team: *team})
	}
	slices.SortFunc(result, func(a, b model.MembershipWithTeam) int {
		return cmp.Compare(a.Team.ID, b.Team.ID)
	})
	return result, nil
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[player.TeamID]; !ok {
		return model.ErrTeamNotFound
	}
	key := jerseyKey{teamID: player.TeamID, number: player.JerseyNumber}
	if _, ok := s.jerseyIndex[key]; ok {
		return storage.ErrJerseyTaken
	}
	s.lastPlayerID++
	player.ID = s.lastPlayerID
	stored := *player
	s.players[player.ID] = &stored
	s.jerseyIndex[key] = player.ID
	return nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.players[player.ID]
	if !ok {
		return model.ErrPlayerNotFound
	}
	newKey := jerseyKey{teamID: existing.TeamID, number: player.JerseyNumber}
	if holder, ok := s.jerseyIndex[newKey]; ok && holder != player.ID {
		return storage.ErrJerseyTaken
	}
	delete(s.jerseyIndex, jerseyKey{teamID: existing.TeamID, number: existing.JerseyNumber})
	s.jerseyIndex[newKey] = player.ID

	// Ownership never moves between teams
	player.TeamID = existing.TeamID
	player.CreatedAt = existing.CreatedAt
	stored := *player
	s.players[player.ID] = &stored
	return nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	delete(s.jerseyIndex, jerseyKey{teamID: existing.TeamID, number: existing.JerseyNumber})
	delete(s.players, id)
	return nil
}

func (s *Storage) FindPlayerWithOwningTeam(ctx context.Context, id model.PlayerID) (*model.PlayerWithOwner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	team, ok := s.teams[player.TeamID]
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	return &model.PlayerWithOwner{Player: *player, TeamAdminID: team.AdminID}, nil
}

func (s *Storage) ListPlayersForTeam(ctx context.Context, teamID model.TeamID) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := []*model.Player{}
	for _, p := range s.players {
		if p.TeamID == teamID {
			cp := *p
			players = append(players, &cp)
		}
	}
	slices.SortFunc(players, func(a, b *model.Player) int {
		return cmp.Compare(a.JerseyNumber, b.JerseyNumber)
	})
	return players, nil
}

func (s *Storage) FindConflictingJerseyNumber(ctx context.Context, teamID model.TeamID, number int, excludeID *model.PlayerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	holder, ok := s.jerseyIndex[jerseyKey{teamID: teamID, number: number}]
	if !ok {
		return false, nil
	}
	if excludeID != nil && holder == *excludeID {
		return false, nil
	}
	return true, nil
}

// Scouting report operations

func (s *Storage) CreateScoutingReport(ctx context.Context, report *model.ScoutingReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[report.TeamID]; !ok {
		return model.ErrTeamNotFound
	}
	s.lastReportID++
	report.ID = s.lastReportID
	stored := *report
	s.reports[report.ID] = &stored
	return nil
}

func (s *Storage) ListScoutingReportsForTeam(ctx context.Context, teamID model.TeamID) ([]*model.ScoutingReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reports := []*model.ScoutingReport{}
	for _, r := range s.reports {
		if r.TeamID == teamID {
			cp := *r
			reports = append(reports, &cp)
		}
	}
	// Newest first
	slices.SortFunc(reports, func(a, b *model.ScoutingReport) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return reports, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[game.TeamID]; !ok {
		return model.ErrTeamNotFound
	}
	s.lastGameID++
	game.ID = s.lastGameID
	stored := *game
	s.games[game.ID] = &stored
	return nil
}

func (s *Storage) ListGamesForTeam(ctx context.Context, teamID model.TeamID) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	games := []*model.Game{}
	for _, g := range s.games {
		if g.TeamID == teamID {
			cp := *g
			games = append(games, &cp)
		}
	}
	slices.SortFunc(games, func(a, b *model.Game) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return games, nil
}
