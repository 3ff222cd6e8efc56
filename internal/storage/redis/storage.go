package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
//
// Records are JSON values under per-entity keys, ids come from INCR
// sequences, and unique constraints are index keys claimed with SETNX.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance, waiting for the server to answer
// according to cfg.Startup
func New(ctx context.Context, cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, oops.Code("REDIS_CONFIG_INVALID").Wrap(err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	err = storage.WaitUntilAvailable(ctx, cfg.Startup, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, storage.Unavailable("connect", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping reports whether the server is reachable
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storage.Unavailable("ping", err)
	}
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Transactions

// tx claims unique index keys eagerly so conflicts surface inside fn, and
// buffers record writes until commit. On failure the claims are released.
type tx struct {
	s      *Storage
	claims []string
	writes []func(pipe redis.Pipeliner)

	// pending users, visible to reads inside the same transaction
	usersByEmail map[string]*model.User
	usersByID    map[model.UserID]*model.User
}

// InTx runs fn and commits its buffered writes in a single MULTI/EXEC.
// Ids allocated inside a failed transaction are not reused.
func (s *Storage) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	t := &tx{
		s:            s,
		usersByEmail: make(map[string]*model.User),
		usersByID:    make(map[model.UserID]*model.User),
	}

	if err := fn(t); err != nil {
		t.release(ctx)
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, write := range t.writes {
			write(pipe)
		}
		return nil
	})
	if err != nil {
		t.release(ctx)
		return storage.Unavailable("commit transaction", err)
	}
	return nil
}

func (t *tx) release(ctx context.Context) {
	if len(t.claims) == 0 {
		return
	}
	_ = t.s.client.Del(context.WithoutCancel(ctx), t.claims...).Err()
}

// claim sets key to value only if it is unset and records it for rollback
func (t *tx) claim(ctx context.Context, key string, value any, op string) (bool, error) {
	ok, err := t.s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, storage.Unavailable(op, err)
	}
	if ok {
		t.claims = append(t.claims, key)
	}
	return ok, nil
}

func (t *tx) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if u, ok := t.usersByEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return t.s.FindUserByEmail(ctx, email)
}

func (t *tx) InsertUser(ctx context.Context, user *model.User) error {
	id, err := t.s.nextID(ctx, kindUser)
	if err != nil {
		return err
	}

	ok, err := t.claim(ctx, emailIndexKey(user.Email), id, "insert user")
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrEmailTaken
	}

	user.ID = model.UserID(id)
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	stored := *user
	t.usersByEmail[user.Email] = &stored
	t.usersByID[user.ID] = &stored
	t.writes = append(t.writes, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, userKey(stored.ID), data, 0)
	})
	return nil
}

func (t *tx) InsertMembership(ctx context.Context, membership *model.TeamMembership) error {
	if _, ok := t.usersByID[membership.UserID]; !ok {
		exists, err := t.s.exists(ctx, userKey(membership.UserID), "insert membership")
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrUserNotFound
		}
	}
	exists, err := t.s.exists(ctx, teamKey(membership.TeamID), "insert membership")
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrTeamNotFound
	}

	ok, err := t.claim(ctx, membershipClaimKey(membership.UserID, membership.TeamID), 1, "insert membership")
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrMembershipExists
	}

	data, err := json.Marshal(membership)
	if err != nil {
		return err
	}
	userID, teamID := membership.UserID, membership.TeamID
	t.writes = append(t.writes, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, membershipKey(userID, teamID), data, 0)
		pipe.SAdd(ctx, teamsForUserIndexKey(userID), int64(teamID))
	})
	return nil
}

// User operations

func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	id, err := s.lookupIndex(ctx, emailIndexKey(email), "find user by email")
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, model.UserID(id))
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var user model.User
	if err := s.getJSON(ctx, userKey(id), &user, model.ErrUserNotFound, "get user"); err != nil {
		return nil, err
	}
	return &user, nil
}

// Team operations

func (s *Storage) CreateTeam(ctx context.Context, team *model.Team) error {
	id, err := s.nextID(ctx, kindTeam)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, inviteCodeIndexKey(team.InviteCode), id, 0).Result()
	if err != nil {
		return storage.Unavailable("create team", err)
	}
	if !ok {
		return storage.ErrInviteCodeTaken
	}

	team.ID = model.TeamID(id)
	data, err := json.Marshal(team)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, teamKey(team.ID), data, 0).Err(); err != nil {
		return storage.Unavailable("create team", err)
	}
	return nil
}

func (s *Storage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	var team model.Team
	if err := s.getJSON(ctx, teamKey(id), &team, model.ErrTeamNotFound, "get team"); err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *Storage) FindTeamByInviteCode(ctx context.Context, code string) (*model.Team, error) {
	id, err := s.lookupIndex(ctx, inviteCodeIndexKey(code), "find team by invite code")
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetTeam(ctx, model.TeamID(id))
}

// Membership operations

func (s *Storage) GetMembership(ctx context.Context, userID model.UserID, teamID model.TeamID) (*model.TeamMembership, error) {
	var m model.TeamMembership
	if err := s.getJSON(ctx, membershipKey(userID, teamID), &m, model.ErrMembershipNotFound, "get membership"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Storage) ListMembershipsForUser(ctx context.Context, userID model.UserID) ([]model.MembershipWithTeam, error) {
	teamIDs, err := s.memberIDs(ctx, teamsForUserIndexKey(userID), "list memberships")
	if err != nil {
		return nil, err
	}

	membershipKeys := make([]string, len(teamIDs))
	teamKeys := make([]string, len(teamIDs))
	for i, id := range teamIDs {
		membershipKeys[i] = membershipKey(userID, model.TeamID(id))
		teamKeys[i] = teamKey(model.TeamID(id))
	}

	memberships, err := mgetJSON[model.TeamMembership](ctx, s.client, membershipKeys, "list memberships")
	if err != nil {
		return nil, err
	}
	teams, err := mgetJSON[model.Team](ctx, s.client, teamKeys, "list memberships")
	if err != nil {
		return nil, err
	}

	result := []model.MembershipWithTeam{}
	for i := range teamIDs {
		if memberships[i] == nil || teams[i] == nil {
			continue
		}
		result = append(result, model.MembershipWithTeam{Membership: *memberships[i], Team: *teams[i]})
	}
	slices.SortFunc(result, func(a, b model.MembershipWithTeam) int {
		return cmp.Compare(a.Team.ID, b.Team.ID)
	})
	return result, nil
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	exists, err := s.exists(ctx, teamKey(player.TeamID), "create player")
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrTeamNotFound
	}

	id, err := s.nextID(ctx, kindPlayer)
	if err != nil {
		return err
	}
	jerseyKey := jerseyIndexKey(player.TeamID, player.JerseyNumber)
	ok, err := s.client.SetNX(ctx, jerseyKey, id, 0).Result()
	if err != nil {
		return storage.Unavailable("create player", err)
	}
	if !ok {
		return storage.ErrJerseyTaken
	}

	player.ID = model.PlayerID(id)
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, playerKey(player.ID), data, 0)
		pipe.SAdd(ctx, playersForTeamIndexKey(player.TeamID), id)
		return nil
	})
	if err != nil {
		_ = s.client.Del(context.WithoutCancel(ctx), jerseyKey).Err()
		return storage.Unavailable("create player", err)
	}
	return nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, player *model.Player) error {
	var existing model.Player
	if err := s.getJSON(ctx, playerKey(player.ID), &existing, model.ErrPlayerNotFound, "update player"); err != nil {
		return err
	}

	// Ownership never moves between teams
	player.TeamID = existing.TeamID
	player.CreatedAt = existing.CreatedAt

	numberChanged := existing.JerseyNumber != player.JerseyNumber
	if numberChanged {
		ok, err := s.client.SetNX(ctx, jerseyIndexKey(player.TeamID, player.JerseyNumber), int64(player.ID), 0).Result()
		if err != nil {
			return storage.Unavailable("update player", err)
		}
		if !ok {
			return storage.ErrJerseyTaken
		}
	}

	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, playerKey(player.ID), data, 0)
		if numberChanged {
			pipe.Del(ctx, jerseyIndexKey(existing.TeamID, existing.JerseyNumber))
		}
		return nil
	})
	if err != nil {
		if numberChanged {
			_ = s.client.Del(context.WithoutCancel(ctx), jerseyIndexKey(player.TeamID, player.JerseyNumber)).Err()
		}
		return storage.Unavailable("update player", err)
	}
	return nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	var existing model.Player
	if err := s.getJSON(ctx, playerKey(id), &existing, model.ErrPlayerNotFound, "delete player"); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, playerKey(id))
		pipe.Del(ctx, jerseyIndexKey(existing.TeamID, existing.JerseyNumber))
		pipe.SRem(ctx, playersForTeamIndexKey(existing.TeamID), int64(id))
		return nil
	})
	if err != nil {
		return storage.Unavailable("delete player", err)
	}
	return nil
}

func (s *Storage) FindPlayerWithOwningTeam(ctx context.Context, id model.PlayerID) (*model.PlayerWithOwner, error) {
	var player model.Player
	if err := s.getJSON(ctx, playerKey(id), &player, model.ErrPlayerNotFound, "find player"); err != nil {
		return nil, err
	}
	team, err := s.GetTeam(ctx, player.TeamID)
	if err != nil {
		return nil, err
	}
	return &model.PlayerWithOwner{Player: player, TeamAdminID: team.AdminID}, nil
}

func (s *Storage) ListPlayersForTeam(ctx context.Context, teamID model.TeamID) ([]*model.Player, error) {
	players, err := listByIndex[model.Player](ctx, s, playersForTeamIndexKey(teamID), func(id int64) string {
		return playerKey(model.PlayerID(id))
	}, "list players")
	if err != nil {
		return nil, err
	}
	slices.SortFunc(players, func(a, b *model.Player) int {
		return cmp.Compare(a.JerseyNumber, b.JerseyNumber)
	})
	return players, nil
}

func (s *Storage) FindConflictingJerseyNumber(ctx context.Context, teamID model.TeamID, number int, excludeID *model.PlayerID) (bool, error) {
	holder, err := s.lookupIndex(ctx, jerseyIndexKey(teamID, number), "find conflicting jersey number")
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if excludeID != nil && model.PlayerID(holder) == *excludeID {
		return false, nil
	}
	return true, nil
}

// Scouting report operations

func (s *Storage) CreateScoutingReport(ctx context.Context, report *model.ScoutingReport) error {
	exists, err := s.exists(ctx, teamKey(report.TeamID), "create scouting report")
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrTeamNotFound
	}
	id, err := s.nextID(ctx, kindReport)
	if err != nil {
		return err
	}
	report.ID = model.ScoutingReportID(id)
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, reportKey(report.ID), data, 0)
		pipe.SAdd(ctx, reportsForTeamIndexKey(report.TeamID), id)
		return nil
	})
	if err != nil {
		return storage.Unavailable("create scouting report", err)
	}
	return nil
}

func (s *Storage) ListScoutingReportsForTeam(ctx context.Context, teamID model.TeamID) ([]*model.ScoutingReport, error) {
	reports, err := listByIndex[model.ScoutingReport](ctx, s, reportsForTeamIndexKey(teamID), func(id int64) string {
		return reportKey(model.ScoutingReportID(id))
	}, "list scouting reports")
	if err != nil {
		return nil, err
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
	exists, err := s.exists(ctx, teamKey(game.TeamID), "create game")
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrTeamNotFound
	}
	id, err := s.nextID(ctx, kindGame)
	if err != nil {
		return err
	}
	game.ID = model.GameID(id)
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(game.ID), data, 0)
		pipe.SAdd(ctx, gamesForTeamIndexKey(game.TeamID), id)
		return nil
	})
	if err != nil {
		return storage.Unavailable("create game", err)
	}
	return nil
}

func (s *Storage) ListGamesForTeam(ctx context.Context, teamID model.TeamID) ([]*model.Game, error) {
	games, err := listByIndex[model.Game](ctx, s, gamesForTeamIndexKey(teamID), func(id int64) string {
		return gameKey(model.GameID(id))
	}, "list games")
	if err != nil {
		return nil, err
	}
	slices.SortFunc(games, func(a, b *model.Game) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return games, nil
}

// Helpers

func (s *Storage) nextID(ctx context.Context, kind string) (int64, error) {
	id, err := s.client.Incr(ctx, sequenceKey(kind)).Result()
	if err != nil {
		return 0, storage.Unavailable("allocate "+kind+" id", err)
	}
	return id, nil
}

func (s *Storage) exists(ctx context.Context, key, op string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, storage.Unavailable(op, err)
	}
	return n > 0, nil
}

// lookupIndex reads an index key holding an id. A missing key is redis.Nil.
func (s *Storage) lookupIndex(ctx context.Context, key, op string) (int64, error) {
	id, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, redis.Nil
	}
	if err != nil {
		return 0, storage.Unavailable(op, err)
	}
	return id, nil
}

func (s *Storage) getJSON(ctx context.Context, key string, dst any, notFound error, op string) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return notFound
	}
	if err != nil {
		return storage.Unavailable(op, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return oops.Code("STORAGE_CORRUPT").With("key", key).Wrap(err)
	}
	return nil
}

func (s *Storage) memberIDs(ctx context.Context, setKey, op string) ([]int64, error) {
	members, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, storage.Unavailable(op, err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// listByIndex loads every record whose id is in setKey
func listByIndex[T any](ctx context.Context, s *Storage, setKey string, recordKey func(int64) string, op string) ([]*T, error) {
	ids, err := s.memberIDs(ctx, setKey, op)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
	}
	values, err := mgetJSON[T](ctx, s.client, keys, op)
	if err != nil {
		return nil, err
	}
	result := make([]*T, 0, len(values))
	for _, v := range values {
		if v != nil {
			result = append(result, v)
		}
	}
	return result, nil
}

// mgetJSON fetches keys with one MGET. Missing or unreadable entries are nil
// at their position.
func mgetJSON[T any](ctx context.Context, client *redis.Client, keys []string, op string) ([]*T, error) {
	if len(keys) == 0 {
		return []*T{}, nil
	}
	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storage.Unavailable(op, err)
	}
	result := make([]*T, len(values))
	for i, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(str), &item); err != nil {
			continue // Skip invalid data
		}
		result[i] = &item
	}
	return result, nil
}
