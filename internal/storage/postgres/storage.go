// Package postgres implements the storage interface on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/storage"
)

// querier is satisfied by both the pool and a pgx.Tx so queries can run
// inside or outside a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pool is the subset of *pgxpool.Pool the storage uses. pgxmock.PgxPoolIface
// satisfies it in tests.
type pool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Config holds PostgreSQL connection settings
type Config struct {
	// URL is a postgres:// connection string
	URL string

	// Migrate applies the embedded migrations after connecting
	Migrate bool

	// Startup controls how long Connect waits for the database
	Startup storage.StartupRetry
}

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	pool pool
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Connect opens a pool, waits for the database to answer and optionally
// migrates the schema
func Connect(ctx context.Context, cfg Config) (*Storage, error) {
	pgPool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, oops.Code("POSTGRES_CONFIG_INVALID").Wrap(err)
	}

	err = storage.WaitUntilAvailable(ctx, cfg.Startup, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pgPool.Ping(pingCtx)
	})
	if err != nil {
		pgPool.Close()
		return nil, storage.Unavailable("connect", err)
	}

	if cfg.Migrate {
		if err := migrateUp(cfg.URL); err != nil {
			pgPool.Close()
			return nil, err
		}
	}

	return &Storage{pool: pgPool}, nil
}

func migrateUp(url string) error {
	migrator, err := NewMigrator(url)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

// NewWithPool creates a storage over an existing pool (for testing)
func NewWithPool(p pool) *Storage {
	return &Storage{pool: p}
}

// Close releases the pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ping reports whether the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return storage.Unavailable("ping", err)
	}
	return nil
}

// Transactions

type pgTx struct {
	q querier
}

// InTx runs fn inside a database transaction, committing if fn succeeds
func (s *Storage) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.Unavailable("begin transaction", err)
	}
	// Releases the connection if fn fails or panics; a no-op after Commit
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

func (t *pgTx) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findUserByEmail(ctx, t.q, email)
}

func (t *pgTx) InsertUser(ctx context.Context, user *model.User) error {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, user.Name, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt).Scan(&id)
	if err != nil {
		return mapError("insert user", err)
	}
	user.ID = model.UserID(id)
	return nil
}

func (t *pgTx) InsertMembership(ctx context.Context, m *model.TeamMembership) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO team_memberships (user_id, team_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`, int64(m.UserID), int64(m.TeamID), string(m.Role), m.CreatedAt)
	if err != nil {
		return mapError("insert membership", err)
	}
	return nil
}

// User operations

const userColumns = `id, name, email, password_hash, role, created_at`

func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findUserByEmail(ctx, s.pool, email)
}

func findUserByEmail(ctx context.Context, q querier, email string) (*model.User, error) {
	row := q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, mapError("find user by email", err)
	}
	return user, nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, int64(id))
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, mapError("get user", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		id   int64
		role string
	)
	if err := row.Scan(&id, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.ID = model.UserID(id)
	u.Role = model.Role(role)
	return &u, nil
}

// Team operations

const teamColumns = `id, name, invite_code, admin_id, created_at`

func (s *Storage) CreateTeam(ctx context.Context, team *model.Team) error {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO teams (name, invite_code, admin_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, team.Name, team.InviteCode, int64(team.AdminID), team.CreatedAt).Scan(&id)
	if err != nil {
		return mapError("create team", err)
	}
	team.ID = model.TeamID(id)
	return nil
}

func (s *Storage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, int64(id))
	team, err := scanTeam(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrTeamNotFound
	}
	if err != nil {
		return nil, mapError("get team", err)
	}
	return team, nil
}

func (s *Storage) FindTeamByInviteCode(ctx context.Context, code string) (*model.Team, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE invite_code = $1`, code)
	team, err := scanTeam(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrTeamNotFound
	}
	if err != nil {
		return nil, mapError("find team by invite code", err)
	}
	return team, nil
}

func scanTeam(row pgx.Row) (*model.Team, error) {
	var (
		t           model.Team
		id, adminID int64
	)
	if err := row.Scan(&id, &t.Name, &t.InviteCode, &adminID, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.ID = model.TeamID(id)
	t.AdminID = model.UserID(adminID)
	return &t, nil
}

// Membership operations

func (s *Storage) GetMembership(ctx context.Context, userID model.UserID, teamID model.TeamID) (*model.TeamMembership, error) {
	var (
		role string
		m    = model.TeamMembership{UserID: userID, TeamID: teamID}
	)
	err := s.pool.QueryRow(ctx, `
		SELECT role, created_at FROM team_memberships
		WHERE user_id = $1 AND team_id = $2
	`, int64(userID), int64(teamID)).Scan(&role, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrMembershipNotFound
	}
	if err != nil {
		return nil, mapError("get membership", err)
	}
	m.Role = model.Role(role)
	return &m, nil
}

func (s *Storage) ListMembershipsForUser(ctx context.Context, userID model.UserID) ([]model.MembershipWithTeam, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.role, m.created_at, t.id, t.name, t.invite_code, t.admin_id, t.created_at
		FROM team_memberships m
		JOIN teams t ON t.id = m.team_id
		WHERE m.user_id = $1
		ORDER BY t.id
	`, int64(userID))
	if err != nil {
		return nil, mapError("list memberships", err)
	}
	defer rows.Close()

	result := []model.MembershipWithTeam{}
	for rows.Next() {
		var (
			role            string
			teamID, adminID int64
			mt              model.MembershipWithTeam
		)
		if err := rows.Scan(&role, &mt.Membership.CreatedAt, &teamID, &mt.Team.Name, &mt.Team.InviteCode, &adminID, &mt.Team.CreatedAt); err != nil {
			return nil, mapError("scan membership", err)
		}
		mt.Membership.UserID = userID
		mt.Membership.TeamID = model.TeamID(teamID)
		mt.Membership.Role = model.Role(role)
		mt.Team.ID = model.TeamID(teamID)
		mt.Team.AdminID = model.UserID(adminID)
		result = append(result, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list memberships", err)
	}
	return result, nil
}

// Player operations

const playerColumns = `id, team_id, name, jersey_number, position, created_at, updated_at`

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO players (team_id, name, jersey_number, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, int64(player.TeamID), player.Name, player.JerseyNumber, player.Position, player.CreatedAt, player.UpdatedAt).Scan(&id)
	if err != nil {
		return mapError("create player", err)
	}
	player.ID = model.PlayerID(id)
	return nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, player *model.Player) error {
	var teamID int64
	err := s.pool.QueryRow(ctx, `
		UPDATE players
		SET name = $1, jersey_number = $2, position = $3, updated_at = $4
		WHERE id = $5
		RETURNING team_id, created_at
	`, player.Name, player.JerseyNumber, player.Position, player.UpdatedAt, int64(player.ID)).Scan(&teamID, &player.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrPlayerNotFound
	}
	if err != nil {
		return mapError("update player", err)
	}
	player.TeamID = model.TeamID(teamID)
	return nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM players WHERE id = $1`, int64(id))
	if err != nil {
		return mapError("delete player", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

func (s *Storage) FindPlayerWithOwningTeam(ctx context.Context, id model.PlayerID) (*model.PlayerWithOwner, error) {
	var (
		adminID int64
		owned   model.PlayerWithOwner
	)
	row := s.pool.QueryRow(ctx, `
		SELECT p.id, p.team_id, p.name, p.jersey_number, p.position, p.created_at, p.updated_at, t.admin_id
		FROM players p
		JOIN teams t ON t.id = p.team_id
		WHERE p.id = $1
	`, int64(id))
	player, err := scanPlayer(row, &adminID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, mapError("find player with owning team", err)
	}
	owned.Player = *player
	owned.TeamAdminID = model.UserID(adminID)
	return &owned, nil
}

func (s *Storage) ListPlayersForTeam(ctx context.Context, teamID model.TeamID) ([]*model.Player, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE team_id = $1
		ORDER BY jersey_number
	`, int64(teamID))
	if err != nil {
		return nil, mapError("list players", err)
	}
	defer rows.Close()

	players := []*model.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, mapError("scan player", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list players", err)
	}
	return players, nil
}

// scanPlayer reads the player columns followed by any extra destinations
func scanPlayer(row pgx.Row, extra ...any) (*model.Player, error) {
	var (
		p            model.Player
		id, teamID   int64
		jerseyNumber int32
	)
	dest := append([]any{&id, &teamID, &p.Name, &jerseyNumber, &p.Position, &p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.ID = model.PlayerID(id)
	p.TeamID = model.TeamID(teamID)
	p.JerseyNumber = int(jerseyNumber)
	return &p, nil
}

func (s *Storage) FindConflictingJerseyNumber(ctx context.Context, teamID model.TeamID, number int, excludeID *model.PlayerID) (bool, error) {
	var exclude *int64
	if excludeID != nil {
		id := int64(*excludeID)
		exclude = &id
	}
	var taken bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM players
			WHERE team_id = $1 AND jersey_number = $2 AND ($3::BIGINT IS NULL OR id <> $3)
		)
	`, int64(teamID), number, exclude).Scan(&taken)
	if err != nil {
		return false, mapError("find conflicting jersey number", err)
	}
	return taken, nil
}

// Scouting report operations

func (s *Storage) CreateScoutingReport(ctx context.Context, report *model.ScoutingReport) error {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO scouting_reports (team_id, author_id, opponent, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, int64(report.TeamID), int64(report.AuthorID), report.Opponent, report.Notes, report.CreatedAt).Scan(&id)
	if err != nil {
		return mapError("create scouting report", err)
	}
	report.ID = model.ScoutingReportID(id)
	return nil
}

func (s *Storage) ListScoutingReportsForTeam(ctx context.Context, teamID model.TeamID) ([]*model.ScoutingReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, author_id, opponent, notes, created_at
		FROM scouting_reports
		WHERE team_id = $1
		ORDER BY created_at DESC, id DESC
	`, int64(teamID))
	if err != nil {
		return nil, mapError("list scouting reports", err)
	}
	defer rows.Close()

	reports := []*model.ScoutingReport{}
	for rows.Next() {
		var (
			id, authorID int64
			r            = model.ScoutingReport{TeamID: teamID}
		)
		if err := rows.Scan(&id, &authorID, &r.Opponent, &r.Notes, &r.CreatedAt); err != nil {
			return nil, mapError("scan scouting report", err)
		}
		r.ID = model.ScoutingReportID(id)
		r.AuthorID = model.UserID(authorID)
		reports = append(reports, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list scouting reports", err)
	}
	return reports, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO games (team_id, opponent, location, scheduled_at, team_score, opponent_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, int64(game.TeamID), game.Opponent, game.Location, game.ScheduledAt, game.TeamScore, game.OpponentScore).Scan(&id)
	if err != nil {
		return mapError("create game", err)
	}
	game.ID = model.GameID(id)
	return nil
}

func (s *Storage) ListGamesForTeam(ctx context.Context, teamID model.TeamID) ([]*model.Game, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, opponent, location, scheduled_at, team_score, opponent_score
		FROM games
		WHERE team_id = $1
		ORDER BY scheduled_at, id
	`, int64(teamID))
	if err != nil {
		return nil, mapError("list games", err)
	}
	defer rows.Close()

	games := []*model.Game{}
	for rows.Next() {
		var (
			id int64
			g  = model.Game{TeamID: teamID}
		)
		if err := rows.Scan(&id, &g.Opponent, &g.Location, &g.ScheduledAt, &g.TeamScore, &g.OpponentScore); err != nil {
			return nil, mapError("scan game", err)
		}
		g.ID = model.GameID(id)
		games = append(games, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list games", err)
	}
	return games, nil
}
