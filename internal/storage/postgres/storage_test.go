package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/storage"
)

var testTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Storage) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock, NewWithPool(mock)
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraint}
}

func TestFindUserByEmail(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "created_at"}).
					AddRow(int64(1), "Alice", "alice@x.com", "hash", "parent", testTime)
				mock.ExpectQuery(`SELECT .+ FROM users WHERE LOWER\(email\) = LOWER\(\$1\)`).
					WithArgs("alice@x.com").
					WillReturnRows(rows)
			},
		},
		{
			name: "not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM users`).
					WithArgs("alice@x.com").
					WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "created_at"}))
			},
			wantErr: model.ErrUserNotFound,
		},
		{
			name: "connection failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM users`).
					WithArgs("alice@x.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: storage.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, store := newMock(t)
			tt.setupMock(mock)

			user, err := store.FindUserByEmail(context.Background(), "alice@x.com")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.UserID(1), user.ID)
			assert.Equal(t, model.RoleParent, user.Role)
		})
	}
}

func TestInTxCommitsUserAndMembership(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Alice", "alice@x.com", "hash", "parent", testTime).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT INTO team_memberships`).
		WithArgs(int64(7), int64(3), "parent", testTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	user := &model.User{Name: "Alice", Email: "alice@x.com", PasswordHash: "hash", Role: model.RoleParent, CreatedAt: testTime}
	err := store.InTx(context.Background(), func(tx storage.Tx) error {
		if err := tx.InsertUser(context.Background(), user); err != nil {
			return err
		}
		return tx.InsertMembership(context.Background(), &model.TeamMembership{UserID: user.ID, TeamID: 3, Role: model.RoleParent, CreatedAt: testTime})
	})
	require.NoError(t, err)
	assert.Equal(t, model.UserID(7), user.ID)
}

func TestInTxRollsBackOnMembershipFailure(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Alice", "alice@x.com", "hash", "parent", testTime).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT INTO team_memberships`).
		WithArgs(int64(7), int64(3), "parent", testTime).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "team_memberships_team_id_fkey"})
	mock.ExpectRollback()

	user := &model.User{Name: "Alice", Email: "alice@x.com", PasswordHash: "hash", Role: model.RoleParent, CreatedAt: testTime}
	err := store.InTx(context.Background(), func(tx storage.Tx) error {
		if err := tx.InsertUser(context.Background(), user); err != nil {
			return err
		}
		return tx.InsertMembership(context.Background(), &model.TeamMembership{UserID: user.ID, TeamID: 3, Role: model.RoleParent, CreatedAt: testTime})
	})
	assert.ErrorIs(t, err, model.ErrTeamNotFound)
}

func TestInTxRollsBackWhenFnPanics(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = store.InTx(context.Background(), func(tx storage.Tx) error {
			panic("boom")
		})
	})
}

func TestInsertUserDuplicateEmail(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Alice", "alice@x.com", "hash", "player", testTime).
		WillReturnError(uniqueViolation("users_email_key"))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx storage.Tx) error {
		return tx.InsertUser(context.Background(), &model.User{Name: "Alice", Email: "alice@x.com", PasswordHash: "hash", Role: model.RolePlayer, CreatedAt: testTime})
	})
	assert.ErrorIs(t, err, storage.ErrEmailTaken)
}

func TestInTxBeginFailure(t *testing.T) {
	mock, store := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := store.InTx(context.Background(), func(tx storage.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.False(t, called)
}

func TestFindPlayerWithOwningTeam(t *testing.T) {
	mock, store := newMock(t)

	rows := pgxmock.NewRows([]string{"id", "team_id", "name", "jersey_number", "position", "created_at", "updated_at", "admin_id"}).
		AddRow(int64(5), int64(3), "Sam", int32(12), "Guard", testTime, testTime, int64(9))
	mock.ExpectQuery(`FROM players p\s+JOIN teams t`).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	owned, err := store.FindPlayerWithOwningTeam(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, model.TeamID(3), owned.Player.TeamID)
	assert.Equal(t, 12, owned.Player.JerseyNumber)
	assert.Equal(t, model.UserID(9), owned.TeamAdminID)
}

func TestCreatePlayerMapsConstraintViolations(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"jersey taken", uniqueViolation("players_team_id_jersey_number_key"), storage.ErrJerseyTaken},
		{"missing team", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "players_team_id_fkey"}, model.ErrTeamNotFound},
		{"other failure", errors.New("broken pipe"), storage.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, store := newMock(t)
			mock.ExpectQuery(`INSERT INTO players`).
				WithArgs(int64(3), "Sam", 12, "", testTime, testTime).
				WillReturnError(tt.err)

			err := store.CreatePlayer(context.Background(), &model.Player{TeamID: 3, Name: "Sam", JerseyNumber: 12, CreatedAt: testTime, UpdatedAt: testTime})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdatePlayerNotFound(t *testing.T) {
	mock, store := newMock(t)
	mock.ExpectQuery(`UPDATE players`).
		WithArgs("Sam", 12, "", testTime, int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"team_id", "created_at"}))

	err := store.UpdatePlayer(context.Background(), &model.Player{ID: 5, Name: "Sam", JerseyNumber: 12, UpdatedAt: testTime})
	assert.ErrorIs(t, err, model.ErrPlayerNotFound)
}

func TestDeletePlayer(t *testing.T) {
	mock, store := newMock(t)
	mock.ExpectExec(`DELETE FROM players`).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM players`).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.DeletePlayer(context.Background(), 5))
	assert.ErrorIs(t, store.DeletePlayer(context.Background(), 5), model.ErrPlayerNotFound)
}

func TestFindConflictingJerseyNumber(t *testing.T) {
	mock, store := newMock(t)
	exclude := model.PlayerID(5)
	excludeArg := int64(5)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(3), 12, (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(3), 12, &excludeArg).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	taken, err := store.FindConflictingJerseyNumber(context.Background(), 3, 12, nil)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.FindConflictingJerseyNumber(context.Background(), 3, 12, &exclude)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestListMembershipsForUser(t *testing.T) {
	mock, store := newMock(t)
	rows := pgxmock.NewRows([]string{"role", "created_at", "id", "name", "invite_code", "admin_id", "created_at"}).
		AddRow("player", testTime, int64(1), "Hawks", "HAWKS", int64(9), testTime).
		AddRow("parent", testTime, int64(2), "Owls", "OWLS", int64(9), testTime)
	mock.ExpectQuery(`FROM team_memberships m\s+JOIN teams t`).
		WithArgs(int64(4)).
		WillReturnRows(rows)

	memberships, err := store.ListMembershipsForUser(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, memberships, 2)
	assert.Equal(t, model.RolePlayer, memberships[0].Membership.Role)
	assert.Equal(t, model.TeamID(2), memberships[1].Team.ID)
	assert.Equal(t, model.UserID(4), memberships[1].Membership.UserID)
}

func TestListGamesForTeam(t *testing.T) {
	mock, store := newMock(t)
	score := 3
	rows := pgxmock.NewRows([]string{"id", "opponent", "location", "scheduled_at", "team_score", "opponent_score"}).
		AddRow(int64(1), "Eagles", "Home", testTime, &score, (*int)(nil))
	mock.ExpectQuery(`FROM games`).
		WithArgs(int64(3)).
		WillReturnRows(rows)

	games, err := store.ListGamesForTeam(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.NotNil(t, games[0].TeamScore)
	assert.Equal(t, 3, *games[0].TeamScore)
	assert.Nil(t, games[0].OpponentScore)
	assert.Equal(t, model.TeamID(3), games[0].TeamID)
}

func TestMapErrorKeepsOperationContext(t *testing.T) {
	err := mapError("get team", errors.New("i/o timeout"))
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Contains(t, err.Error(), "i/o timeout")
}
