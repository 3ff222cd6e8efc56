package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/storage"
)

// Constraint names from migrations/000001_init.up.sql
const (
	constraintUserEmail        = "users_email_key"
	constraintTeamInviteCode   = "teams_invite_code_key"
	constraintMembershipPKey   = "team_memberships_pkey"
	constraintPlayerJersey     = "players_team_id_jersey_number_key"
	constraintMembershipUserFK = "team_memberships_user_id_fkey"
	constraintTeamAdminFK      = "teams_admin_id_fkey"
	constraintReportAuthorFK   = "scouting_reports_author_id_fkey"
)

// mapError converts a driver error into the storage error taxonomy.
// Constraint violations become their sentinel; anything else is reported
// as unavailable with the operation attached.
func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			switch pgErr.ConstraintName {
			case constraintUserEmail:
				return storage.ErrEmailTaken
			case constraintTeamInviteCode:
				return storage.ErrInviteCodeTaken
			case constraintMembershipPKey:
				return storage.ErrMembershipExists
			case constraintPlayerJersey:
				return storage.ErrJerseyTaken
			}
		case pgerrcode.ForeignKeyViolation:
			switch pgErr.ConstraintName {
			case constraintMembershipUserFK, constraintTeamAdminFK, constraintReportAuthorFK:
				return model.ErrUserNotFound
			default:
				// Every other foreign key references teams
				return model.ErrTeamNotFound
			}
		}
	}
	return storage.Unavailable(op, err)
}
