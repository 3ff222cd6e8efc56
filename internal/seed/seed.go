// Package seed bootstraps teams, their admins and their schedules from a
// YAML file. Teams and admin accounts never come from the public API, so a
// fresh deployment needs a seed to be usable.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mcoot/teamroster/internal/dependencies/clock"
	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/password"
	"github.com/mcoot/teamroster/internal/storage"
)

// File is the decoded seed document
type File struct {
	Teams []Team `koanf:"teams"`
}

// Team is one team to create
type Team struct {
	Name       string `koanf:"name"`
	InviteCode string `koanf:"invite_code"`
	Admin      Admin  `koanf:"admin"`
	Games      []Game `koanf:"games"`
}

// Admin is the account that administers a seeded team. An existing account
// with the same email is reused.
type Admin struct {
	Name     string `koanf:"name"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

// Game is a fixture on a seeded team's schedule
type Game struct {
	Opponent      string    `koanf:"opponent"`
	Location      string    `koanf:"location"`
	ScheduledAt   time.Time `koanf:"scheduled_at"`
	TeamScore     *int      `koanf:"team_score"`
	OpponentScore *int      `koanf:"opponent_score"`
}

// Result counts what Apply created
type Result struct {
	TeamsCreated int
	TeamsSkipped int
	GamesCreated int
}

// Load reads and validates a seed file
func Load(path string) (*File, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading seed file %s: %w", path, err)
	}

	var f File
	if err := k.Unmarshal("", &f); err != nil {
		return nil, fmt.Errorf("decoding seed file %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every team can be created
func (f *File) Validate() error {
	var errs []error
	codes := make(map[string]bool)
	for i, t := range f.Teams {
		code := strings.TrimSpace(t.InviteCode)
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, fmt.Errorf("teams[%d]: name is required", i))
		}
		if code == "" {
			errs = append(errs, fmt.Errorf("teams[%d]: invite_code is required", i))
		} else if codes[code] {
			errs = append(errs, fmt.Errorf("teams[%d]: duplicate invite_code %q", i, code))
		}
		codes[code] = true
		if model.NormalizeEmail(t.Admin.Email) == "" || t.Admin.Password == "" {
			errs = append(errs, fmt.Errorf("teams[%d]: admin email and password are required", i))
		}
		for j, g := range t.Games {
			if strings.TrimSpace(g.Opponent) == "" || g.ScheduledAt.IsZero() {
				errs = append(errs, fmt.Errorf("teams[%d].games[%d]: opponent and scheduled_at are required", i, j))
			}
		}
	}
	return errors.Join(errs...)
}

// Seeder writes seed data through the storage interface
type Seeder struct {
	storage storage.Storage
	hasher  password.Hasher
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a Seeder
func New(storage storage.Storage, hasher password.Hasher, clock clock.Clock, logger *slog.Logger) *Seeder {
	return &Seeder{storage: storage, hasher: hasher, clock: clock, logger: logger}
}

// Apply creates every team in f whose invite code is not already taken.
// Running it twice is harmless.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var result Result
	for _, t := range f.Teams {
		created, games, err := s.applyTeam(ctx, t)
		if err != nil {
			return result, fmt.Errorf("seeding team %q: %w", t.Name, err)
		}
		if created {
			result.TeamsCreated++
			result.GamesCreated += games
		} else {
			result.TeamsSkipped++
		}
	}
	return result, nil
}

func (s *Seeder) applyTeam(ctx context.Context, t Team) (bool, int, error) {
	code := strings.TrimSpace(t.InviteCode)
	existing, err := s.storage.FindTeamByInviteCode(ctx, code)
	if err == nil {
		s.logger.Info("seed team already present", slog.String("invite_code", code))
		// A previous run may have stopped between the team and its membership
		return false, 0, s.enrolAdmin(ctx, existing, s.clock.Now())
	}
	if !errors.Is(err, model.ErrTeamNotFound) {
		return false, 0, err
	}

	admin, err := s.ensureAdmin(ctx, t.Admin)
	if err != nil {
		return false, 0, err
	}

	now := s.clock.Now()
	team := &model.Team{
		Name:       strings.TrimSpace(t.Name),
		InviteCode: code,
		AdminID:    admin.ID,
		CreatedAt:  now,
	}
	if err := s.storage.CreateTeam(ctx, team); err != nil {
		return false, 0, err
	}

	if err := s.enrolAdmin(ctx, team, now); err != nil {
		return false, 0, err
	}

	for _, g := range t.Games {
		game := &model.Game{
			TeamID:        team.ID,
			Opponent:      strings.TrimSpace(g.Opponent),
			Location:      strings.TrimSpace(g.Location),
			ScheduledAt:   g.ScheduledAt.UTC(),
			TeamScore:     g.TeamScore,
			OpponentScore: g.OpponentScore,
		}
		if err := s.storage.CreateGame(ctx, game); err != nil {
			return false, 0, err
		}
	}

	s.logger.Info("seeded team",
		slog.Int64("team_id", int64(team.ID)),
		slog.Int64("admin_id", int64(admin.ID)),
		slog.Int("games", len(t.Games)),
	)
	return true, len(t.Games), nil
}

// enrolAdmin gives the team's admin a membership row so the team shows up in
// their team list. An existing row is left alone.
func (s *Seeder) enrolAdmin(ctx context.Context, team *model.Team, now time.Time) error {
	err := s.storage.InTx(ctx, func(tx storage.Tx) error {
		return tx.InsertMembership(ctx, &model.TeamMembership{
			UserID:    team.AdminID,
			TeamID:    team.ID,
			Role:      model.RoleAdmin,
			CreatedAt: now,
		})
	})
	if err != nil && !errors.Is(err, storage.ErrMembershipExists) {
		return err
	}
	return nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, a Admin) (*model.User, error) {
	email := model.NormalizeEmail(a.Email)
	existing, err := s.storage.FindUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	digest, err := s.hasher.Hash(a.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:         strings.TrimSpace(a.Name),
		Email:        email,
		PasswordHash: digest,
		Role:         model.RoleAdmin,
		CreatedAt:    s.clock.Now(),
	}
	err = s.storage.InTx(ctx, func(tx storage.Tx) error {
		return tx.InsertUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
