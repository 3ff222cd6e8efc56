package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/teamroster/internal/dependencies/clock"
	"github.com/mcoot/teamroster/internal/metrics"
	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/password"
	"github.com/mcoot/teamroster/internal/services/token"
	"github.com/mcoot/teamroster/internal/storage"
)

// Session is the result of a successful login or registration
type Session struct {
	Token     string
	User      model.User
	ExpiresAt time.Time
}

// RegisterInput holds the fields submitted to Register
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Code     string
	Role     model.Role
}

// Service handles login, registration and token verification
type Service struct {
	storage storage.Storage
	hasher  password.Hasher
	tokens  *token.Issuer
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new auth Service
func New(storage storage.Storage, hasher password.Hasher, tokens *token.Issuer, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		hasher:  hasher,
		tokens:  tokens,
		clock:   clock,
		logger:  logger,
	}
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords both return ErrInvalidCredentials after a comparable
// amount of work.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*Session, error) {
	if err := validateLogin(email, plaintext); err != nil {
		metrics.RecordAuthAttempt("login", metrics.OutcomeInvalid)
		return nil, err
	}
	email = model.NormalizeEmail(email)

	user, err := s.storage.FindUserByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		s.hasher.VerifyDummy(plaintext)
		metrics.RecordAuthAttempt("login", metrics.OutcomeFailure)
		s.logger.Info("login rejected", slog.String("reason", "unknown email"))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		metrics.RecordAuthAttempt("login", metrics.OutcomeError)
		return nil, err
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		metrics.RecordAuthAttempt("login", metrics.OutcomeFailure)
		s.logger.Info("login rejected",
			slog.String("reason", "wrong password"),
			slog.Int64("user_id", int64(user.ID)),
		)
		return nil, ErrInvalidCredentials
	}

	session, err := s.issue(user)
	if err != nil {
		metrics.RecordAuthAttempt("login", metrics.OutcomeError)
		return nil, err
	}
	metrics.RecordAuthAttempt("login", metrics.OutcomeSuccess)
	s.logger.Info("user logged in", slog.Int64("user_id", int64(user.ID)))
	return session, nil
}

// Register creates an account, enrolls it in the team owning the invite
// code and issues a session token. The user and membership rows are
// written in one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	session, err := s.register(ctx, in)
	switch {
	case err == nil:
		metrics.RecordAuthAttempt("register", metrics.OutcomeSuccess)
	case errors.Is(err, storage.ErrUnavailable):
		metrics.RecordAuthAttempt("register", metrics.OutcomeError)
	default:
		var verr *ValidationError
		if errors.As(err, &verr) {
			metrics.RecordAuthAttempt("register", metrics.OutcomeInvalid)
		} else {
			metrics.RecordAuthAttempt("register", metrics.OutcomeFailure)
		}
	}
	return session, err
}

func (s *Service) register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := validateRegister(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	email := model.NormalizeEmail(in.Email)
	code := strings.TrimSpace(in.Code)

	// The code is checked before the email so a bad code never reveals
	// whether an account exists
	team, err := s.storage.FindTeamByInviteCode(ctx, code)
	if errors.Is(err, model.ErrTeamNotFound) {
		return nil, ErrInvalidInviteCode
	}
	if err != nil {
		return nil, err
	}

	_, err = s.storage.FindUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
	}

	err = s.storage.InTx(ctx, func(tx storage.Tx) error {
		// Re-checked inside the transaction; another registration may have
		// taken the email while the password was hashing
		_, err := tx.FindUserByEmail(ctx, email)
		if err == nil {
			return storage.ErrEmailTaken
		}
		if !errors.Is(err, model.ErrUserNotFound) {
			return err
		}
		if err := tx.InsertUser(ctx, user); err != nil {
			return err
		}
		return tx.InsertMembership(ctx, &model.TeamMembership{
			UserID:    user.ID,
			TeamID:    team.ID,
			Role:      in.Role,
			CreatedAt: now,
		})
	})
	if errors.Is(err, storage.ErrEmailTaken) {
		return nil, ErrUserAlreadyExists
	}
	if err != nil {
		s.logger.Error("registration transaction failed",
			slog.Int64("team_id", int64(team.ID)),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", int64(user.ID)),
		slog.Int64("team_id", int64(team.ID)),
		slog.String("role", string(user.Role)),
	)
	return s.issue(user)
}

// Profile returns the account of the authenticated caller
func (s *Service) Profile(ctx context.Context, id Identity) (*model.User, error) {
	return s.storage.GetUser(ctx, id.UserID)
}

// Authenticate verifies a bearer token and returns the caller's identity.
// Every failure is reported as ErrUnauthenticated.
func (s *Service) Authenticate(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrUnauthenticated
	}
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *Service) issue(user *model.User) (*Session, error) {
	tok, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     tok,
		User:      *user,
		ExpiresAt: s.clock.Now().Add(token.Validity),
	}, nil
}
