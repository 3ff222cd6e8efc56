package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamroster/internal/dependencies/mocks"
	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/password"
	"github.com/mcoot/teamroster/internal/services/token"
	"github.com/mcoot/teamroster/internal/storage"
	"github.com/mcoot/teamroster/internal/storage/memory"
	"github.com/mcoot/teamroster/internal/testutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	hasher  *password.BcryptHasher
	tokens  *token.Issuer
	service *Service
	ctx     context.Context

	team *model.Team
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupSuite() {
	hasher, err := password.NewBcryptHasher()
	s.Require().NoError(err)
	s.hasher = hasher
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	tokens, err := token.NewIssuer(testSecret, s.clock)
	s.Require().NoError(err)
	s.tokens = tokens
	s.service = New(s.storage, s.hasher, s.tokens, s.clock, testutil.NopLogger())
	s.ctx = context.Background()

	s.team = &model.Team{Name: "Hawks", InviteCode: "TEAM123", AdminID: 99}
	s.Require().NoError(s.storage.CreateTeam(s.ctx, s.team))
}

func (s *ServiceSuite) validInput() RegisterInput {
	return RegisterInput{
		Name:     "Alice",
		Email:    "alice@x.com",
		Password: "secret1",
		Code:     "TEAM123",
		Role:     model.RoleParent,
	}
}

func (s *ServiceSuite) register(in RegisterInput) *Session {
	session, err := s.service.Register(s.ctx, in)
	s.Require().NoError(err)
	return session
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	session := s.register(s.validInput())

	s.NotEmpty(session.Token)
	s.NotZero(session.User.ID)
	s.Equal("Alice", session.User.Name)
	s.Equal("alice@x.com", session.User.Email)
	s.Equal(model.RoleParent, session.User.Role)
	s.True(s.clock.Now().Add(token.Validity).Equal(session.ExpiresAt))
}

func (s *ServiceSuite) TestRegisterEnrollsInTeam() {
	session := s.register(s.validInput())

	m, err := s.storage.GetMembership(s.ctx, session.User.ID, s.team.ID)
	s.Require().NoError(err)
	s.Equal(model.RoleParent, m.Role)
}

func (s *ServiceSuite) TestRegisterStoresHashNotPassword() {
	session := s.register(s.validInput())

	user, err := s.storage.GetUser(s.ctx, session.User.ID)
	s.Require().NoError(err)
	s.NotEqual("secret1", user.PasswordHash)
	s.True(s.hasher.Verify("secret1", user.PasswordHash))
}

func (s *ServiceSuite) TestRegisterNormalizesEmail() {
	in := s.validInput()
	in.Email = "  Alice@X.com "
	session := s.register(in)
	s.Equal("alice@x.com", session.User.Email)

	in.Email = "ALICE@x.com"
	_, err := s.service.Register(s.ctx, in)
	s.ErrorIs(err, ErrUserAlreadyExists)
}

func (s *ServiceSuite) TestRegisterTokenCarriesDefaultRole() {
	session := s.register(s.validInput())

	id, err := s.service.Authenticate(session.Token)
	s.Require().NoError(err)
	s.Equal(session.User.ID, id.UserID)
	s.Equal(model.RoleParent, id.Role)
}

func (s *ServiceSuite) TestRegisterReportsEveryInvalidField() {
	_, err := s.service.Register(s.ctx, RegisterInput{
		Name:     " A ",
		Email:    "not-an-email",
		Password: "12345",
		Code:     "  ",
		Role:     model.RoleAdmin,
	})

	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	s.ElementsMatch([]string{"name", "email", "password", "code", "role"}, fields)
}

func (s *ServiceSuite) TestRegisterRejectsAdminRole() {
	in := s.validInput()
	in.Role = model.RoleAdmin

	var verr *ValidationError
	_, err := s.service.Register(s.ctx, in)
	s.Require().ErrorAs(err, &verr)
	s.Len(verr.Fields, 1)
	s.Equal("role", verr.Fields[0].Field)
}

func (s *ServiceSuite) TestRegisterUnknownInviteCode() {
	in := s.validInput()
	in.Code = "NOPE"
	_, err := s.service.Register(s.ctx, in)
	s.ErrorIs(err, ErrInvalidInviteCode)
}

func (s *ServiceSuite) TestRegisterChecksInviteCodeBeforeEmail() {
	s.register(s.validInput())

	in := s.validInput()
	in.Code = "NOPE"
	_, err := s.service.Register(s.ctx, in)
	s.ErrorIs(err, ErrInvalidInviteCode)

	in.Code = "TEAM123"
	_, err = s.service.Register(s.ctx, in)
	s.ErrorIs(err, ErrUserAlreadyExists)
}

func (s *ServiceSuite) TestRegisterRollsBackUserWhenMembershipFails() {
	failing := &faultyStorage{Storage: s.storage, membershipErr: errors.New("disk on fire")}
	service := New(failing, s.hasher, s.tokens, s.clock, testutil.NopLogger())

	_, err := service.Register(s.ctx, s.validInput())
	s.Require().Error(err)

	_, err = s.storage.FindUserByEmail(s.ctx, "alice@x.com")
	s.ErrorIs(err, model.ErrUserNotFound)

	// The same email can register once storage recovers
	s.register(s.validInput())
}

func (s *ServiceSuite) TestRegisterSurfacesStorageUnavailable() {
	failing := &faultyStorage{Storage: s.storage, membershipErr: storage.Unavailable("insert membership", errors.New("conn reset"))}
	service := New(failing, s.hasher, s.tokens, s.clock, testutil.NopLogger())

	_, err := service.Register(s.ctx, s.validInput())
	s.ErrorIs(err, storage.ErrUnavailable)
}

func (s *ServiceSuite) TestRegisterRechecksEmailInsideTransaction() {
	s.register(s.validInput())

	// The pre-check misses the existing account, as when a concurrent
	// registration commits between the two reads
	stale := &staleReadStorage{Storage: s.storage}
	service := New(stale, s.hasher, s.tokens, s.clock, testutil.NopLogger())

	_, err := service.Register(s.ctx, s.validInput())
	s.ErrorIs(err, ErrUserAlreadyExists)
	s.Zero(stale.inserts)
}

func (s *ServiceSuite) TestConcurrentDuplicateRegistrationsExactlyOneSucceeds() {
	const attempts = 6

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.Register(s.ctx, s.validInput())
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, ErrUserAlreadyExists)
	}
	s.Equal(1, succeeded)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	registered := s.register(s.validInput())

	session, err := s.service.Login(s.ctx, "alice@x.com", "secret1")
	s.Require().NoError(err)
	s.Equal(registered.User.ID, session.User.ID)

	id, err := s.service.Authenticate(session.Token)
	s.Require().NoError(err)
	s.Equal(registered.User.ID, id.UserID)
}

func (s *ServiceSuite) TestLoginNormalizesEmail() {
	s.register(s.validInput())

	_, err := s.service.Login(s.ctx, "  ALICE@x.com", "secret1")
	s.NoError(err)
}

func (s *ServiceSuite) TestLoginWrongPasswordAndUnknownEmailMatch() {
	s.register(s.validInput())

	_, wrongPassword := s.service.Login(s.ctx, "alice@x.com", "wrong-password")
	_, unknownEmail := s.service.Login(s.ctx, "nobody@x.com", "secret1")

	s.ErrorIs(wrongPassword, ErrInvalidCredentials)
	s.ErrorIs(unknownEmail, ErrInvalidCredentials)
	s.Equal(wrongPassword.Error(), unknownEmail.Error())
}

func (s *ServiceSuite) TestLoginValidation() {
	_, err := s.service.Login(s.ctx, "bad", "")

	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Len(verr.Fields, 2)
}

// Authenticate and profile tests

func (s *ServiceSuite) TestAuthenticateRejectsMissingAndGarbageTokens() {
	_, err := s.service.Authenticate("")
	s.ErrorIs(err, ErrUnauthenticated)

	_, err = s.service.Authenticate("garbage")
	s.ErrorIs(err, ErrUnauthenticated)
}

func (s *ServiceSuite) TestAuthenticateRejectsExpiredToken() {
	session := s.register(s.validInput())

	s.clock.Advance(token.Validity + time.Second)
	_, err := s.service.Authenticate(session.Token)
	s.ErrorIs(err, ErrUnauthenticated)
}

func (s *ServiceSuite) TestProfile() {
	session := s.register(s.validInput())

	user, err := s.service.Profile(s.ctx, Identity{UserID: session.User.ID, Role: session.User.Role})
	s.Require().NoError(err)
	s.Equal("Alice", user.Name)

	_, err = s.service.Profile(s.ctx, Identity{UserID: 12345})
	s.ErrorIs(err, model.ErrUserNotFound)
}

// faultyStorage fails membership inserts inside transactions
type faultyStorage struct {
	storage.Storage
	membershipErr error
}

func (f *faultyStorage) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return f.Storage.InTx(ctx, func(tx storage.Tx) error {
		return fn(&faultyTx{Tx: tx, membershipErr: f.membershipErr})
	})
}

type faultyTx struct {
	storage.Tx
	membershipErr error
}

// staleReadStorage never finds users outside a transaction and counts user
// inserts inside one
type staleReadStorage struct {
	storage.Storage
	inserts int
}

func (f *staleReadStorage) FindUserByEmail(context.Context, string) (*model.User, error) {
	return nil, model.ErrUserNotFound
}

func (f *staleReadStorage) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return f.Storage.InTx(ctx, func(tx storage.Tx) error {
		return fn(&countingTx{Tx: tx, inserts: &f.inserts})
	})
}

type countingTx struct {
	storage.Tx
	inserts *int
}

func (t *countingTx) InsertUser(ctx context.Context, u *model.User) error {
	*t.inserts++
	return t.Tx.InsertUser(ctx, u)
}

func (t *faultyTx) InsertMembership(ctx context.Context, m *model.TeamMembership) error {
	return t.membershipErr
}
