package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamroster/internal/dependencies/mocks"
	"github.com/mcoot/teamroster/internal/model"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type IssuerSuite struct {
	suite.Suite
	clock  *mocks.MockClock
	issuer *Issuer
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerSuite))
}

func (s *IssuerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	issuer, err := NewIssuer(testSecret, s.clock)
	s.Require().NoError(err)
	s.issuer = issuer
}

func (s *IssuerSuite) TestVerifyRoundTrip() {
	for _, role := range []model.Role{model.RoleAdmin, model.RolePlayer, model.RoleParent} {
		tok, err := s.issuer.Issue(42, role)
		s.Require().NoError(err)

		claims, err := s.issuer.Verify(tok)
		s.Require().NoError(err)
		s.Equal(model.UserID(42), claims.UserID)
		s.Equal(role, claims.Role)
		s.True(s.clock.Now().Equal(claims.IssuedAt))
		s.True(s.clock.Now().Add(Validity).Equal(claims.ExpiresAt))
	}
}

func (s *IssuerSuite) TestValidJustBeforeExpiry() {
	tok, err := s.issuer.Issue(1, model.RolePlayer)
	s.Require().NoError(err)

	s.clock.Advance(Validity - time.Second)

	_, err = s.issuer.Verify(tok)
	s.NoError(err)
}

func (s *IssuerSuite) TestExpiredAfterSevenDays() {
	tok, err := s.issuer.Issue(1, model.RolePlayer)
	s.Require().NoError(err)

	s.clock.Advance(7*24*time.Hour + time.Second)

	_, err = s.issuer.Verify(tok)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *IssuerSuite) TestTamperedSignatureRejected() {
	tok, err := s.issuer.Issue(1, model.RolePlayer)
	s.Require().NoError(err)

	parts := strings.Split(tok, ".")
	s.Require().Len(parts, 3)
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	s.Require().NoError(err)

	for bit := 0; bit < len(sig)*8; bit += 37 {
		flipped := make([]byte, len(sig))
		copy(flipped, sig)
		flipped[bit/8] ^= 1 << (bit % 8)
		forged := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(flipped)

		_, err := s.issuer.Verify(forged)
		s.ErrorIs(err, ErrInvalidToken, "bit %d", bit)
	}
}

func (s *IssuerSuite) TestTamperedPayloadRejected() {
	tok, err := s.issuer.Issue(1, model.RolePlayer)
	s.Require().NoError(err)

	other, err := s.issuer.Issue(2, model.RoleAdmin)
	s.Require().NoError(err)

	// Splice the payload of one token onto the signature of another
	a := strings.Split(tok, ".")
	b := strings.Split(other, ".")
	_, err = s.issuer.Verify(a[0] + "." + b[1] + "." + a[2])
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *IssuerSuite) TestWrongSecretRejected() {
	other, err := NewIssuer([]byte("ffffffffffffffffffffffffffffffff"), s.clock)
	s.Require().NoError(err)

	tok, err := other.Issue(1, model.RoleAdmin)
	s.Require().NoError(err)

	_, err = s.issuer.Verify(tok)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *IssuerSuite) TestMalformedRejected() {
	for _, tok := range []string{"", "abc", "a.b.c", "Bearer x.y.z"} {
		_, err := s.issuer.Verify(tok)
		s.ErrorIs(err, ErrInvalidToken, tok)
	}
}

func (s *IssuerSuite) TestNoneAlgorithmRejected() {
	claims := jwtClaims{
		Role: string(model.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(s.clock.Now()),
			ExpiresAt: jwt.NewNumericDate(s.clock.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)

	_, err = s.issuer.Verify(tok)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *IssuerSuite) TestUnknownRoleRejected() {
	claims := jwtClaims{
		Role: "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(s.clock.Now()),
			ExpiresAt: jwt.NewNumericDate(s.clock.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	s.Require().NoError(err)

	_, err = s.issuer.Verify(tok)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *IssuerSuite) TestShortSecretRefused() {
	_, err := NewIssuer([]byte("short"), s.clock)
	s.ErrorIs(err, ErrSecretTooShort)
}
