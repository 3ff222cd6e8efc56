// Package token issues and verifies signed, time-bound session tokens.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/teamroster/internal/dependencies/clock"
	"github.com/mcoot/teamroster/internal/model"
)

// Validity is how long an issued token stays valid
const Validity = 7 * 24 * time.Hour

// MinSecretLength is the shortest accepted signing secret in bytes
const MinSecretLength = 32

var (
	// ErrInvalidToken is returned for every verification failure. Callers
	// are not told whether the token was malformed, forged or expired.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrSecretTooShort is returned when constructing an Issuer with a weak secret
	ErrSecretTooShort = errors.New("token signing secret too short")
)

// Claims is the verified content of a token
type Claims struct {
	UserID    model.UserID
	Role      model.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// jwtClaims is the wire form of Claims
type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 JWTs. The secret is read-only after
// construction, so an Issuer is safe for concurrent use.
type Issuer struct {
	secret []byte
	clock  clock.Clock
	parser *jwt.Parser
}

// NewIssuer creates an Issuer signing with secret
func NewIssuer(secret []byte, clk clock.Clock) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	key := make([]byte, len(secret))
	copy(key, secret)

	return &Issuer{
		secret: key,
		clock:  clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(clk.Now),
		),
	}, nil
}

// Issue mints a token for the user valid for Validity from now
func (i *Issuer) Issue(userID model.UserID, role model.Role) (string, error) {
	now := i.clock.Now()
	claims := jwtClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(int64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Validity)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks signature and expiry and returns the embedded claims
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	var claims jwtClaims
	_, err := i.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrInvalidToken
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		return nil, ErrInvalidToken
	}

	return &Claims{
		UserID:    model.UserID(id),
		Role:      role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
