package model

import (
	"strings"
	"time"
)

// UserID uniquely identifies a user account
type UserID int64

// Role is an account-level or team-level role tag
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePlayer Role = "player"
	RoleParent Role = "parent"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePlayer, RoleParent:
		return true
	}
	return false
}

// User is an account. Role is the default role chosen at registration,
// not the role held on any particular team.
type User struct {
	ID           UserID
	Name         string
	Email        string // lowercase, trimmed
	PasswordHash string // bcrypt hash
	Role         Role
	CreatedAt    time.Time
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
