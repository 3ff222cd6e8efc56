package auth

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/password"
)

const (
	minNameLength     = 2
	minPasswordLength = 6
)

// validEmail accepts a bare addr-spec with a dotted domain. Display-name
// forms such as "Alice <a@x.com>" are rejected.
func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}

// registrableRole reports whether a role may be chosen at self-registration.
// Admins are only created by seeding.
func registrableRole(role model.Role) bool {
	return role == model.RolePlayer || role == model.RoleParent
}

func validateLogin(email, password string) error {
	var v validator
	v.check(validEmail(email), "email", "must be a valid email address")
	v.check(password != "", "password", "is required")
	return v.err()
}

func validateRegister(in RegisterInput) error {
	var v validator
	v.check(utf8.RuneCountInString(strings.TrimSpace(in.Name)) >= minNameLength, "name", "must be at least 2 characters")
	v.check(validEmail(in.Email), "email", "must be a valid email address")
	v.check(utf8.RuneCountInString(in.Password) >= minPasswordLength, "password", "must be at least 6 characters")
	v.check(len(in.Password) <= password.MaxBytes, "password", "must be at most 72 bytes")
	v.check(strings.TrimSpace(in.Code) != "", "code", "is required")
	v.check(registrableRole(in.Role), "role", "must be one of: player, parent")
	return v.err()
}
