package model

import "time"

// TeamID uniquely identifies a team
type TeamID int64

// Team is a tenant. Teams are created by seeding, never through the API.
type Team struct {
	ID         TeamID
	Name       string
	InviteCode string
	AdminID    UserID
	CreatedAt  time.Time
}

// IsAdmin reports whether the given user administers the team
func (t *Team) IsAdmin(userID UserID) bool {
	return t.AdminID == userID
}

// TeamMembership binds a user to a team with a team-scoped role
type TeamMembership struct {
	UserID    UserID
	TeamID    TeamID
	Role      Role
	CreatedAt time.Time
}

// MembershipWithTeam is a membership joined with its team row
type MembershipWithTeam struct {
	Membership TeamMembership
	Team       Team
}
