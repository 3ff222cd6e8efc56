package model

import "time"

// PlayerID uniquely identifies a rostered player
type PlayerID int64

// Player is a roster entry owned by exactly one team.
// JerseyNumber is unique within the owning team.
type Player struct {
	ID           PlayerID
	TeamID       TeamID
	Name         string
	JerseyNumber int
	Position     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlayerWithOwner is a player together with the admin of its owning team
type PlayerWithOwner struct {
	Player      Player
	TeamAdminID UserID
}
