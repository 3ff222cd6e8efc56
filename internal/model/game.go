package model

import "time"

// GameID uniquely identifies a game
type GameID int64

// Game is a fixture on a team's schedule. Scores are nil until played.
type Game struct {
	ID            GameID
	TeamID        TeamID
	Opponent      string
	Location      string
	ScheduledAt   time.Time
	TeamScore     *int
	OpponentScore *int
}
