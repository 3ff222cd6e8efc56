package model

import "time"

// ScoutingReportID uniquely identifies a scouting report
type ScoutingReportID int64

// ScoutingReport is a team-scoped note about an opponent
type ScoutingReport struct {
	ID        ScoutingReportID
	TeamID    TeamID
	AuthorID  UserID
	Opponent  string
	Notes     string
	CreatedAt time.Time
}
