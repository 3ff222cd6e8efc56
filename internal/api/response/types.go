package response

import (
	"time"

	"github.com/mcoot/teamroster/internal/model"
	"github.com/mcoot/teamroster/internal/services/auth"
	"github.com/mcoot/teamroster/internal/services/roster"
)

// User is the public view of an account. The password hash never leaves
// the server.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:        int64(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// AuthResponse is the response for login and registration
type AuthResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:      UserFromModel(&s.User),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// ProfileResponse wraps the caller's own account
type ProfileResponse struct {
	User User `json:"user"`
}

// Team is the public view of a team. The invite code is only shown to the
// team's admin.
type Team struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
}

// TeamSummary is one entry of the caller's team list
type TeamSummary struct {
	Team    Team   `json:"team"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}

// TeamSummariesFromService converts the caller's team list
func TeamSummariesFromService(summaries []roster.TeamSummary) []TeamSummary {
	out := make([]TeamSummary, len(summaries))
	for i, s := range summaries {
		team := Team{ID: int64(s.Team.ID), Name: s.Team.Name}
		if s.IsAdmin {
			team.InviteCode = s.Team.InviteCode
		}
		out[i] = TeamSummary{Team: team, Role: string(s.Role), IsAdmin: s.IsAdmin}
	}
	return out
}

// Player represents a rostered player
type Player struct {
	ID           int64     `json:"id"`
	TeamID       int64     `json:"team_id"`
	Name         string    `json:"name"`
	JerseyNumber int       `json:"jersey_number"`
	Position     string    `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PlayerFromModel converts a model.Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:           int64(p.ID),
		TeamID:       int64(p.TeamID),
		Name:         p.Name,
		JerseyNumber: p.JerseyNumber,
		Position:     p.Position,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// PlayersFromModel converts a roster
func PlayersFromModel(players []*model.Player) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = PlayerFromModel(p)
	}
	return out
}

// ScoutingReport represents a scouting report
type ScoutingReport struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"team_id"`
	AuthorID  int64     `json:"author_id"`
	Opponent  string    `json:"opponent"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoutingReportFromModel converts a model.ScoutingReport
func ScoutingReportFromModel(r *model.ScoutingReport) ScoutingReport {
	return ScoutingReport{
		ID:        int64(r.ID),
		TeamID:    int64(r.TeamID),
		AuthorID:  int64(r.AuthorID),
		Opponent:  r.Opponent,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
	}
}

// ScoutingReportsFromModel converts a list of reports
func ScoutingReportsFromModel(reports []*model.ScoutingReport) []ScoutingReport {
	out := make([]ScoutingReport, len(reports))
	for i, r := range reports {
		out[i] = ScoutingReportFromModel(r)
	}
	return out
}

// Game represents a scheduled or played fixture. Scores are null until the
// game has been played.
type Game struct {
	ID            int64     `json:"id"`
	TeamID        int64     `json:"team_id"`
	Opponent      string    `json:"opponent"`
	Location      string    `json:"location"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	TeamScore     *int      `json:"team_score"`
	OpponentScore *int      `json:"opponent_score"`
}

// GamesFromModel converts a schedule
func GamesFromModel(games []*model.Game) []Game {
	out := make([]Game, len(games))
	for i, g := range games {
		out[i] = Game{
			ID:            int64(g.ID),
			TeamID:        int64(g.TeamID),
			Opponent:      g.Opponent,
			Location:      g.Location,
			ScheduledAt:   g.ScheduledAt,
			TeamScore:     g.TeamScore,
			OpponentScore: g.OpponentScore,
		}
	}
	return out
}

// Health is the health check body
type Health struct {
	Status string `json:"status"`
}
