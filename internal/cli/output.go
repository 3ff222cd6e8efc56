package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return NewOutputTo(format, os.Stdout)
}

// NewOutputTo creates a new Output formatter writing to w
func NewOutputTo(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case Profile:
		o.printUser(v.User)
	case []TeamSummary:
		o.printTeams(v)
	case Player:
		o.printPlayers([]Player{v})
	case []Player:
		o.printPlayers(v)
	case ScoutingReport:
		o.printReports([]ScoutingReport{v})
	case []ScoutingReport:
		o.printReports(v)
	case []Game:
		o.printGames(v)
	case HealthResult:
		_, _ = fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult is the login and registration response
type AuthResult struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Profile is the profile response
type Profile struct {
	User User `json:"user"`
}

// Team response type
type Team struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
}

// TeamSummary response type
type TeamSummary struct {
	Team    Team   `json:"team"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}

// Player response type
type Player struct {
	ID           int64     `json:"id"`
	TeamID       int64     `json:"team_id"`
	Name         string    `json:"name"`
	JerseyNumber int       `json:"jersey_number"`
	Position     string    `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScoutingReport response type
type ScoutingReport struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"team_id"`
	AuthorID  int64     `json:"author_id"`
	Opponent  string    `json:"opponent"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// Game response type
type Game struct {
	ID            int64     `json:"id"`
	TeamID        int64     `json:"team_id"`
	Opponent      string    `json:"opponent"`
	Location      string    `json:"location"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	TeamScore     *int      `json:"team_score"`
	OpponentScore *int      `json:"opponent_score"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printUser(u User) {
	_, _ = fmt.Fprintf(o.w, "User: %s <%s> (%d)\n", u.Name, u.Email, u.ID)
	_, _ = fmt.Fprintf(o.w, "Role: %s\n", u.Role)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	_, _ = fmt.Fprintf(o.w, "Token expires: %s\n", a.ExpiresAt.Local().Format(time.RFC1123))
}

func (o *Output) printTeams(teams []TeamSummary) {
	if len(teams) == 0 {
		_, _ = fmt.Fprintln(o.w, "No teams")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tROLE\tINVITE CODE")
	for _, t := range teams {
		code := "-"
		if t.Team.InviteCode != "" {
			code = t.Team.InviteCode
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.Team.ID, t.Team.Name, t.Role, code)
	}
	_ = tw.Flush()
}

func (o *Output) printPlayers(players []Player) {
	if len(players) == 0 {
		_, _ = fmt.Fprintln(o.w, "No players")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\t#\tNAME\tPOSITION")
	for _, p := range players {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", p.ID, p.JerseyNumber, p.Name, p.Position)
	}
	_ = tw.Flush()
}

func (o *Output) printReports(reports []ScoutingReport) {
	if len(reports) == 0 {
		_, _ = fmt.Fprintln(o.w, "No scouting reports")
		return
	}
	for _, r := range reports {
		_, _ = fmt.Fprintf(o.w, "[%d] %s (%s)\n", r.ID, r.Opponent, r.CreatedAt.Local().Format(time.DateOnly))
		_, _ = fmt.Fprintf(o.w, "    %s\n", r.Notes)
	}
}

func (o *Output) printGames(games []Game) {
	if len(games) == 0 {
		_, _ = fmt.Fprintln(o.w, "No games scheduled")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tWHEN\tOPPONENT\tLOCATION\tRESULT")
	for _, g := range games {
		result := "-"
		if g.TeamScore != nil && g.OpponentScore != nil {
			result = fmt.Sprintf("%d-%d", *g.TeamScore, *g.OpponentScore)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			g.ID, g.ScheduledAt.Local().Format("2006-01-02 15:04"), g.Opponent, g.Location, result)
	}
	_ = tw.Flush()
}
