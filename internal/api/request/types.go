package request

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the request body for registering with an invite code
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
	Role     string `json:"role"`
}

// PlayerRequest is the request body for creating or replacing a player.
// JerseyNumber is a pointer so that an omitted number is distinguishable
// from jersey 0.
type PlayerRequest struct {
	Name         string `json:"name"`
	JerseyNumber *int   `json:"jersey_number"`
	Position     string `json:"position"`
}

// ScoutingReportRequest is the request body for filing a scouting report
type ScoutingReportRequest struct {
	Opponent string `json:"opponent"`
	Notes    string `json:"notes"`
}
