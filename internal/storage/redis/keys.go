package redis

import (
	"fmt"

	"github.com/mcoot/teamroster/internal/model"
)

// Key prefix for all roster data
const keyPrefix = "roster"

// Entity kinds, used for record keys and id sequences
const (
	kindUser   = "user"
	kindTeam   = "team"
	kindPlayer = "player"
	kindReport = "report"
	kindGame   = "game"
)

// sequenceKey returns the INCR counter that allocates ids for kind
func sequenceKey(kind string) string {
	return fmt.Sprintf("%s:seq:%s", keyPrefix, kind)
}

func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, kindUser, id)
}

func teamKey(id model.TeamID) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, kindTeam, id)
}

func membershipKey(userID model.UserID, teamID model.TeamID) string {
	return fmt.Sprintf("%s:membership:%d:%d", keyPrefix, userID, teamID)
}

func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, kindPlayer, id)
}

func reportKey(id model.ScoutingReportID) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, kindReport, id)
}

func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, kindGame, id)
}

// Unique indexes. Writers claim these with SETNX so the first writer wins.

// emailIndexKey maps a normalized email to a user id
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, email)
}

// inviteCodeIndexKey maps an invite code to a team id
func inviteCodeIndexKey(code string) string {
	return fmt.Sprintf("%s:idx:invite_code:%s", keyPrefix, code)
}

// membershipClaimKey guards the (user, team) pair
func membershipClaimKey(userID model.UserID, teamID model.TeamID) string {
	return fmt.Sprintf("%s:idx:membership:%d:%d", keyPrefix, userID, teamID)
}

// jerseyIndexKey maps (team, number) to the player wearing it
func jerseyIndexKey(teamID model.TeamID, number int) string {
	return fmt.Sprintf("%s:idx:jersey:%d:%d", keyPrefix, teamID, number)
}

// Set indexes for listing

func teamsForUserIndexKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:teams_for_user:%d", keyPrefix, userID)
}

func playersForTeamIndexKey(teamID model.TeamID) string {
	return fmt.Sprintf("%s:idx:players_for_team:%d", keyPrefix, teamID)
}

func reportsForTeamIndexKey(teamID model.TeamID) string {
	return fmt.Sprintf("%s:idx:reports_for_team:%d", keyPrefix, teamID)
}

func gamesForTeamIndexKey(teamID model.TeamID) string {
	return fmt.Sprintf("%s:idx:games_for_team:%d", keyPrefix, teamID)
}
