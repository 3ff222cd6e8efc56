package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTeamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Team commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the teams you belong to",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []TeamSummary

			if err := client.Get(cmd.Context(), "/api/teams", &result); err != nil {
				return err
			}

			NewOutputTo(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	})

	return cmd
}

func newGamesCmd() *cobra.Command {
	var teamID int64

	cmd := &cobra.Command{
		Use:   "games",
		Short: "Game schedule commands",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show a team's schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Game

			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/teams/%d/games", teamID), &result); err != nil {
				return err
			}

			NewOutputTo(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
	addTeamFlag(list, &teamID)
	cmd.AddCommand(list)

	return cmd
}

func addTeamFlag(cmd *cobra.Command, teamID *int64) {
	cmd.Flags().Int64Var(teamID, "team", 0, "Team ID (required)")
	_ = cmd.MarkFlagRequired("team")
}
