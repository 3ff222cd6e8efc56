package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScoutingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scouting",
		Short: "Scouting report commands",
	}

	var listTeam int64
	list := &cobra.Command{
		Use:   "list",
		Short: "Show a team's scouting reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []ScoutingReport

			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/teams/%d/scouting-reports", listTeam), &result); err != nil {
				return err
			}

			NewOutputTo(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
	addTeamFlag(list, &listTeam)

	var addTeam int64
	var opponent, notes string
	add := &cobra.Command{
		Use:   "add",
		Short: "File a scouting report",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"opponent": opponent,
				"notes":    notes,
			}
			var result ScoutingReport

			if err := client.Post(cmd.Context(), fmt.Sprintf("/api/teams/%d/scouting-reports", addTeam), req, &result); err != nil {
				return err
			}

			NewOutputTo(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
	addTeamFlag(add, &addTeam)
	add.Flags().StringVar(&opponent, "opponent", "", "Opponent name (required)")
	add.Flags().StringVar(&notes, "notes", "", "Report notes (required)")
	_ = add.MarkFlagRequired("opponent")
	_ = add.MarkFlagRequired("notes")

	cmd.AddCommand(list, add)
	return cmd
}
