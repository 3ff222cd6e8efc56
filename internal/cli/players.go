package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlayersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Roster commands",
	}

	cmd.AddCommand(newPlayersListCmd())
	cmd.AddCommand(newPlayersAddCmd())
	cmd.AddCommand(newPlayersUpdateCmd())
	cmd.AddCommand(newPlayersRemoveCmd())

	return cmd
}

type playerFlags struct {
	name     string
	jersey   int
	position string
}

func (f *playerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Player name (required)")
	cmd.Flags().IntVar(&f.jersey, "jersey", 0, "Jersey number, 0 to 99 (required)")
	cmd.Flags().StringVar(&f.position, "position", "", "Position")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("jersey")
}

func (f *playerFlags) body() map[string]any {
	return map[string]any{
		"name":          f.name,
		"jersey_number": f.jersey,
		"position":      f.position,
	}
}

func newPlayersListCmd() *cobra.Command {
	var teamID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show a team's roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Player

			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/teams/%d/players", teamID), &result); err != nil {
				return err
			}

			NewOutputTo(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
	addTeamFlag(cmd, &teamID)

	return cmd
}

func newPlayersAddCmd() *cobra.Command {
	var teamID int64
	var flags playerFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a player to a team you administer",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Player

			if err := client.Post(cmd.Context(), fmt.Sprintf("/api/teams/%d/players", teamID), flags.body(), &result); err != nil {
				return err
			}

			NewOutputTo(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
	addTeamFlag(cmd, &teamID)
	flags.register(cmd)

	return cmd
}

func newPlayersUpdateCmd() *cobra.Command {
	var flags playerFlags

	cmd := &cobra.Command{
		Use:   "update <player-id>",
		Short: "Replace a player's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Player

			if err := client.Put(cmd.Context(), "/api/players/"+args[0], flags.body(), &result); err != nil {
				return err
			}

			NewOutputTo(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func newPlayersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <player-id>",
		Short: "Remove a player from the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), "/api/players/"+args[0]); err != nil {
				return err
			}

			NewOutputTo(cfg.Output, cmd.OutOrStdout()).PrintMessage("Removed player " + args[0])
			return nil
		},
	}
}
