package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/model"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player statistics commands",
	}

	cmd.AddCommand(newPlayerRegisterCmd())
	cmd.AddCommand(newPlayerReactCmd())
	cmd.AddCommand(newPlayerGetCmd())
	cmd.AddCommand(newPlayerTopCmd())
	cmd.AddCommand(newPlayerPoolsCmd())

	return cmd
}

func newPlayerRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register the logged in address",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RegisterResponse

			if err := client.Post("/api/v1/players/register", nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerReactCmd() *cobra.Command {
	var win bool

	cmd := &cobra.Command{
		Use:   "react <milliseconds>",
		Short: "Record a free-play reaction time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := parseReactionTime(args[0])
			if err != nil {
				return err
			}

			req := map[string]any{"reaction_time": ms, "is_win": win}
			var result response.Player

			if err := client.Post("/api/v1/players/reactions", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&win, "win", false, "Count the round as a win")

	return cmd
}

func newPlayerGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [address]",
		Short: "Show a player's statistics (default: the logged in address)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := addressArg(args)
			if err != nil {
				return err
			}

			var result response.Player
			if err := client.Get("/api/v1/players/"+addr.String(), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerTopCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.TopPlayersResponse

			if err := client.Get(fmt.Sprintf("/api/v1/players/top?limit=%d", limit), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of players to show")

	return cmd
}

func newPlayerPoolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pools [address]",
		Short: "List the pools a player created or joined",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := addressArg(args)
			if err != nil {
				return err
			}

			var result response.PlayerPoolsResponse
			if err := client.Get("/api/v1/players/"+addr.String()+"/pools", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

// addressArg returns the address argument, falling back to the session's
// address and then the configured key's
func addressArg(args []string) (model.Address, error) {
	if len(args) > 0 {
		return model.ParseAddress(args[0])
	}
	if cfg.Token != "" {
		var session response.Session
		if err := client.Get("/api/v1/auth/me", &session); err == nil {
			return session.Address, nil
		}
	}
	_, addr, err := loadKey()
	if err != nil {
		return model.ZeroAddress, fmt.Errorf("no address given and not logged in")
	}
	return addr, nil
}

func parseReactionTime(s string) (model.ReactionTime, error) {
	ms, err := strconv.ParseUint(s, 10, 64)
	if err != nil || ms == 0 {
		return 0, fmt.Errorf("reaction time must be a positive number of milliseconds: %q", s)
	}
	return model.ReactionTime(ms), nil
}
