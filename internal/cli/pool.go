package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/token"
)

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Prize pool commands",
	}

	cmd.AddCommand(newPoolCreateCmd())
	cmd.AddCommand(newPoolGetCmd())
	cmd.AddCommand(newPoolListCmd())
	cmd.AddCommand(newPoolJoinCmd())
	cmd.AddCommand(newPoolActionCmd("start", "Start an open pool (creator or admin)"))
	cmd.AddCommand(newPoolSubmitCmd())
	cmd.AddCommand(newPoolActionCmd("close", "Close a pool and pay the winner"))
	cmd.AddCommand(newPoolRefundCmd())
	cmd.AddCommand(newPoolParticipantsCmd())

	return cmd
}

func newPoolCreateCmd() *cobra.Command {
	var fee string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := parseTokenAmount(fee)
			if err != nil {
				return err
			}

			req := map[string]any{
				"entry_fee": token.FormatAmount(units, 0),
				"duration":  int64(duration / time.Second),
			}
			var result response.Pool

			if err := client.Post("/api/v1/pools", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&fee, "fee", "", "Entry fee in token units, e.g. 10 or 2.5 (required)")
	cmd.Flags().DurationVar(&duration, "duration", time.Hour, "How long the pool runs before it can be closed")
	_ = cmd.MarkFlagRequired("fee")

	return cmd
}

func newPoolGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a pool's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParsePoolID(args[0])
			if err != nil {
				return fmt.Errorf("invalid pool id %q", args[0])
			}

			var result response.Pool
			if err := client.Get(poolPath(id, ""), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPoolListCmd() *cobra.Command {
	var all bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pools, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/pools?limit=%d", limit)
			if !all {
				path += "&active=true"
			}

			var result response.PoolsResponse
			if err := client.Get(path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include closed pools")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of pools to show")

	return cmd
}

func newPoolJoinCmd() *cobra.Command {
	var approve bool

	cmd := &cobra.Command{
		Use:   "join <id>",
		Short: "Join an open pool, paying its entry fee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParsePoolID(args[0])
			if err != nil {
				return fmt.Errorf("invalid pool id %q", args[0])
			}

			if approve {
				var pool response.Pool
				if err := client.Get(poolPath(id, ""), &pool); err != nil {
					return err
				}
				req := map[string]any{"pool_id": id, "amount": pool.EntryFee.Units}
				if err := client.Post("/api/v1/token/approve", req, nil); err != nil {
					return err
				}
			}

			var result response.Pool
			if err := client.Post(poolPath(id, "join"), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the pool to take the entry fee first")

	return cmd
}

// newPoolActionCmd builds a command that posts to a pool action with no body
func newPoolActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParsePoolID(args[0])
			if err != nil {
				return fmt.Errorf("invalid pool id %q", args[0])
			}

			var result response.Pool
			if err := client.Post(poolPath(id, action), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPoolSubmitCmd() *cobra.Command {
	var reactionTime string

	cmd := &cobra.Command{
		Use:   "submit <id>",
		Short: "Sign and submit a reaction time to an active pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParsePoolID(args[0])
			if err != nil {
				return fmt.Errorf("invalid pool id %q", args[0])
			}
			ms, err := parseReactionTime(reactionTime)
			if err != nil {
				return err
			}
			key, _, err := loadKey()
			if err != nil {
				return err
			}

			claim := signClaim(key, ms, time.Now(), newNonce())
			var result response.Pool
			if err := client.Post(poolPath(id, "submit"), claim, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&reactionTime, "time", "", "Reaction time in milliseconds (required)")
	_ = cmd.MarkFlagRequired("time")

	return cmd
}

func newPoolRefundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund <id>",
		Short: "Reclaim the entry fee from a pool closed without submissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParsePoolID(args[0])
			if err != nil {
				return fmt.Errorf("invalid pool id %q", args[0])
			}

			var result response.RefundResponse
			if err := client.Post(poolPath(id, "refund"), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPoolParticipantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "participants <id>",
		Short: "List a pool's participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParsePoolID(args[0])
			if err != nil {
				return fmt.Errorf("invalid pool id %q", args[0])
			}

			var result response.ParticipantsResponse
			if err := client.Get(poolPath(id, "participants"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func poolPath(id model.PoolID, action string) string {
	path := "/api/v1/pools/" + id.String()
	if action != "" {
		path += "/" + action
	}
	return path
}

// parseTokenAmount converts a decimal token amount to base units using the
// server's token decimals
func parseTokenAmount(s string) (model.Amount, error) {
	var info response.TokenInfo
	if err := client.Get("/api/v1/token", &info); err != nil {
		return 0, err
	}
	return token.ParseAmount(s, info.Decimals)
}
