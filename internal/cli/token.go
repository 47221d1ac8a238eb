package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/token"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Payment token commands",
	}

	cmd.AddCommand(newTokenBalanceCmd())
	cmd.AddCommand(newTokenApproveCmd())
	cmd.AddCommand(newTokenFaucetCmd())

	return cmd
}

func newTokenBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show a token balance (default: the logged in address)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := addressArg(args)
			if err != nil {
				return err
			}

			var result response.BalanceResponse
			if err := client.Get("/api/v1/token/balance/"+addr.String(), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newTokenApproveCmd() *cobra.Command {
	var spender, amount string
	var poolID int64

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Allow a pool or address to spend your tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{}
			switch {
			case spender != "" && poolID >= 0:
				return errors.New("use only one of --spender and --pool")
			case spender != "":
				addr, err := model.ParseAddress(spender)
				if err != nil {
					return err
				}
				req["spender"] = addr
			case poolID >= 0:
				req["pool_id"] = poolID
			default:
				return errors.New("--spender or --pool is required")
			}

			units, err := parseTokenAmount(amount)
			if err != nil {
				return err
			}
			req["amount"] = token.FormatAmount(units, 0)

			var result response.AllowanceResponse
			if err := client.Post("/api/v1/token/approve", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&spender, "spender", "", "Spender address")
	cmd.Flags().Int64Var(&poolID, "pool", -1, "Pool id whose escrow may spend")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in token units, e.g. 10 (required)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newTokenFaucetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "faucet",
		Short: "Mint test tokens to the logged in address (development servers only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.BalanceResponse

			if err := client.Post("/api/v1/token/faucet", nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
