package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/reflexpool/internal/api/response"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			if err := client.Get("/api/v1/health", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the disaster scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.ScenariosResponse

			if err := client.Get("/api/v1/scenarios", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
