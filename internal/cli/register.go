package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/app"
)

var (
	registerEndpoint string
	registerWallet   string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a client endpoint for polling",
	RunE: func(cmd *cobra.Command, args []string) error {
		if registerEndpoint == "" {
			return fmt.Errorf("--endpoint is required")
		}

		opts := app.RegisterOptions{
			Endpoint: registerEndpoint,
			Wallet:   registerWallet,
		}

		return getApp().Register(cmd.Context(), opts)
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerEndpoint, "endpoint", "", "Client endpoint base URL")
	registerCmd.Flags().StringVar(&registerWallet, "wallet", "", "Wallet address (probed from the endpoint when omitted)")
}
