package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/app"
)

var (
	exportWallet    string
	exportCSVPath   string
	exportPNGPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a wallet's series as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportWallet == "" {
			return fmt.Errorf("--wallet is required")
		}

		opts := app.ExportOptions{
			Wallet:    exportWallet,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportWallet, "wallet", "", "Wallet address to export")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Write series to this CSV file")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Render series to this PNG file")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Cap exported points (default from config)")
}
