package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/wallet"
)

// Show prints recent samples for one wallet.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	walletAddr, err := wallet.Normalize(opts.Wallet)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	samples, err := store.RecentSamples(ctx, walletAddr, opts.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tPortfolio\tUSDT\tNative")

	for _, sample := range samples {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			sample.SampledAt.UTC().Format(time.RFC3339),
			sample.PortfolioValue.StringFixed(2),
			formatOptional(sample.USDTBalance),
			formatOptional(sample.NativeBalance),
		)
	}

	writer.Flush()
	return nil
}

func formatOptional(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(4)
}
