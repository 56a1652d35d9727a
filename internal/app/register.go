package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/storage"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/wallet"
)

// Register adds a client endpoint to the registry from the command line.
// Without --wallet the endpoint is probed for its wallet the same way the
// HTTP registration path does.
func (a *App) Register(ctx context.Context, opts RegisterOptions) error {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return errors.New("endpoint is required")
	}

	rawWallet := opts.Wallet
	if rawWallet == "" {
		stats, err := a.newStatsClient().FetchStats(ctx, endpoint)
		if err != nil {
			return fmt.Errorf("probe endpoint: %w", err)
		}
		if stats.Wallet == "" {
			return errors.New("endpoint did not report a wallet; pass --wallet")
		}
		rawWallet = stats.Wallet
	}

	walletAddr, err := wallet.Normalize(rawWallet)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.InitSchema(ctx); err != nil {
		return err
	}

	rec, err := store.RegisterClient(ctx, endpoint, walletAddr)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyRegistered) {
			fmt.Fprintln(os.Stdout, "already registered")
			return nil
		}
		return err
	}

	fmt.Fprintf(os.Stdout, "registered %s -> %s (id %d)\n", rec.Endpoint, rec.Wallet, rec.ID)
	return nil
}
