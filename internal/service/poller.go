package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/fetcher"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/storage"
)

// ClientLister enumerates the poll targets at cycle start.
type ClientLister interface {
	ListClients(ctx context.Context) ([]storage.ClientRecord, error)
}

// SampleAppender persists one snapshot.
type SampleAppender interface {
	AppendSample(ctx context.Context, sample storage.PortfolioSample) error
}

// Poller runs one enumerate-then-fetch-all cycle over the registry.
type Poller struct {
	clients        ClientLister
	samples        SampleAppender
	stats          fetcher.StatsFetcher
	logger         zerolog.Logger
	maxConcurrency int
}

// NewPoller constructs the polling service.
func NewPoller(clients ClientLister, samples SampleAppender, stats fetcher.StatsFetcher, maxConcurrency int, logger zerolog.Logger) *Poller {
	if maxConcurrency <= 0 {
		maxConcurrency = 16
	}
	return &Poller{
		clients:        clients,
		samples:        samples,
		stats:          stats,
		logger:         logger.With().Str("component", "poller").Logger(),
		maxConcurrency: maxConcurrency,
	}
}

// PollCycle enumerates registered clients and polls them concurrently,
// bounded by maxConcurrency. It returns after every launched task has
// finished, so cycles never overlap. Per-target failures are logged and
// contained; only a registry enumeration failure fails the cycle.
func (p *Poller) PollCycle(ctx context.Context) error {
	clients, err := p.clients.ListClients(ctx)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	if len(clients) == 0 {
		p.logger.Debug().Msg("no clients registered; skipping cycle")
		return nil
	}

	sem := make(chan struct{}, p.maxConcurrency)
	var wg sync.WaitGroup

	for _, client := range clients {
		wg.Add(1)
		sem <- struct{}{}
		go func(client storage.ClientRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			p.pollTarget(ctx, client)
		}(client)
	}

	wg.Wait()
	return nil
}

// pollTarget is the task boundary: nothing it encounters propagates to
// sibling targets or to the scheduler loop.
func (p *Poller) pollTarget(ctx context.Context, client storage.ClientRecord) {
	stats, err := p.stats.FetchStats(ctx, client.Endpoint)
	if err != nil {
		p.logger.Warn().Err(err).
			Str("endpoint", client.Endpoint).
			Str("wallet", client.Wallet).
			Msg("target fetch failed; retrying next cycle")
		return
	}

	sample := storage.PortfolioSample{
		Wallet:         client.Wallet,
		PortfolioValue: stats.PortfolioValue,
		USDTBalance:    stats.USDTBalance,
		NativeBalance:  stats.NativeBalance,
		SampledAt:      time.Now().UTC(),
	}

	if err := p.samples.AppendSample(ctx, sample); err != nil {
		p.logger.Error().Err(err).
			Str("wallet", client.Wallet).
			Msg("failed to persist sample")
		return
	}

	p.logger.Debug().
		Str("wallet", client.Wallet).
		Str("portfolio_value", stats.PortfolioValue.String()).
		Msg("sample recorded")
}
