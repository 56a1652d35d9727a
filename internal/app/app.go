package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/config"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/fetcher"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/scheduler"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/server"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/service"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newStatsClient() *fetcher.Client {
	return fetcher.NewClient(fetcher.Options{
		Timeout:   a.Config.Poller.FetchTimeout,
		UserAgent: a.Config.Poller.UserAgent,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool, storage.RetentionPolicy{
		KeepCount:    a.Config.Retention.KeepCount,
		EveryInserts: a.Config.Retention.EveryInserts,
	})
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running poller plus the HTTP API until a signal
// or a fatal startup error stops it.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	// The only fatal storage error: everything after this point survives
	// target and store hiccups cycle by cycle.
	if err := store.InitSchema(ctx); err != nil {
		return err
	}

	stats := a.newStatsClient()
	poller := service.NewPoller(store, store, stats, a.Config.Poller.MaxConcurrency, a.Logger)
	query := service.NewQuery(store, a.Config.Query.WindowSize)
	api := server.New(a.Config.Server, store, query, stats, store, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		Immediate:    a.Config.Scheduler.Immediate,
	}, a.Logger)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- api.Run(runCtx)
	}()
	go func() {
		errCh <- sched.Run(runCtx, poller.PollCycle)
	}()

	a.Logger.Info().Msg("metrics tracker started")

	err = <-errCh
	stop()
	if second := <-errCh; second != nil && !errors.Is(second, context.Canceled) && err == nil {
		err = second
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("metrics tracker stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Wallet string
	Limit  int
}

// ExportOptions hold parameters for exporting a wallet's series.
type ExportOptions struct {
	Wallet    string
	CSVPath   string
	PNGPath   string
	MaxPoints int
}

// RegisterOptions configure the register command.
type RegisterOptions struct {
	Endpoint string
	Wallet   string
}
