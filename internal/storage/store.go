package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/config"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrAlreadyRegistered indicates a duplicate registration attempt.
	ErrAlreadyRegistered = errors.New("storage: client already registered")
	// ErrNotRegistered indicates a lookup for an unknown client.
	ErrNotRegistered = errors.New("storage: client not registered")
)

const (
	createClientsTableSQL = `CREATE TABLE IF NOT EXISTS clients (
        id         bigserial PRIMARY KEY,
        endpoint   text NOT NULL UNIQUE,
        wallet     text NOT NULL UNIQUE,
        created_at timestamptz NOT NULL DEFAULT now()
    );`

	createPortfolioLogTableSQL = `CREATE TABLE IF NOT EXISTS portfolio_log (
        id              bigserial PRIMARY KEY,
        wallet          text NOT NULL,
        portfolio_value numeric NOT NULL,
        usdt_balance    numeric,
        native_balance  numeric,
        sampled_at      timestamptz NOT NULL DEFAULT now()
    );`

	createPortfolioLogIndexSQL = `CREATE INDEX IF NOT EXISTS portfolio_log_wallet_sampled_at_idx
        ON portfolio_log (wallet, sampled_at DESC);`

	// The baseline is pinned at first append so retention cleanup can
	// never rewrite it by deleting the oldest log rows.
	createBaselineTableSQL = `CREATE TABLE IF NOT EXISTS portfolio_baseline (
        wallet          text PRIMARY KEY,
        portfolio_value numeric NOT NULL,
        sampled_at      timestamptz NOT NULL
    );`
)

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// RetentionPolicy caps per-wallet log growth. Cleanup is amortised: it runs
// after every EveryInserts appends for a wallet rather than on each write.
type RetentionPolicy struct {
	KeepCount    int
	EveryInserts int
}

// Store aggregates access to the client registry and the portfolio log.
type Store struct {
	pool      *pgxpool.Pool
	retention RetentionPolicy

	mu          sync.Mutex
	appendCount map[string]int
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool, retention RetentionPolicy) *Store {
	return &Store{
		pool:        pool,
		retention:   retention,
		appendCount: make(map[string]int),
	}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies database reachability.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// InitSchema creates both tables and the window index if they do not exist.
// Runs once at startup before the poller or HTTP surface accept work.
func (s *Store) InitSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	for _, stmt := range []string{
		createClientsTableSQL,
		createPortfolioLogTableSQL,
		createPortfolioLogIndexSQL,
		createBaselineTableSQL,
	} {
		if _, execErr := pool.Exec(ctx, stmt); execErr != nil {
			return fmt.Errorf("init schema: %w", execErr)
		}
	}
	return nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// shouldRetain bumps the wallet's append counter and reports whether the
// amortised cleanup is due, resetting the counter when it is.
func (s *Store) shouldRetain(wallet string) bool {
	if s.retention.EveryInserts <= 0 || s.retention.KeepCount <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendCount[wallet]++
	if s.appendCount[wallet] < s.retention.EveryInserts {
		return false
	}
	s.appendCount[wallet] = 0
	return true
}
