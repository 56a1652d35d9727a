package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	insertSampleSQL = `INSERT INTO portfolio_log (
        wallet,
        portfolio_value,
        usdt_balance,
        native_balance,
        sampled_at
    ) VALUES ($1, $2, $3, $4, $5);`

	insertBaselineSQL = `INSERT INTO portfolio_baseline (wallet, portfolio_value, sampled_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (wallet) DO NOTHING;`

	baselineSQL = `SELECT portfolio_value
    FROM portfolio_baseline
    WHERE wallet = $1;`

	recentWindowSQL = `SELECT sampled_at, portfolio_value
    FROM portfolio_log
    WHERE wallet = $1
    ORDER BY sampled_at DESC, id DESC
    LIMIT $2;`

	retainRecentSQL = `DELETE FROM portfolio_log
    WHERE wallet = $1
      AND id NOT IN (
          SELECT id FROM portfolio_log
          WHERE wallet = $1
          ORDER BY sampled_at DESC, id DESC
          LIMIT $2
      );`

	recentSamplesSQL = `SELECT id, wallet, portfolio_value, usdt_balance, native_balance, sampled_at
    FROM portfolio_log
    WHERE wallet = $1
    ORDER BY sampled_at DESC, id DESC
    LIMIT $2;`

	countSamplesSQL = `SELECT COUNT(*) FROM portfolio_log WHERE wallet = $1;`
)

// BaselineValue is returned for wallets with no samples yet. It is a
// placeholder, not a domain value: downstream chart math divides by the
// baseline, so an empty series must yield a safe divisor.
var BaselineValue = decimal.NewFromInt(1)

// SampleStore defines operations for portfolio time-series persistence.
type SampleStore interface {
	AppendSample(ctx context.Context, sample PortfolioSample) error
	Baseline(ctx context.Context, wallet string) (decimal.Decimal, error)
	RecentWindow(ctx context.Context, wallet string, limit int) ([]SeriesPoint, error)
	RetainRecent(ctx context.Context, wallet string, keep int) error
}

// AppendSample persists one snapshot. Every EveryInserts appends for a
// wallet it also runs the retention cleanup, so the log can overshoot
// KeepCount by at most the amortisation batch between cleanups.
func (s *Store) AppendSample(ctx context.Context, sample PortfolioSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	sampledAt := sample.SampledAt
	if sampledAt.IsZero() {
		sampledAt = time.Now().UTC()
	}

	var usdt, native interface{}
	if sample.USDTBalance != nil {
		usdt = sample.USDTBalance.String()
	}
	if sample.NativeBalance != nil {
		native = sample.NativeBalance.String()
	}

	tx, txErr := pool.Begin(ctx)
	if txErr != nil {
		return fmt.Errorf("append sample: %w", txErr)
	}
	defer tx.Rollback(ctx)

	if _, execErr := tx.Exec(ctx, insertSampleSQL,
		sample.Wallet,
		sample.PortfolioValue.String(),
		usdt,
		native,
		sampledAt,
	); execErr != nil {
		return fmt.Errorf("append sample: %w", execErr)
	}

	// First append for a wallet pins its baseline; later appends no-op.
	if _, execErr := tx.Exec(ctx, insertBaselineSQL,
		sample.Wallet,
		sample.PortfolioValue.String(),
		sampledAt,
	); execErr != nil {
		return fmt.Errorf("pin baseline: %w", execErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("append sample: %w", commitErr)
	}

	if s.shouldRetain(sample.Wallet) {
		if retainErr := s.RetainRecent(ctx, sample.Wallet, s.retention.KeepCount); retainErr != nil {
			return fmt.Errorf("retain after append: %w", retainErr)
		}
	}
	return nil
}

// Baseline returns the portfolio value of the first-ever sample for a
// wallet, or BaselineValue when the wallet has no samples. The value is
// pinned at first append, so it survives retention deleting old log rows.
func (s *Store) Baseline(ctx context.Context, wallet string) (decimal.Decimal, error) {
	pool, err := s.getPool()
	if err != nil {
		return decimal.Decimal{}, err
	}

	var valueStr string
	scanErr := pool.QueryRow(ctx, baselineSQL, wallet).Scan(&valueStr)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return BaselineValue, nil
		}
		return decimal.Decimal{}, fmt.Errorf("baseline: %w", scanErr)
	}

	value, convErr := decimal.NewFromString(valueStr)
	if convErr != nil {
		return decimal.Decimal{}, fmt.Errorf("parse baseline value: %w", convErr)
	}
	return value, nil
}

// RecentWindow returns up to limit most recent points for a wallet,
// re-ordered to ascending time. Storage order is descending-then-reversed;
// the contract to callers is always ascending.
func (s *Store) RecentWindow(ctx context.Context, wallet string, limit int) ([]SeriesPoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, recentWindowSQL, wallet, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("recent window: %w", queryErr)
	}
	defer rows.Close()

	points := make([]SeriesPoint, 0, limit)
	for rows.Next() {
		var (
			sampledAt time.Time
			valueStr  string
		)
		if err := rows.Scan(&sampledAt, &valueStr); err != nil {
			return nil, err
		}
		value, convErr := decimal.NewFromString(valueStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse window value: %w", convErr)
		}
		points = append(points, SeriesPoint{Timestamp: sampledAt, Value: value})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	reversePoints(points)
	return points, nil
}

// RetainRecent deletes all samples for a wallet except the keep most recent.
// The subselect and delete run as one statement, so a concurrent append is
// either visible to the kept-set snapshot or untouched by the delete.
func (s *Store) RetainRecent(ctx context.Context, wallet string, keep int) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, retainRecentSQL, wallet, keep); execErr != nil {
		return fmt.Errorf("retain recent: %w", execErr)
	}
	return nil
}

// RecentSamples returns full sample rows, newest first. Used by the CLI
// read-outs; the chart path goes through RecentWindow instead.
func (s *Store) RecentSamples(ctx context.Context, wallet string, limit int) ([]PortfolioSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, recentSamplesSQL, wallet, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("recent samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]PortfolioSample, 0, limit)
	for rows.Next() {
		var (
			sample   PortfolioSample
			valueStr string
			usdt     sql.NullString
			native   sql.NullString
		)
		if err := rows.Scan(&sample.ID, &sample.Wallet, &valueStr, &usdt, &native, &sample.SampledAt); err != nil {
			return nil, err
		}

		value, convErr := decimal.NewFromString(valueStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse sample value: %w", convErr)
		}
		sample.PortfolioValue = value

		if sample.USDTBalance, convErr = scanNullDecimal(usdt); convErr != nil {
			return nil, convErr
		}
		if sample.NativeBalance, convErr = scanNullDecimal(native); convErr != nil {
			return nil, convErr
		}

		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// CountSamples counts stored samples for a wallet.
func (s *Store) CountSamples(ctx context.Context, wallet string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSamplesSQL, wallet).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count samples: %w", scanErr)
	}
	return count, nil
}

func reversePoints(points []SeriesPoint) {
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
}

func scanNullDecimal(value sql.NullString) (*decimal.Decimal, error) {
	if !value.Valid {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(value.String)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	return &parsed, nil
}

var _ SampleStore = (*Store)(nil)
