package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/storage"
)

// SeriesWindow is the chart-ready read model: the earliest-ever value as
// baseline plus the recent window in ascending time order.
type SeriesWindow struct {
	Baseline decimal.Decimal
	Points   []storage.SeriesPoint
}

// SeriesReader is the read-side slice of the sample store.
type SeriesReader interface {
	Baseline(ctx context.Context, wallet string) (decimal.Decimal, error)
	RecentWindow(ctx context.Context, wallet string, limit int) ([]storage.SeriesPoint, error)
}

// Query assembles series windows from the sample store. Pure read side;
// safe to call concurrently with the poller's writes.
type Query struct {
	samples    SeriesReader
	windowSize int
}

// NewQuery constructs the query service.
func NewQuery(samples SeriesReader, windowSize int) *Query {
	if windowSize <= 0 {
		windowSize = 90
	}
	return &Query{samples: samples, windowSize: windowSize}
}

// GetSeries returns the baseline and recent window for a wallet. A wallet
// with no samples yields the sentinel baseline and an empty point list,
// never an error.
func (q *Query) GetSeries(ctx context.Context, wallet string) (SeriesWindow, error) {
	baseline, err := q.samples.Baseline(ctx, wallet)
	if err != nil {
		return SeriesWindow{}, fmt.Errorf("baseline: %w", err)
	}

	points, err := q.samples.RecentWindow(ctx, wallet, q.windowSize)
	if err != nil {
		return SeriesWindow{}, fmt.Errorf("recent window: %w", err)
	}

	return SeriesWindow{Baseline: baseline, Points: points}, nil
}
