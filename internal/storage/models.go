package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClientRecord is one registered polling target. The wallet is the stable
// identity of its time series; the endpoint is where snapshots come from.
type ClientRecord struct {
	ID        int64
	Endpoint  string
	Wallet    string
	CreatedAt time.Time
}

// PortfolioSample is one persisted balance snapshot. PortfolioValue is
// always present; the secondary balances are optional and stored as NULL
// when the polled endpoint omits them.
type PortfolioSample struct {
	ID             int64
	Wallet         string
	PortfolioValue decimal.Decimal
	USDTBalance    *decimal.Decimal
	NativeBalance  *decimal.Decimal
	SampledAt      time.Time
}

// SeriesPoint is a chart-ready (timestamp, value) pair.
type SeriesPoint struct {
	Timestamp time.Time
	Value     decimal.Decimal
}
