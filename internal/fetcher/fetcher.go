package fetcher

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// RawStats is the normalised snapshot decoded from a client endpoint.
// The fetcher produces transient copies; ownership of persisted samples
// stays with the storage layer.
type RawStats struct {
	Wallet         string
	PortfolioValue decimal.Decimal
	USDTBalance    *decimal.Decimal
	NativeBalance  *decimal.Decimal
}

// StatsFetcher retrieves the current stats snapshot from one endpoint.
type StatsFetcher interface {
	FetchStats(ctx context.Context, endpoint string) (RawStats, error)
}

// FetchError carries the failing endpoint alongside the cause so that
// per-target failures stay attributable in logs.
type FetchError struct {
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
