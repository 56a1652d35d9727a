package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const statsPath = "/api/signal"

// Options parameterise the stats client.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// Client fetches stats snapshots from registered endpoints over HTTP.
type Client struct {
	opts   Options
	logger zerolog.Logger
	client *http.Client
}

// NewClient constructs a stats client. The timeout bounds the whole call:
// a hung target costs one cycle for that target, never the cycle itself.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		opts:   opts,
		logger: logger.With().Str("component", "stats_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// FetchStats performs one GET against the endpoint's stats sub-path and
// decodes the snapshot. A missing portfolio_value is a fetch failure;
// missing secondary balances are not.
func (c *Client) FetchStats(ctx context.Context, endpoint string) (RawStats, error) {
	stats, err := c.fetch(ctx, endpoint)
	if err != nil {
		return RawStats{}, &FetchError{Endpoint: endpoint, Err: err}
	}
	return stats, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (RawStats, error) {
	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if base == "" {
		return RawStats{}, errors.New("endpoint is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+statsPath, nil)
	if err != nil {
		return RawStats{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return RawStats{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawStats{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return RawStats{}, statusError(resp.StatusCode, payload)
	}

	var body statsResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return RawStats{}, fmt.Errorf("decode stats: %w", err)
	}

	if body.PortfolioValue == nil {
		return RawStats{}, errors.New("response missing portfolio_value")
	}

	stats := RawStats{
		Wallet:         strings.TrimSpace(body.Wallet),
		PortfolioValue: decimal.NewFromFloat(*body.PortfolioValue),
	}
	if body.USDTBalance != nil {
		v := decimal.NewFromFloat(*body.USDTBalance)
		stats.USDTBalance = &v
	}
	if body.NativeTokenBalance != nil {
		v := decimal.NewFromFloat(*body.NativeTokenBalance)
		stats.NativeBalance = &v
	}

	return stats, nil
}

type statsResponse struct {
	Wallet             string   `json:"wallet"`
	PortfolioValue     *float64 `json:"portfolio_value"`
	USDTBalance        *float64 `json:"usdt_balance"`
	NativeTokenBalance *float64 `json:"native_token_balance"`
}

func statusError(status int, payload []byte) error {
	var apiErr struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Detail != "" {
			return fmt.Errorf("client api error (%d): %s", status, apiErr.Detail)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("client api error (%d): %s", status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("client api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("client api error (%d)", status)
}

var _ StatsFetcher = (*Client)(nil)
