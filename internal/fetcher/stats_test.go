package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFetchStatsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/signal" {
			t.Fatalf("expected /api/signal, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"wallet":               "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
			"portfolio_value":      123.45,
			"usdt_balance":         100.0,
			"native_token_balance": 0.5,
		})
	}))
	defer srv.Close()

	c := NewClient(Options{Timeout: time.Second, UserAgent: "test"}, noopLogger())

	stats, err := c.FetchStats(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("successful response should not error: %v", err)
	}
	if stats.PortfolioValue.String() != "123.45" {
		t.Fatalf("expected portfolio value 123.45, got %s", stats.PortfolioValue)
	}
	if stats.Wallet != "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed" {
		t.Fatalf("unexpected wallet: %s", stats.Wallet)
	}
	if stats.USDTBalance == nil || stats.USDTBalance.String() != "100" {
		t.Fatalf("expected usdt balance 100, got %v", stats.USDTBalance)
	}
	if stats.NativeBalance == nil || stats.NativeBalance.String() != "0.5" {
		t.Fatalf("expected native balance 0.5, got %v", stats.NativeBalance)
	}
}

func TestFetchStatsToleratesMissingBalances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"portfolio_value": 42.0})
	}))
	defer srv.Close()

	c := NewClient(Options{Timeout: time.Second}, noopLogger())

	stats, err := c.FetchStats(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("missing optional fields should not fail the fetch: %v", err)
	}
	if stats.USDTBalance != nil || stats.NativeBalance != nil {
		t.Fatal("absent balances should stay nil")
	}
}

func TestFetchStatsMissingPrimaryValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"wallet": "0xabc"})
	}))
	defer srv.Close()

	c := NewClient(Options{Timeout: time.Second}, noopLogger())

	if _, err := c.FetchStats(context.Background(), srv.URL); err == nil {
		t.Fatal("missing portfolio_value must be a fetch failure")
	}
}

func TestFetchStatsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "boom"})
	}))
	defer srv.Close()

	c := NewClient(Options{Timeout: time.Second}, noopLogger())

	_, err := c.FetchStats(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("HTTP 500 must be a fetch failure")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error should carry the response detail: %v", err)
	}
}

func TestFetchStatsErrorCarriesEndpoint(t *testing.T) {
	c := NewClient(Options{Timeout: time.Second}, noopLogger())

	_, err := c.FetchStats(context.Background(), "http://127.0.0.1:1")
	if err == nil {
		t.Fatal("connection refused must be a fetch failure")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.Endpoint != "http://127.0.0.1:1" {
		t.Fatalf("error should carry the endpoint, got %q", fetchErr.Endpoint)
	}
}

func TestFetchStatsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Options{Timeout: 20 * time.Millisecond}, noopLogger())

	if _, err := c.FetchStats(context.Background(), srv.URL); err == nil {
		t.Fatal("slow target must hit the per-call timeout")
	}
}

func TestFetchStatsEmptyEndpoint(t *testing.T) {
	c := NewClient(Options{Timeout: time.Second}, noopLogger())
	if _, err := c.FetchStats(context.Background(), "  "); err == nil {
		t.Fatal("empty endpoint must fail")
	}
}
