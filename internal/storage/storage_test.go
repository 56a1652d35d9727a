package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	appconfig "github.com/bonzoholda/shitbot-metrics-tracker/internal/config"
)

// These tests need a real database: set METRICS_TEST_DATABASE_URL to run them.

func setupStore(t *testing.T, retention RetentionPolicy) *Store {
	t.Helper()

	dsn := os.Getenv("METRICS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("METRICS_TEST_DATABASE_URL not set; skipping storage integration tests")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, appconfig.DatabaseConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}

	store := NewStore(pool, retention)
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	t.Cleanup(store.Close)
	return store
}

func testWallet(t *testing.T, store *Store) string {
	t.Helper()
	w := fmt.Sprintf("0xtest%d", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = store.pool.Exec(ctx, `DELETE FROM portfolio_log WHERE wallet = $1`, w)
		_, _ = store.pool.Exec(ctx, `DELETE FROM portfolio_baseline WHERE wallet = $1`, w)
		_, _ = store.pool.Exec(ctx, `DELETE FROM clients WHERE wallet = $1`, w)
	})
	return w
}

func appendValue(t *testing.T, store *Store, wallet string, value int64, at time.Time) {
	t.Helper()
	err := store.AppendSample(context.Background(), PortfolioSample{
		Wallet:         wallet,
		PortfolioValue: decimal.NewFromInt(value),
		SampledAt:      at,
	})
	if err != nil {
		t.Fatalf("append sample: %v", err)
	}
}

func TestRegisterClientConflict(t *testing.T) {
	store := setupStore(t, RetentionPolicy{})
	ctx := context.Background()

	wallet := testWallet(t, store)
	endpoint := "http://" + wallet + ".example"

	if _, err := store.RegisterClient(ctx, endpoint, wallet); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := store.RegisterClient(ctx, endpoint, wallet); err != ErrAlreadyRegistered {
		t.Fatalf("duplicate registration should conflict, got %v", err)
	}

	rec, err := store.ClientByEndpoint(ctx, endpoint)
	if err != nil {
		t.Fatalf("lookup after conflict failed: %v", err)
	}
	if rec.Wallet != wallet {
		t.Fatalf("registry should hold the original record, got %+v", rec)
	}

	exists, err := store.ExistsByWallet(ctx, wallet)
	if err != nil || !exists {
		t.Fatalf("wallet should exist after registration: %v %v", exists, err)
	}
}

func TestBaselineEmptyWallet(t *testing.T) {
	store := setupStore(t, RetentionPolicy{})

	baseline, err := store.Baseline(context.Background(), testWallet(t, store))
	if err != nil {
		t.Fatalf("baseline on empty wallet failed: %v", err)
	}
	if !baseline.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("empty wallet baseline must be the sentinel 1, got %s", baseline)
	}
}

func TestBaselineAndRecentWindow(t *testing.T) {
	store := setupStore(t, RetentionPolicy{})
	ctx := context.Background()

	wallet := testWallet(t, store)
	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for i := int64(0); i < 5; i++ {
		appendValue(t, store, wallet, 100+i, start.Add(time.Duration(i)*time.Minute))
	}

	baseline, err := store.Baseline(ctx, wallet)
	if err != nil {
		t.Fatalf("baseline failed: %v", err)
	}
	if !baseline.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("baseline must be the first-ever value, got %s", baseline)
	}

	points, err := store.RecentWindow(ctx, wallet, 3)
	if err != nil {
		t.Fatalf("recent window failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i, want := range []int64{102, 103, 104} {
		if !points[i].Value.Equal(decimal.NewFromInt(want)) {
			t.Fatalf("window[%d] = %s, want %d", i, points[i].Value, want)
		}
	}
	for i := 1; i < len(points); i++ {
		if !points[i].Timestamp.After(points[i-1].Timestamp) {
			t.Fatal("window must be in ascending time order")
		}
	}
}

func TestRetainRecent(t *testing.T) {
	store := setupStore(t, RetentionPolicy{})
	ctx := context.Background()

	wallet := testWallet(t, store)
	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for i := int64(0); i < 10; i++ {
		appendValue(t, store, wallet, 200+i, start.Add(time.Duration(i)*time.Minute))
	}

	if err := store.RetainRecent(ctx, wallet, 4); err != nil {
		t.Fatalf("retain failed: %v", err)
	}

	count, err := store.CountSamples(ctx, wallet)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 rows after retain, got %d", count)
	}

	points, err := store.RecentWindow(ctx, wallet, 10)
	if err != nil {
		t.Fatalf("recent window failed: %v", err)
	}
	for i, want := range []int64{206, 207, 208, 209} {
		if !points[i].Value.Equal(decimal.NewFromInt(want)) {
			t.Fatalf("retained[%d] = %s, want %d", i, points[i].Value, want)
		}
	}

	// the pinned baseline is unaffected by retention deleting old rows
	baseline, err := store.Baseline(ctx, wallet)
	if err != nil {
		t.Fatalf("baseline failed: %v", err)
	}
	if !baseline.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("baseline must stay the first-ever value, got %s", baseline)
	}
}

func TestAmortisedRetention(t *testing.T) {
	store := setupStore(t, RetentionPolicy{KeepCount: 2, EveryInserts: 3})
	ctx := context.Background()

	wallet := testWallet(t, store)
	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	appendValue(t, store, wallet, 1, start)
	appendValue(t, store, wallet, 2, start.Add(time.Minute))

	count, _ := store.CountSamples(ctx, wallet)
	if count != 2 {
		t.Fatalf("cleanup must not run before the amortisation batch, got %d rows", count)
	}

	// third append crosses the batch and triggers cleanup
	appendValue(t, store, wallet, 3, start.Add(2*time.Minute))

	count, err := store.CountSamples(ctx, wallet)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows after amortised cleanup, got %d", count)
	}

	points, err := store.RecentWindow(ctx, wallet, 10)
	if err != nil {
		t.Fatalf("recent window failed: %v", err)
	}
	if len(points) != 2 || !points[1].Value.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("cleanup must keep the most recent rows, got %+v", points)
	}
}
