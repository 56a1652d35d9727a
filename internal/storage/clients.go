package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	insertClientSQL = `INSERT INTO clients (endpoint, wallet)
    VALUES ($1, $2)
    ON CONFLICT DO NOTHING
    RETURNING id, endpoint, wallet, created_at;`

	listClientsSQL = `SELECT id, endpoint, wallet, created_at FROM clients;`

	existsByWalletSQL = `SELECT EXISTS (SELECT 1 FROM clients WHERE wallet = $1);`

	clientByEndpointSQL = `SELECT id, endpoint, wallet, created_at
    FROM clients
    WHERE endpoint = $1;`

	clientByWalletSQL = `SELECT id, endpoint, wallet, created_at
    FROM clients
    WHERE wallet = $1;`
)

// ClientStore defines operations for the client registry.
type ClientStore interface {
	RegisterClient(ctx context.Context, endpoint, wallet string) (ClientRecord, error)
	ListClients(ctx context.Context) ([]ClientRecord, error)
	ExistsByWallet(ctx context.Context, wallet string) (bool, error)
	ClientByEndpoint(ctx context.Context, endpoint string) (ClientRecord, error)
	ClientByWallet(ctx context.Context, wallet string) (ClientRecord, error)
}

// RegisterClient inserts a registry record. A duplicate endpoint or wallet
// reports ErrAlreadyRegistered and leaves the existing record untouched.
func (s *Store) RegisterClient(ctx context.Context, endpoint, wallet string) (ClientRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return ClientRecord{}, err
	}

	var rec ClientRecord
	scanErr := pool.QueryRow(ctx, insertClientSQL, endpoint, wallet).
		Scan(&rec.ID, &rec.Endpoint, &rec.Wallet, &rec.CreatedAt)
	if scanErr != nil {
		// ON CONFLICT DO NOTHING yields no row on a duplicate key.
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return ClientRecord{}, ErrAlreadyRegistered
		}
		return ClientRecord{}, fmt.Errorf("register client: %w", scanErr)
	}
	return rec, nil
}

// ListClients returns every registered client in unspecified order.
func (s *Store) ListClients(ctx context.Context) ([]ClientRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listClientsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list clients: %w", queryErr)
	}
	defer rows.Close()

	clients := make([]ClientRecord, 0)
	for rows.Next() {
		var rec ClientRecord
		if err := rows.Scan(&rec.ID, &rec.Endpoint, &rec.Wallet, &rec.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return clients, nil
}

// ExistsByWallet reports whether a wallet is already registered.
func (s *Store) ExistsByWallet(ctx context.Context, wallet string) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	var exists bool
	if scanErr := pool.QueryRow(ctx, existsByWalletSQL, wallet).Scan(&exists); scanErr != nil {
		return false, fmt.Errorf("exists by wallet: %w", scanErr)
	}
	return exists, nil
}

// ClientByEndpoint resolves the registry record for an endpoint URL.
func (s *Store) ClientByEndpoint(ctx context.Context, endpoint string) (ClientRecord, error) {
	return s.clientBy(ctx, clientByEndpointSQL, endpoint)
}

// ClientByWallet resolves the registry record for a wallet.
func (s *Store) ClientByWallet(ctx context.Context, wallet string) (ClientRecord, error) {
	return s.clientBy(ctx, clientByWalletSQL, wallet)
}

func (s *Store) clientBy(ctx context.Context, query, key string) (ClientRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return ClientRecord{}, err
	}

	var rec ClientRecord
	scanErr := pool.QueryRow(ctx, query, key).
		Scan(&rec.ID, &rec.Endpoint, &rec.Wallet, &rec.CreatedAt)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return ClientRecord{}, ErrNotRegistered
		}
		return ClientRecord{}, fmt.Errorf("lookup client: %w", scanErr)
	}
	return rec, nil
}

var _ ClientStore = (*Store)(nil)
