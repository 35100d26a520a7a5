package postgres

import (
	"context"
	"errors"
	"fmt"

	"ledger-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// KVAdapter implements ports.StorageAdapter on the kv_store table.
type KVAdapter struct {
	pool Pool
}

// NewKVAdapter creates a KVAdapter. The pool stays owned by the caller.
func NewKVAdapter(pool Pool) *KVAdapter {
	return &KVAdapter{pool: pool}
}

const upsertKV = `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

const deleteKV = `DELETE FROM kv_store WHERE key = $1`

func (a *KVAdapter) ID() string {
	return "postgres"
}

// Get returns nil when key is absent.
func (a *KVAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := a.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (a *KVAdapter) Set(ctx context.Context, key string, value []byte) error {
	if _, err := a.pool.Exec(ctx, upsertKV, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// BatchSet applies every entry in one transaction.
func (a *KVAdapter) BatchSet(ctx context.Context, entries []ports.BatchEntry) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, e := range entries {
		if e.Delete {
			_, err = tx.Exec(ctx, deleteKV, e.Key)
		} else {
			_, err = tx.Exec(ctx, upsertKV, e.Key, e.Value)
		}
		if err != nil {
			return fmt.Errorf("batch write %s: %w", e.Key, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (a *KVAdapter) Remove(ctx context.Context, key string) error {
	if _, err := a.pool.Exec(ctx, deleteKV, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Scan visits keys with prefix in key order. Rows are read fully before fn
// runs so fn may use the adapter.
func (a *KVAdapter) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	rows, err := a.pool.Query(ctx,
		`SELECT key, value FROM kv_store WHERE starts_with(key, $1) ORDER BY key`, prefix)
	if err != nil {
		return fmt.Errorf("scan %s: %w", prefix, err)
	}
	type pair struct {
		key   string
		value []byte
	}
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.key, &p.value); err != nil {
			rows.Close()
			return fmt.Errorf("scan kv row: %w", err)
		}
		pairs = append(pairs, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate kv rows: %w", err)
	}

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the pool is closed by whoever opened it.
func (a *KVAdapter) Close() error {
	return nil
}
