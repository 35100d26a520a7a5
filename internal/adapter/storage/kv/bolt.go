package kv

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"ledger-wallet/internal/core/ports"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("storage")

// BoltAdapter stores every key in a single bbolt bucket.
type BoltAdapter struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the database file at path.
func OpenBolt(path string) (*BoltAdapter, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bolt bucket: %w", err)
	}
	return &BoltAdapter{db: db}, nil
}

func (b *BoltAdapter) ID() string { return "bolt" }

func (b *BoltAdapter) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(boltBucket).Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt get %s: %w", key, err)
	}
	return out, nil
}

func (b *BoltAdapter) Set(_ context.Context, key string, value []byte) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("bolt set %s: %w", key, err)
	}
	return nil
}

func (b *BoltAdapter) BatchSet(_ context.Context, entries []ports.BatchEntry) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for _, e := range entries {
			var err error
			if e.Delete {
				err = bucket.Delete([]byte(e.Key))
			} else {
				err = bucket.Put([]byte(e.Key), e.Value)
			}
			if err != nil {
				return fmt.Errorf("key %s: %w", e.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt batch: %w", err)
	}
	return nil
}

func (b *BoltAdapter) Remove(_ context.Context, key string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("bolt remove %s: %w", key, err)
	}
	return nil
}

func (b *BoltAdapter) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	var pairs []pair
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			pairs = append(pairs, pair{key: string(k), value: append([]byte(nil), v...)})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt scan %s: %w", prefix, err)
	}
	return visit(ctx, pairs, fn)
}

func (b *BoltAdapter) Close() error {
	return b.db.Close()
}
