package kv

import (
	"context"
	"errors"
	"fmt"

	"ledger-wallet/internal/core/ports"

	"github.com/dgraph-io/badger/v4"
)

// BadgerAdapter stores keys in a badger database directory.
type BadgerAdapter struct {
	db *badger.DB
}

// OpenBadger opens or creates the database directory at dir. An empty dir
// opens an in-memory database.
func OpenBadger(dir string) (*BadgerAdapter, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database %s: %w", dir, err)
	}
	return &BadgerAdapter{db: db}, nil
}

func (b *BadgerAdapter) ID() string { return "badger" }

func (b *BadgerAdapter) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	return out, nil
}

func (b *BadgerAdapter) Set(_ context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (b *BadgerAdapter) BatchSet(_ context.Context, entries []ports.BatchEntry) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, e := range entries {
			var err error
			if e.Delete {
				err = txn.Delete([]byte(e.Key))
			} else {
				err = txn.Set([]byte(e.Key), e.Value)
			}
			if err != nil {
				return fmt.Errorf("key %s: %w", e.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger batch: %w", err)
	}
	return nil
}

func (b *BadgerAdapter) Remove(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger remove %s: %w", key, err)
	}
	return nil
}

func (b *BadgerAdapter) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	var pairs []pair
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			pairs = append(pairs, pair{key: string(item.KeyCopy(nil)), value: v})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger scan %s: %w", prefix, err)
	}
	return visit(ctx, pairs, fn)
}

func (b *BadgerAdapter) Close() error {
	return b.db.Close()
}
