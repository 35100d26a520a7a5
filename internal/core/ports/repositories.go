package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"

	"ledger-wallet/internal/core/domain"
)

// BatchEntry is one write of an atomic batch. Delete removes Key instead of
// setting it.
type BatchEntry struct {
	Key    string
	Value  []byte
	Delete bool
}

// StorageAdapter is a flat key-value backend.
// Get returns (nil, nil) when the key does not exist.
type StorageAdapter interface {
	ID() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	BatchSet(ctx context.Context, entries []BatchEntry) error
	Remove(ctx context.Context, key string) error
	// Scan visits keys with the given prefix in ascending key order.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error
	Close() error
}

// AccountRepository persists accounts in creation order.
type AccountRepository interface {
	Save(ctx context.Context, account *domain.Account) error
	Get(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	Delete(ctx context.Context, id string) error
}

// VaultRepository persists the encrypted seed record.
// LoadRecord returns (nil, nil) when no vault exists.
type VaultRepository interface {
	LoadRecord(ctx context.Context) (*domain.VaultRecord, error)
	SaveRecord(ctx context.Context, record *domain.VaultRecord) error
	DeleteRecord(ctx context.Context) error
}

// RestoreWriter replaces the vault record and all accounts in one batch.
type RestoreWriter interface {
	Restore(ctx context.Context, record *domain.VaultRecord, accounts []*domain.Account) error
}

// EventRepository is the durable side of the event log.
type EventRepository interface {
	Append(ctx context.Context, event domain.Event) error
	List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	DeleteByAccount(ctx context.Context, accountID string) error
	LastSeq(ctx context.Context) (uint64, error)
}
