// Package kv persists wallet state on a flat key-value StorageAdapter.
//
// Layout:
//
//	db-schema-version    schema version, plaintext decimal
//	accounts-index       JSON list of account ids in creation order
//	account:{id}         JSON account
//	vault-record         JSON vault record
//	account-manager      JSON manager settings (hrp, coin type, default nodes)
//	event:{seq:020d}     JSON event
//
// Every value except the schema version is sealed with the optional value
// cipher.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// SchemaVersion is the storage layout this package reads and writes.
const SchemaVersion = 1

const (
	keySchemaVersion = "db-schema-version"
	keyAccountsIndex = "accounts-index"
	keyVaultRecord   = "vault-record"
	keyManager       = "account-manager"
	prefixAccount    = "account:"
	prefixEvent      = "event:"
)

// ErrUnsupportedSchema is returned by Open for databases written with a
// different layout.
var ErrUnsupportedSchema = errors.New("unsupported database schema version")

// ErrSettingsMismatch is returned by EnsureSettings when the database was
// created with a different HRP or coin type.
var ErrSettingsMismatch = errors.New("wallet settings differ from the database")

// ValueCipher seals stored values. service.KeyedEncryption implements it.
type ValueCipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

// Store implements the account, vault and restore repositories; Events
// exposes the event repository.
type Store struct {
	adapter ports.StorageAdapter
	cipher  ValueCipher
	log     zerolog.Logger

	// mu serialises index read-modify-write cycles.
	mu sync.Mutex
}

// Open checks the schema version of adapter, writing it on first use.
// cipher may be nil.
func Open(ctx context.Context, adapter ports.StorageAdapter, cipher ValueCipher, log zerolog.Logger) (*Store, error) {
	s := &Store{
		adapter: adapter,
		cipher:  cipher,
		log:     log.With().Str("component", "storage").Str("backend", adapter.ID()).Logger(),
	}

	raw, err := adapter.Get(ctx, keySchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("reading schema version: %w", err)
	}
	if raw == nil {
		if err := adapter.Set(ctx, keySchemaVersion, []byte(strconv.Itoa(SchemaVersion))); err != nil {
			return nil, fmt.Errorf("writing schema version: %w", err)
		}
		s.log.Info().Int("schema_version", SchemaVersion).Msg("storage initialised")
		return s, nil
	}
	version, err := strconv.Atoi(string(raw))
	if err != nil || version != SchemaVersion {
		return nil, fmt.Errorf("%w: found %q, want %d", ErrUnsupportedSchema, raw, SchemaVersion)
	}
	return s, nil
}

// ID names the underlying backend.
func (s *Store) ID() string {
	return s.adapter.ID()
}

// Close closes the underlying adapter.
func (s *Store) Close() error {
	return s.adapter.Close()
}

// ---- Manager settings ----

// LoadSettings returns the stored manager settings, or nil before the first
// EnsureSettings.
func (s *Store) LoadSettings(ctx context.Context) (*domain.ManagerSettings, error) {
	raw, err := s.adapter.Get(ctx, keyManager)
	if err != nil {
		return nil, fmt.Errorf("loading manager settings: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var settings domain.ManagerSettings
	if err := s.decode(raw, &settings); err != nil {
		return nil, fmt.Errorf("manager settings: %w", err)
	}
	return &settings, nil
}

// EnsureSettings writes want on first use. Later calls fail with
// ErrSettingsMismatch when the HRP or coin type changed; a changed node list
// replaces the stored one.
func (s *Store) EnsureSettings(ctx context.Context, want domain.ManagerSettings) error {
	stored, err := s.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if stored != nil {
		if !stored.SameDerivation(want) {
			return fmt.Errorf("%w: stored hrp %q coin type %d, configured hrp %q coin type %d",
				ErrSettingsMismatch, stored.HRP, stored.CoinType, want.HRP, want.CoinType)
		}
		if sameNodes(stored.Nodes, want.Nodes) {
			return nil
		}
		s.log.Info().Int("nodes", len(want.Nodes)).Msg("default nodes changed")
	}

	raw, err := s.encode(want)
	if err != nil {
		return err
	}
	if err := s.adapter.Set(ctx, keyManager, raw); err != nil {
		return fmt.Errorf("saving manager settings: %w", err)
	}
	if stored == nil {
		s.log.Info().Str("hrp", want.HRP).Uint32("coin_type", want.CoinType).Msg("manager settings stored")
	}
	return nil
}

func sameNodes(a, b []domain.NodeConfig) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].URL != b[i].URL || a[i].Disabled != b[i].Disabled || a[i].JWT != b[i].JWT {
			return false
		}
		if (a[i].Auth == nil) != (b[i].Auth == nil) || (a[i].Auth != nil && *a[i].Auth != *b[i].Auth) {
			return false
		}
	}
	return true
}

// ---- AccountRepository ----

func (s *Store) Save(ctx context.Context, account *domain.Account) error {
	value, err := s.encode(account)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex(ctx)
	if err != nil {
		return err
	}
	entries := []ports.BatchEntry{{Key: accountKey(account.ID), Value: value}}
	if !contains(index, account.ID) {
		raw, err := s.encode(append(index, account.ID))
		if err != nil {
			return err
		}
		entries = append(entries, ports.BatchEntry{Key: keyAccountsIndex, Value: raw})
	}
	if err := s.adapter.BatchSet(ctx, entries); err != nil {
		return fmt.Errorf("saving account %s: %w", account.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Account, error) {
	raw, err := s.adapter.Get(ctx, accountKey(id))
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", id, err)
	}
	if raw == nil {
		return nil, apperror.ErrNotFound("account")
	}
	var account domain.Account
	if err := s.decode(raw, &account); err != nil {
		return nil, fmt.Errorf("account %s: %w", id, err)
	}
	return &account, nil
}

// List returns accounts in index order. Index entries without a record are
// skipped with a warning.
func (s *Store) List(ctx context.Context) ([]*domain.Account, error) {
	s.mu.Lock()
	index, err := s.readIndex(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(index))
	for _, id := range index {
		account, err := s.Get(ctx, id)
		if errors.Is(err, apperror.ErrNotFound("account")) {
			s.log.Warn().Str("account_id", id).Msg("account index entry has no record")
			continue
		}
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex(ctx)
	if err != nil {
		return err
	}
	remaining := make([]string, 0, len(index))
	for _, existing := range index {
		if existing != id {
			remaining = append(remaining, existing)
		}
	}
	raw, err := s.encode(remaining)
	if err != nil {
		return err
	}
	err = s.adapter.BatchSet(ctx, []ports.BatchEntry{
		{Key: accountKey(id), Delete: true},
		{Key: keyAccountsIndex, Value: raw},
	})
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", id, err)
	}
	return nil
}

// ---- VaultRepository ----

func (s *Store) LoadRecord(ctx context.Context) (*domain.VaultRecord, error) {
	raw, err := s.adapter.Get(ctx, keyVaultRecord)
	if err != nil {
		return nil, fmt.Errorf("loading vault record: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var rec domain.VaultRecord
	if err := s.decode(raw, &rec); err != nil {
		return nil, fmt.Errorf("vault record: %w", err)
	}
	return &rec, nil
}

func (s *Store) SaveRecord(ctx context.Context, record *domain.VaultRecord) error {
	raw, err := s.encode(record)
	if err != nil {
		return err
	}
	return s.adapter.Set(ctx, keyVaultRecord, raw)
}

func (s *Store) DeleteRecord(ctx context.Context) error {
	return s.adapter.Remove(ctx, keyVaultRecord)
}

// ---- RestoreWriter ----

// Restore replaces the vault record and every account in one batch.
func (s *Store) Restore(ctx context.Context, record *domain.VaultRecord, accounts []*domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.readIndex(ctx)
	if err != nil {
		return err
	}

	rec, err := s.encode(record)
	if err != nil {
		return err
	}
	entries := []ports.BatchEntry{{Key: keyVaultRecord, Value: rec}}

	index := make([]string, 0, len(accounts))
	for _, a := range accounts {
		raw, err := s.encode(a)
		if err != nil {
			return err
		}
		entries = append(entries, ports.BatchEntry{Key: accountKey(a.ID), Value: raw})
		index = append(index, a.ID)
	}
	for _, id := range old {
		if !contains(index, id) {
			entries = append(entries, ports.BatchEntry{Key: accountKey(id), Delete: true})
		}
	}
	raw, err := s.encode(index)
	if err != nil {
		return err
	}
	entries = append(entries, ports.BatchEntry{Key: keyAccountsIndex, Value: raw})

	if err := s.adapter.BatchSet(ctx, entries); err != nil {
		return fmt.Errorf("restoring %d accounts: %w", len(accounts), err)
	}
	s.log.Info().Int("accounts", len(accounts)).Int("replaced", len(old)).Msg("storage restored")
	return nil
}

// ---- EventRepository ----

// EventLog is the event repository view of a Store.
type EventLog struct {
	s *Store
}

// Events returns the event repository sharing this store's adapter.
func (s *Store) Events() *EventLog {
	return &EventLog{s: s}
}

func (l *EventLog) Append(ctx context.Context, event domain.Event) error {
	raw, err := l.s.encode(event)
	if err != nil {
		return err
	}
	if err := l.s.adapter.Set(ctx, eventKey(event.Seq), raw); err != nil {
		return fmt.Errorf("appending event %d: %w", event.Seq, err)
	}
	return nil
}

func (l *EventLog) List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	var events []domain.Event
	err := l.s.adapter.Scan(ctx, prefixEvent, func(key string, value []byte) error {
		var e domain.Event
		if err := l.s.decode(value, &e); err != nil {
			return fmt.Errorf("event %s: %w", key, err)
		}
		if filter.Matches(e) {
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

func (l *EventLog) DeleteByAccount(ctx context.Context, accountID string) error {
	events, err := l.List(ctx, domain.EventFilter{AccountID: accountID})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	entries := make([]ports.BatchEntry, 0, len(events))
	for _, e := range events {
		entries = append(entries, ports.BatchEntry{Key: eventKey(e.Seq), Delete: true})
	}
	if err := l.s.adapter.BatchSet(ctx, entries); err != nil {
		return fmt.Errorf("deleting events of %s: %w", accountID, err)
	}
	return nil
}

// LastSeq returns the highest stored sequence number, or 0.
func (l *EventLog) LastSeq(ctx context.Context) (uint64, error) {
	var last uint64
	err := l.s.adapter.Scan(ctx, prefixEvent, func(key string, _ []byte) error {
		seq, err := strconv.ParseUint(strings.TrimPrefix(key, prefixEvent), 10, 64)
		if err != nil {
			return fmt.Errorf("malformed event key %q: %w", key, err)
		}
		if seq > last {
			last = seq
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return last, nil
}

func (s *Store) readIndex(ctx context.Context) ([]string, error) {
	raw, err := s.adapter.Get(ctx, keyAccountsIndex)
	if err != nil {
		return nil, fmt.Errorf("reading account index: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var index []string
	if err := s.decode(raw, &index); err != nil {
		return nil, fmt.Errorf("account index: %w", err)
	}
	return index, nil
}

func (s *Store) encode(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	if s.cipher == nil {
		return raw, nil
	}
	sealed, err := s.cipher.Seal(raw)
	if err != nil {
		return nil, fmt.Errorf("sealing value: %w", err)
	}
	return sealed, nil
}

func (s *Store) decode(raw []byte, v interface{}) error {
	if s.cipher != nil {
		opened, err := s.cipher.Open(raw)
		if err != nil {
			return fmt.Errorf("opening sealed value: %w", err)
		}
		raw = opened
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}
	return nil
}

func accountKey(id string) string {
	return prefixAccount + id
}

func eventKey(seq uint64) string {
	return fmt.Sprintf("%s%020d", prefixEvent, seq)
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
