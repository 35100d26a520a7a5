package kv

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/internal/service"
	"ledger-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adapterCase struct {
	name string
	open func(t *testing.T) ports.StorageAdapter
}

func adapterCases() []adapterCase {
	return []adapterCase{
		{"memory", func(t *testing.T) ports.StorageAdapter {
			return NewMemoryAdapter()
		}},
		{"bolt", func(t *testing.T) ports.StorageAdapter {
			a, err := OpenBolt(filepath.Join(t.TempDir(), "wallet.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })
			return a
		}},
		{"badger", func(t *testing.T) ports.StorageAdapter {
			a, err := OpenBadger("")
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })
			return a
		}},
	}
}

func TestAdapters_Contract(t *testing.T) {
	for _, tc := range adapterCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			a := tc.open(t)

			v, err := a.Get(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, a.Set(ctx, "b:2", []byte("two")))
			require.NoError(t, a.BatchSet(ctx, []ports.BatchEntry{
				{Key: "b:1", Value: []byte("one")},
				{Key: "b:3", Value: []byte("three")},
				{Key: "c:1", Value: []byte("other")},
				{Key: "b:2", Delete: true},
			}))

			v, err = a.Get(ctx, "b:2")
			require.NoError(t, err)
			assert.Nil(t, v, "batch delete applies")

			var keys []string
			err = a.Scan(ctx, "b:", func(key string, value []byte) error {
				keys = append(keys, key)
				// Scan callbacks may use the adapter.
				_, err := a.Get(ctx, key)
				return err
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"b:1", "b:3"}, keys)

			require.NoError(t, a.Remove(ctx, "b:1"))
			require.NoError(t, a.Remove(ctx, "never-set"))
			v, err = a.Get(ctx, "b:1")
			require.NoError(t, err)
			assert.Nil(t, v)

			v, err = a.Get(ctx, "c:1")
			require.NoError(t, err)
			assert.Equal(t, []byte("other"), v)
			assert.Equal(t, tc.name, a.ID())
		})
	}
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wallet.db")

	a, err := OpenBolt(path)
	require.NoError(t, err)
	s, err := Open(ctx, a, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, testAccount("acc-1", 0)))
	require.NoError(t, s.Close())

	a, err = OpenBolt(path)
	require.NoError(t, err)
	defer a.Close()
	s, err = Open(ctx, a, nil, zerolog.Nop())
	require.NoError(t, err)

	accounts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "acc-1", accounts[0].ID)
}

func TestOpen_SchemaVersion(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryAdapter()

	_, err := Open(ctx, a, nil, zerolog.Nop())
	require.NoError(t, err)
	raw, _ := a.Get(ctx, keySchemaVersion)
	assert.Equal(t, []byte("1"), raw)

	_, err = Open(ctx, a, nil, zerolog.Nop())
	require.NoError(t, err, "reopening the same layout")

	require.NoError(t, a.Set(ctx, keySchemaVersion, []byte("2")))
	_, err = Open(ctx, a, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
}

func testAccount(id string, index uint32) *domain.Account {
	return &domain.Account{
		ID:        id,
		Index:     index,
		Alias:     "Account " + id,
		Nodes:     []domain.NodeConfig{{URL: "http://node.test"}},
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestStore(t *testing.T, cipher ValueCipher) (*Store, *MemoryAdapter) {
	t.Helper()
	a := NewMemoryAdapter()
	s, err := Open(context.Background(), a, cipher, zerolog.Nop())
	require.NoError(t, err)
	return s, a
}

func TestStore_Accounts(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t, nil)

	require.NoError(t, s.Save(ctx, testAccount("b", 0)))
	require.NoError(t, s.Save(ctx, testAccount("a", 1)))
	updated := testAccount("b", 0)
	updated.Alias = "renamed"
	require.NoError(t, s.Save(ctx, updated))

	accounts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "b", accounts[0].ID, "creation order, not key order")
	assert.Equal(t, "renamed", accounts[0].Alias)
	assert.Equal(t, "a", accounts[1].ID)

	_, err = s.Get(ctx, "zzz")
	assert.ErrorIs(t, err, apperror.ErrNotFound("account"))

	require.NoError(t, s.Delete(ctx, "b"))
	accounts, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "a", accounts[0].ID)

	// A dangling index entry is skipped.
	require.NoError(t, a.Remove(ctx, accountKey("a")))
	accounts, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestStore_EnsureSettings(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t, nil)

	settings, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, settings)

	want := domain.ManagerSettings{
		HRP:      "atoi",
		CoinType: 4218,
		Nodes:    []domain.NodeConfig{{URL: "http://node.test", Auth: &domain.NodeAuth{Username: "u", Password: "p"}}},
	}
	require.NoError(t, s.EnsureSettings(ctx, want))
	raw, _ := a.Get(ctx, keyManager)
	assert.NotNil(t, raw)
	require.NoError(t, s.EnsureSettings(ctx, want), "same settings reopen cleanly")

	// Reopening the database sees the stored values.
	reopened, err := Open(ctx, a, nil, zerolog.Nop())
	require.NoError(t, err)
	settings, err = reopened.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, *settings)

	other := want
	other.CoinType = 1
	assert.ErrorIs(t, reopened.EnsureSettings(ctx, other), ErrSettingsMismatch)
	other = want
	other.HRP = "smr"
	assert.ErrorIs(t, reopened.EnsureSettings(ctx, other), ErrSettingsMismatch)

	settings, err = reopened.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, *settings, "a refused open leaves the settings untouched")

	moved := want
	moved.Nodes = []domain.NodeConfig{{URL: "https://node2.test"}}
	require.NoError(t, reopened.EnsureSettings(ctx, moved))
	settings, err = reopened.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, moved.Nodes, settings.Nodes)
}

func TestStore_VaultRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)

	rec, err := s.LoadRecord(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	want := &domain.VaultRecord{Version: domain.VaultRecordVersion, Salt: []byte{1, 2}, EncryptedSeed: []byte{3}}
	require.NoError(t, s.SaveRecord(ctx, want))
	rec, err = s.LoadRecord(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Salt, rec.Salt)

	require.NoError(t, s.DeleteRecord(ctx))
	rec, err = s.LoadRecord(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_Restore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)

	require.NoError(t, s.Save(ctx, testAccount("old-1", 0)))
	require.NoError(t, s.Save(ctx, testAccount("keep", 1)))
	require.NoError(t, s.SaveRecord(ctx, &domain.VaultRecord{Version: 1, Salt: []byte("old")}))

	rec := &domain.VaultRecord{Version: 1, Salt: []byte("new")}
	require.NoError(t, s.Restore(ctx, rec, []*domain.Account{testAccount("keep", 0), testAccount("new-1", 1)}))

	accounts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "keep", accounts[0].ID)
	assert.Equal(t, "new-1", accounts[1].ID)
	_, err = s.Get(ctx, "old-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound("account"))

	loaded, err := s.LoadRecord(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), loaded.Salt)
}

func TestEventLog(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)
	events := s.Events()

	last, err := events.LastSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)

	for seq := uint64(1); seq <= 11; seq++ {
		account := "acc-a"
		if seq%2 == 0 {
			account = "acc-b"
		}
		require.NoError(t, events.Append(ctx, domain.Event{
			ID:        uuid.New(),
			Seq:       seq,
			Kind:      domain.EventBalanceChanged,
			AccountID: account,
			Payload:   []byte(`{}`),
		}))
	}

	all, err := events.List(ctx, domain.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 11)
	for i, e := range all {
		assert.Equal(t, uint64(i+1), e.Seq, "zero-padded keys keep numeric order")
	}

	onlyB, err := events.List(ctx, domain.EventFilter{AccountID: "acc-b"})
	require.NoError(t, err)
	assert.Len(t, onlyB, 5)

	last, err = events.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), last)

	require.NoError(t, events.DeleteByAccount(ctx, "acc-a"))
	all, err = events.List(ctx, domain.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	require.NoError(t, events.DeleteByAccount(ctx, "nobody"))
}

func TestStore_ValueEncryption(t *testing.T) {
	ctx := context.Background()
	key := bytes.Repeat([]byte{7}, 32)
	cipher, err := service.NewKeyedEncryption(key)
	require.NoError(t, err)

	s, a := newTestStore(t, cipher)
	require.NoError(t, s.Save(ctx, testAccount("secret-acc", 0)))

	raw, err := a.Get(ctx, accountKey("secret-acc"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-acc", "values are sealed")

	got, err := s.Get(ctx, "secret-acc")
	require.NoError(t, err)
	assert.Equal(t, "Account secret-acc", got.Alias)

	wrong, err := service.NewKeyedEncryption(bytes.Repeat([]byte{8}, 32))
	require.NoError(t, err)
	other, err := Open(ctx, a, wrong, zerolog.Nop())
	require.NoError(t, err, "schema version is plaintext")
	_, err = other.Get(ctx, "secret-acc")
	assert.Error(t, err)
}

func TestStore_ImplementsRepositories(t *testing.T) {
	s, _ := newTestStore(t, nil)
	var _ ports.AccountRepository = s
	var _ ports.VaultRepository = s
	var _ ports.RestoreWriter = s
	var _ ports.EventRepository = s.Events()
}
