package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"ledger-wallet/internal/adapter/nodesim"
	"ledger-wallet/internal/core/domain"
	"ledger-wallet/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testHRP      = "atoi"
	testCoinType = 4218
	testNodeURL  = "http://node.test"
)

// memAccounts is an in-memory AccountRepository keeping creation order.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	order    []string
	saves    int
	saveErr  error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: make(map[string]*domain.Account)}
}

func (m *memAccounts) Save(_ context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.accounts[a.ID]; !ok {
		m.order = append(m.order, a.ID)
	}
	m.accounts[a.ID] = a.Clone()
	m.saves++
	return nil
}

func (m *memAccounts) Get(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, apperror.ErrNotFound("account")
	}
	return a.Clone(), nil
}

func (m *memAccounts) List(_ context.Context) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Account, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.accounts[id].Clone())
	}
	return out, nil
}

func (m *memAccounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memAccounts) setSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// testEnv wires a sync engine to an in-process ledger.
type testEnv struct {
	ledger   *nodesim.Ledger
	client   *nodesim.LocalClient
	factory  *nodesim.LocalFactory
	deriver  *HDDerivationService
	accounts *memAccounts
	events   *EventService
	sync     *SyncService
}

func testSyncConfig() SyncConfig {
	return SyncConfig{
		RetryAttempts:  -1,
		RetryBase:      time.Millisecond,
		RequestTimeout: time.Second,
	}
}

func newTestEnv(t *testing.T, cfg SyncConfig) *testEnv {
	t.Helper()
	ledger := nodesim.NewLedger(testHRP, nil)
	client := nodesim.NewLocalClient(ledger)
	factory := nodesim.NewLocalFactory(client)
	deriver := NewHDDerivationService(testHRP, testCoinType)
	accounts := newMemAccounts()

	events, err := NewEventService(context.Background(), nil, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(events.Close)

	return &testEnv{
		ledger:   ledger,
		client:   client,
		factory:  factory,
		deriver:  deriver,
		accounts: accounts,
		events:   events,
		sync:     NewSyncService(cfg, deriver, factory, accounts, events, nil, nil, zerolog.Nop()),
	}
}

// newAccount builds and stores an empty account derived from testSeed.
func (e *testEnv) newAccount(t *testing.T, index uint32) *domain.Account {
	t.Helper()
	xpub, err := e.deriver.AccountXPub(testSeed, index)
	require.NoError(t, err)
	a := &domain.Account{
		ID:                domain.AccountID(xpub),
		Index:             index,
		Alias:             domain.DefaultAlias(index),
		Nodes:             []domain.NodeConfig{{URL: testNodeURL}},
		ExtendedPublicKey: xpub,
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, e.accounts.Save(context.Background(), a))
	return a
}

func (e *testEnv) newSlot(t *testing.T, index uint32) *accountSlot {
	t.Helper()
	return newAccountSlot(e.newAccount(t, index))
}

func (e *testEnv) address(t *testing.T, account uint32, chain domain.Chain, index uint32) string {
	t.Helper()
	a, err := e.deriver.Derive(testSeed, account, chain, index)
	require.NoError(t, err)
	return a.Address
}

// foreign is an address no test account owns.
func (e *testEnv) foreign(t *testing.T) string {
	t.Helper()
	return e.address(t, 99, domain.ChainExternal, 0)
}

func (e *testEnv) fund(t *testing.T, addr string, amount uint64) string {
	t.Helper()
	id, err := e.ledger.Faucet(addr, amount)
	require.NoError(t, err)
	return id
}

type keyRef struct {
	chain domain.Chain
	index uint32
}

// spend signs and submits a transaction consuming every unspent output at
// the given addresses of account 0.
func (e *testEnv) spend(t *testing.T, from []keyRef, outputs []domain.EssenceOutput) string {
	t.Helper()
	var (
		essence domain.Essence
		keys    []keyRef
	)
	for _, k := range from {
		addr := e.address(t, 0, k.chain, k.index)
		outs := e.ledger.AddressOutputs(addr)
		sort.Slice(outs, func(i, j int) bool { return outs[i].ID < outs[j].ID })
		for _, o := range outs {
			if o.Spent {
				continue
			}
			essence.Inputs = append(essence.Inputs, domain.Input{OutputID: o.ID, Address: o.Address, Amount: o.Amount})
			keys = append(keys, k)
		}
	}
	essence.Outputs = outputs

	hash, err := essence.SigningHash()
	require.NoError(t, err)
	payload := domain.Payload{Kind: domain.PayloadTransaction, Essence: &essence}
	for _, k := range keys {
		u, err := e.deriver.Sign(testSeed, 0, k.chain, k.index, hash)
		require.NoError(t, err)
		payload.Unlocks = append(payload.Unlocks, u)
	}
	id, err := e.ledger.Submit(payload)
	require.NoError(t, err)
	return id
}

func (e *testEnv) accountEvents(id string, kind domain.EventKind) []domain.Event {
	return e.events.List(context.Background(), domain.EventFilter{AccountID: id, Kind: kind})
}
