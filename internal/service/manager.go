package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/apperror"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// S3Scheme prefixes backup destinations stored through the BackupStore.
const S3Scheme = "s3://"

const (
	defaultPollInterval     = 30 * time.Second
	defaultPromoteThreshold = 2 * time.Minute
	defaultStopGrace        = 10 * time.Second
)

var errPollingStarted = errors.New("polling already started")

// ManagerConfig tunes the account manager.
type ManagerConfig struct {
	PollInterval     time.Duration
	PromoteThreshold time.Duration
	StopGrace        time.Duration
	Parallelism      int
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PromoteThreshold <= 0 {
		c.PromoteThreshold = defaultPromoteThreshold
	}
	if c.StopGrace <= 0 {
		c.StopGrace = defaultStopGrace
	}
	if c.Parallelism <= 0 {
		c.Parallelism = defaultSyncParallelism
	}
	return c
}

// ManagerDeps are the collaborators of the account manager. Backups may be
// nil, in which case s3:// destinations are rejected.
type ManagerDeps struct {
	Vault    *VaultService
	Deriver  ports.AddressDeriver
	Nodes    ports.NodeClientFactory
	Accounts ports.AccountRepository
	Events   *EventService
	Sync     *SyncService
	Backups  ports.BackupStore
	Clock    clock.Clock
}

// SyncResult is the outcome of syncing one account.
type SyncResult struct {
	AccountID string
	Report    *domain.SyncReport
	Err       error
}

// AccountManager owns the wallet accounts and their background polling.
type AccountManager struct {
	cfg      ManagerConfig
	vault    *VaultService
	deriver  ports.AddressDeriver
	nodes    ports.NodeClientFactory
	repo     ports.AccountRepository
	events   *EventService
	sync     *SyncService
	backups  ports.BackupStore
	clock    clock.Clock
	log      zerolog.Logger
	createMu sync.Mutex

	mu    sync.RWMutex
	slots map[string]*accountSlot
	order []string

	pollMu     sync.Mutex
	pollCancel context.CancelFunc
	pollQuit   chan struct{}
	pollDone   chan struct{}
}

// NewAccountManager loads the stored accounts.
func NewAccountManager(ctx context.Context, cfg ManagerConfig, deps ManagerDeps, log zerolog.Logger) (*AccountManager, error) {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	m := &AccountManager{
		cfg:     cfg.withDefaults(),
		vault:   deps.Vault,
		deriver: deps.Deriver,
		nodes:   deps.Nodes,
		repo:    deps.Accounts,
		events:  deps.Events,
		sync:    deps.Sync,
		backups: deps.Backups,
		clock:   clk,
		log:     log.With().Str("component", "accounts").Logger(),
	}
	if err := m.reload(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AccountManager) reload(ctx context.Context) error {
	accounts, err := m.repo.List(ctx)
	if err != nil {
		return apperror.ErrIoFailure(fmt.Errorf("loading accounts: %w", err))
	}

	slots := make(map[string]*accountSlot, len(accounts))
	order := make([]string, 0, len(accounts))
	for _, a := range accounts {
		slots[a.ID] = newAccountSlot(a)
		order = append(order, a.ID)
	}

	m.mu.Lock()
	m.slots = slots
	m.order = order
	m.mu.Unlock()

	m.log.Debug().Int("accounts", len(order)).Msg("accounts loaded")
	return nil
}

// CreateAccount validates the node configuration, checks that the previous
// account has seen activity and derives the next account from the seed. The
// vault must be unlocked.
func (m *AccountManager) CreateAccount(ctx context.Context, req ports.CreateAccountRequest) (*AccountHandle, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.ErrNodeConfigInvalid(err)
	}
	enabled := domain.EnabledNodes(req.Nodes)
	if len(enabled) == 0 {
		return nil, apperror.ErrNodeConfigInvalid(errors.New("no enabled nodes"))
	}
	for i, n := range req.Nodes {
		if err := n.Validate(); err != nil {
			return nil, apperror.ErrNodeConfigInvalid(fmt.Errorf("nodes[%d]: %w", i, err))
		}
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()

	for _, n := range enabled {
		if err := m.checkNode(ctx, n); err != nil {
			return nil, err
		}
	}

	accounts := m.Accounts()
	index := uint32(len(accounts))
	if len(accounts) > 0 {
		latest := accounts[len(accounts)-1]
		if _, err := latest.Sync(ctx, domain.SyncOptions{Force: true}); err != nil {
			return nil, err
		}
		if latest.slot.snapshot().IsEmpty() {
			return nil, apperror.ErrAccountCreationRefused(
				fmt.Sprintf("previous account %q has no history", latest.Alias()))
		}
		index = latest.Index() + 1
	}

	alias := strings.TrimSpace(req.Alias)
	if alias == "" {
		alias = domain.DefaultAlias(index)
	}
	if _, err := m.AccountByAlias(alias); err == nil {
		return nil, apperror.ErrAccountCreationRefused(fmt.Sprintf("alias %q already in use", alias))
	}

	var xpub string
	err := m.vault.WithSeed(ctx, func(seed []byte) error {
		var err error
		xpub, err = m.deriver.AccountXPub(seed, index)
		return err
	})
	if err != nil {
		return nil, asAppError(err)
	}
	first, err := m.deriver.DeriveFromXPub(xpub, domain.ChainExternal, 0)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	account := &domain.Account{
		ID:                domain.AccountID(xpub),
		Index:             index,
		Alias:             alias,
		Nodes:             append([]domain.NodeConfig(nil), req.Nodes...),
		ExtendedPublicKey: xpub,
		Addresses:         []domain.Address{first},
		CreatedAt:         m.clock.Now().UTC(),
	}
	if err := m.repo.Save(ctx, account); err != nil {
		return nil, apperror.ErrIoFailure(fmt.Errorf("persisting account: %w", err))
	}

	slot := newAccountSlot(account)
	m.mu.Lock()
	m.slots[account.ID] = slot
	m.order = append(m.order, account.ID)
	m.mu.Unlock()

	m.log.Info().Str("account_id", account.ID).Uint32("index", index).Str("alias", alias).Msg("account created")
	return &AccountHandle{m: m, slot: slot}, nil
}

func (m *AccountManager) checkNode(ctx context.Context, node domain.NodeConfig) error {
	client, err := m.nodes.Client(node)
	if err != nil {
		return err
	}
	err = m.sync.nodeCall(ctx, client.Health)
	if err == nil {
		return nil
	}
	if apperror.CodeOf(err) == "" {
		err = apperror.ErrNodeUnreachable(err)
	}
	return err
}

// Account returns the account with id.
func (m *AccountManager) Account(id string) (*AccountHandle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.slots[id]
	if !ok {
		return nil, apperror.ErrNotFound("account")
	}
	return &AccountHandle{m: m, slot: slot}, nil
}

// AccountByAlias finds an account by alias, ignoring case.
func (m *AccountManager) AccountByAlias(alias string) (*AccountHandle, error) {
	for _, h := range m.Accounts() {
		if strings.EqualFold(h.Alias(), alias) {
			return h, nil
		}
	}
	return nil, apperror.ErrNotFound("account")
}

// Accounts returns every account in creation order.
func (m *AccountManager) Accounts() []*AccountHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*AccountHandle, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, &AccountHandle{m: m, slot: m.slots[id]})
	}
	return out
}

// RemoveAccount deletes an account with a zero balance and its events.
func (m *AccountManager) RemoveAccount(ctx context.Context, id string) error {
	h, err := m.Account(id)
	if err != nil {
		return err
	}

	lctx, release, err := m.sync.lockSlot(ctx, h.slot)
	if err != nil {
		return err
	}
	defer release()

	if total := h.slot.snapshot().Balance().Total; total != 0 {
		return apperror.ErrInvalidTransfer(fmt.Sprintf("account still holds %d", total))
	}
	if err := m.repo.Delete(lctx, id); err != nil {
		return apperror.ErrIoFailure(fmt.Errorf("deleting account: %w", err))
	}
	// Operations queued on the lock check the flag once they acquire it and
	// never write the account back.
	h.slot.markRemoved()
	if err := m.events.DeleteAccount(lctx, id); err != nil {
		m.log.Warn().Err(err).Str("account_id", id).Msg("failed to delete account events")
	}

	m.mu.Lock()
	if m.slots[id] == h.slot {
		delete(m.slots, id)
		for i, v := range m.order {
			if v == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	m.log.Info().Str("account_id", id).Msg("account removed")
	return nil
}

// SyncAll syncs every account in parallel. A failing account does not stop
// the others; results keep creation order.
func (m *AccountManager) SyncAll(ctx context.Context, opts domain.SyncOptions) []SyncResult {
	accounts := m.Accounts()
	results := make([]SyncResult, len(accounts))

	var g errgroup.Group
	g.SetLimit(m.cfg.Parallelism)
	for i, h := range accounts {
		g.Go(func() error {
			report, err := h.Sync(ctx, opts)
			results[i] = SyncResult{AccountID: h.ID(), Report: report, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Start launches background polling. Each cycle syncs every account without
// waiting on accounts that are already syncing.
func (m *AccountManager) Start(ctx context.Context) error {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	if m.pollQuit != nil {
		return errPollingStarted
	}
	pctx, cancel := context.WithCancel(ctx)
	m.pollCancel = cancel
	m.pollQuit = make(chan struct{})
	m.pollDone = make(chan struct{})

	go m.poll(pctx, m.pollQuit, m.pollDone)
	m.log.Info().Dur("interval", m.cfg.PollInterval).Msg("account polling started")
	return nil
}

func (m *AccountManager) poll(ctx context.Context, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		case <-ctx.Done():
			return
		case <-m.clock.TickAfter(m.cfg.PollInterval):
		}

		for _, r := range m.SyncAll(ctx, domain.SyncOptions{NoWait: true}) {
			switch {
			case r.Err == nil:
			case errors.Is(r.Err, apperror.ErrSyncInProgress()), errors.Is(r.Err, context.Canceled):
				m.log.Debug().Err(r.Err).Str("account_id", r.AccountID).Msg("poll sync skipped")
			default:
				m.log.Warn().Err(r.Err).Str("account_id", r.AccountID).Msg("poll sync failed")
			}
		}
	}
}

// Stop ends polling between cycles. An in-flight cycle gets the configured
// grace period before it is cancelled.
func (m *AccountManager) Stop(ctx context.Context) error {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	if m.pollQuit == nil {
		return nil
	}
	close(m.pollQuit)
	defer func() {
		m.pollCancel()
		m.pollQuit, m.pollDone, m.pollCancel = nil, nil, nil
	}()

	grace, cancel := context.WithTimeout(ctx, m.cfg.StopGrace)
	defer cancel()
	select {
	case <-m.pollDone:
		m.log.Info().Msg("account polling stopped")
		return nil
	case <-grace.Done():
	}

	m.pollCancel()
	<-m.pollDone
	m.log.Warn().Msg("account polling cancelled after grace period")
	return nil
}

// Close stops polling.
func (m *AccountManager) Close(ctx context.Context) error {
	return m.Stop(ctx)
}

func (m *AccountManager) snapshotPayload() domain.SnapshotPayload {
	var p domain.SnapshotPayload
	for _, h := range m.Accounts() {
		p.Accounts = append(p.Accounts, *h.slot.snapshot())
	}
	return p
}

// Backup writes an encrypted snapshot of the vault and every account. The
// password is verified without unlocking the vault. Destinations starting
// with s3:// are uploaded through the backup store.
func (m *AccountManager) Backup(ctx context.Context, destination, password string) (string, error) {
	payload := m.snapshotPayload()
	if !strings.HasPrefix(destination, S3Scheme) {
		return m.vault.Backup(ctx, destination, password, payload)
	}

	if m.backups == nil {
		return "", apperror.Validation("no backup store configured for s3 destinations")
	}
	dir, err := os.MkdirTemp("", "wallet-backup-*")
	if err != nil {
		return "", apperror.ErrIoFailure(err)
	}
	defer os.RemoveAll(dir)

	path, err := m.vault.Backup(ctx, dir, password, payload)
	if err != nil {
		return "", err
	}
	key := strings.TrimPrefix(destination, S3Scheme)
	if key == "" || strings.HasSuffix(key, "/") {
		key += filepath.Base(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", apperror.ErrIoFailure(err)
	}
	defer f.Close()
	if err := m.backups.Upload(ctx, key, f); err != nil {
		return "", apperror.ErrIoFailure(fmt.Errorf("uploading snapshot: %w", err))
	}

	m.log.Info().Str("destination", S3Scheme+key).Msg("backup uploaded")
	return S3Scheme + key, nil
}

// Restore imports a snapshot into an empty vault and loads its accounts.
// Sources starting with s3:// are downloaded through the backup store.
func (m *AccountManager) Restore(ctx context.Context, source, password string) error {
	if strings.HasPrefix(source, S3Scheme) {
		if m.backups == nil {
			return apperror.Validation("no backup store configured for s3 sources")
		}
		path, cleanup, err := m.download(ctx, strings.TrimPrefix(source, S3Scheme))
		if err != nil {
			return err
		}
		defer cleanup()
		source = path
	}

	if _, err := m.vault.ImportSnapshot(ctx, source, password); err != nil {
		return err
	}
	return m.reload(ctx)
}

func (m *AccountManager) download(ctx context.Context, key string) (string, func(), error) {
	f, err := os.CreateTemp("", "wallet-restore-*.snapshot")
	if err != nil {
		return "", nil, apperror.ErrIoFailure(err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if err := m.backups.Download(ctx, key, f); err != nil {
		f.Close()
		cleanup()
		return "", nil, apperror.ErrIoFailure(fmt.Errorf("downloading snapshot: %w", err))
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, apperror.ErrIoFailure(err)
	}
	return f.Name(), cleanup, nil
}

// asAppError keeps taxonomy errors and classifies the rest as internal.
func asAppError(err error) error {
	if err == nil || apperror.CodeOf(err) != "" {
		return err
	}
	return apperror.InternalError(err)
}
