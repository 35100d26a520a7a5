package main

import (
	"context"
	"fmt"

	"ledger-wallet/config"
	"ledger-wallet/internal/adapter/node"
	"ledger-wallet/internal/adapter/storage/kv"
	pgStorage "ledger-wallet/internal/adapter/storage/postgres"
	redisStorage "ledger-wallet/internal/adapter/storage/redis"
	s3Storage "ledger-wallet/internal/adapter/storage/s3"
	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/internal/service"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/rs/zerolog"
)

// wallet is the fully wired account manager plus everything it owns.
type wallet struct {
	vault   *service.VaultService
	events  *service.EventService
	manager *service.AccountManager
	health  []ports.HealthChecker
	closers []func()
	log     zerolog.Logger
}

func (w *wallet) Close(ctx context.Context) {
	if w.manager != nil {
		if err := w.manager.Close(ctx); err != nil {
			w.log.Warn().Err(err).Msg("stopping account manager")
		}
	}
	if w.vault != nil {
		w.vault.Lock()
	}
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i]()
	}
}

// openWallet builds the wallet stack from cfg. On error everything opened so
// far is closed.
func openWallet(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *wallet, err error) {
	w := &wallet{log: log}
	defer func() {
		if err != nil {
			w.Close(ctx)
		}
	}()

	var cipher kv.ValueCipher
	key, err := cfg.Storage.Key()
	if err != nil {
		return nil, fmt.Errorf("storage encryption key: %w", err)
	}
	if key != nil {
		keyed, err := service.NewKeyedEncryption(key)
		if err != nil {
			return nil, fmt.Errorf("storage encryption key: %w", err)
		}
		cipher = keyed
	}

	var (
		adapter   ports.StorageAdapter
		eventRepo ports.EventRepository
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		adapter = kv.NewMemoryAdapter()
	case config.BackendBolt:
		adapter, err = kv.OpenBolt(cfg.Storage.Path)
	case config.BackendBadger:
		adapter, err = kv.OpenBadger(cfg.Storage.Path)
	case config.BackendPostgres:
		pool, perr := pgStorage.NewPool(ctx, cfg.Database, log)
		if perr != nil {
			return nil, perr
		}
		w.closers = append(w.closers, pool.Close)
		if err := pgStorage.Migrate(ctx, pool, log); err != nil {
			return nil, err
		}
		adapter = pgStorage.NewKVAdapter(pool)
		eventRepo = pgStorage.NewEventRepo(pool)
		w.health = append(w.health, pgStorage.NewHealthCheck(pool))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	store, err := kv.Open(ctx, adapter, cipher, log)
	if err != nil {
		_ = adapter.Close()
		return nil, err
	}
	w.closers = append(w.closers, func() { _ = store.Close() })

	err = store.EnsureSettings(ctx, domain.ManagerSettings{
		HRP:      cfg.Address.HRP,
		CoinType: cfg.Address.CoinType,
		Nodes:    nodesFromConfig(cfg.Nodes),
	})
	if err != nil {
		return nil, err
	}

	if !cfg.Events.Persist {
		eventRepo = nil
	} else if eventRepo == nil {
		eventRepo = store.Events()
	}

	var (
		publishers []ports.EventPublisher
		lease      ports.SyncLease
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		w.closers = append(w.closers, func() { _ = rdb.Close() })
		publishers = append(publishers, redisStorage.NewEventPublisher(rdb, cfg.Redis.EventStream, cfg.Redis.StreamLen))
		lease = redisStorage.NewSyncLease(rdb)
		w.health = append(w.health, redisStorage.NewHealthCheck(rdb))
	}

	backups, err := s3Storage.NewBackupStore(ctx, cfg.Backup)
	if err != nil {
		return nil, err
	}

	clk := clock.NewDefaultClock()
	w.events, err = service.NewEventService(ctx, eventRepo, clk, log, publishers...)
	if err != nil {
		return nil, err
	}
	w.closers = append(w.closers, w.events.Close)

	hasher := service.NewArgon2HashServiceWithParams(domain.KDFParams{
		Time:    cfg.Vault.ArgonTime,
		Memory:  cfg.Vault.ArgonMemory,
		Threads: cfg.Vault.ArgonThreads,
	})
	w.vault = service.NewVaultService(store, store, hasher, service.NewAESEncryptionService(), clk,
		service.VaultOptions{UnlockTTL: cfg.Vault.UnlockTTL, Compress: cfg.Vault.Compress}, log)

	deriver := service.NewHDDerivationService(cfg.Address.HRP, cfg.Address.CoinType)
	nodes := node.NewFactory(cfg.Sync.RequestTimeout, log)

	syncSvc := service.NewSyncService(service.SyncConfig{
		GapLimit:       cfg.Sync.GapLimit,
		MinInterval:    cfg.Sync.MinInterval,
		RetryAttempts:  int(cfg.Sync.RetryAttempts),
		RetryBase:      cfg.Sync.RetryBase,
		Parallelism:    cfg.Sync.Parallelism,
		RequestTimeout: cfg.Sync.RequestTimeout,
		LeaseTTL:       cfg.Redis.LeaseTTL,
	}, deriver, nodes, store, w.events, lease, clk, log)

	w.manager, err = service.NewAccountManager(ctx, service.ManagerConfig{
		PollInterval:     cfg.Sync.PollInterval,
		PromoteThreshold: cfg.Sync.PromoteThreshold,
		StopGrace:        cfg.Sync.StopGrace,
		Parallelism:      cfg.Sync.Parallelism,
	}, service.ManagerDeps{
		Vault:    w.vault,
		Deriver:  deriver,
		Nodes:    nodes,
		Accounts: store,
		Events:   w.events,
		Sync:     syncSvc,
		Backups:  backups,
		Clock:    clk,
	}, log)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// checkDependencies pings every external dependency once.
func (w *wallet) checkDependencies(ctx context.Context) error {
	for _, h := range w.health {
		if err := h.Ping(ctx); err != nil {
			return fmt.Errorf("%s unavailable: %w", h.Name(), err)
		}
		w.log.Debug().Str("dependency", h.Name()).Msg("dependency healthy")
	}
	return nil
}

// unlock opens the vault for the configured TTL.
func (w *wallet) unlock(ctx context.Context, password string) error {
	scope, err := w.vault.Unlock(ctx, password)
	if err != nil {
		return err
	}
	scope.Release()
	return nil
}

// nodesFromConfig converts the configured default nodes.
func nodesFromConfig(nodes []config.NodeConfig) []domain.NodeConfig {
	out := make([]domain.NodeConfig, 0, len(nodes))
	for _, n := range nodes {
		dn := domain.NodeConfig{URL: n.URL, Disabled: n.Disabled, JWT: n.JWT}
		if n.Username != "" {
			dn.Auth = &domain.NodeAuth{Username: n.Username, Password: n.Password}
		}
		out = append(out, dn)
	}
	return out
}
