package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Sync engine defaults.
const (
	defaultSyncParallelism = 8
	defaultRetryAttempts   = 3
	defaultRetryBase       = 200 * time.Millisecond
	defaultRequestTimeout  = 10 * time.Second
	defaultLeaseTTL        = 2 * time.Minute
)

// accountSlot holds the committed state of one account. Readers get clones;
// only the sync commit step and account creation swap the pointer. A removed
// slot refuses every further write.
type accountSlot struct {
	mu      sync.RWMutex
	account *domain.Account
	removed bool
}

func newAccountSlot(a *domain.Account) *accountSlot {
	return &accountSlot{account: a}
}

func (s *accountSlot) snapshot() *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account.Clone()
}

func (s *accountSlot) swap(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = a
}

// markRemoved is called with the account lock held, so every writer that
// takes the lock afterwards sees it.
func (s *accountSlot) markRemoved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = true
}

func (s *accountSlot) live() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.removed {
		return apperror.ErrNotFound("account")
	}
	return nil
}

// ID and Index never change after creation, so no clone is needed.
func (s *accountSlot) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account.ID
}

func (s *accountSlot) Index() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account.Index
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	GapLimit       int
	MinInterval    time.Duration
	RetryAttempts  int
	RetryBase      time.Duration
	Parallelism    int
	RequestTimeout time.Duration
	LeaseTTL       time.Duration
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.GapLimit <= 0 {
		c.GapLimit = domain.DefaultGapLimit
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	} else if c.RetryAttempts == 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
	if c.Parallelism <= 0 {
		c.Parallelism = defaultSyncParallelism
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaultLeaseTTL
	}
	return c
}

// SyncService reconciles accounts against the ledger node.
type SyncService struct {
	cfg      SyncConfig
	deriver  ports.AddressDeriver
	nodes    ports.NodeClientFactory
	accounts ports.AccountRepository
	events   *EventService
	lease    ports.SyncLease
	clock    clock.Clock
	log      zerolog.Logger

	locks *accountLocker
	group singleflight.Group
	owner string
}

// NewSyncService creates the sync engine. lease may be nil.
func NewSyncService(
	cfg SyncConfig,
	deriver ports.AddressDeriver,
	nodes ports.NodeClientFactory,
	accounts ports.AccountRepository,
	events *EventService,
	lease ports.SyncLease,
	clk clock.Clock,
	log zerolog.Logger,
) *SyncService {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &SyncService{
		cfg:      cfg.withDefaults(),
		deriver:  deriver,
		nodes:    nodes,
		accounts: accounts,
		events:   events,
		lease:    lease,
		clock:    clk,
		log:      log.With().Str("component", "sync").Logger(),
		locks:    newAccountLocker(),
		owner:    uuid.NewString(),
	}
}

// LockAccount takes the account lock for operations that must not
// interleave with a sync pass. The returned context re-enters the lock.
func (s *SyncService) LockAccount(ctx context.Context, accountID string) (context.Context, func(), error) {
	return s.locks.Lock(ctx, accountID)
}

// lockSlot takes the account lock and fails with ErrNotFound when the
// account was removed while the caller waited.
func (s *SyncService) lockSlot(ctx context.Context, slot *accountSlot) (context.Context, func(), error) {
	lctx, release, err := s.locks.Lock(ctx, slot.ID())
	if err != nil {
		return nil, nil, err
	}
	if err := slot.live(); err != nil {
		release()
		return nil, nil, err
	}
	return lctx, release, nil
}

// Sync runs one pass for the account. Concurrent identical requests share one
// pass; NoWait requests fail with SyncInProgress while a pass is running; a
// context that already holds the account lock re-enters directly.
func (s *SyncService) Sync(ctx context.Context, slot *accountSlot, opts domain.SyncOptions) (*domain.SyncReport, error) {
	id := slot.ID()

	if s.locks.Held(ctx, id) {
		return s.syncLocked(ctx, slot, opts)
	}

	if opts.NoWait {
		lctx, release, ok := s.locks.TryLock(ctx, id)
		if !ok {
			return nil, apperror.ErrSyncInProgress()
		}
		defer release()
		return s.syncLocked(lctx, slot, opts)
	}

	key := flightKey(id, opts)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// The pass outlives a cancelled waiter; other waiters share it.
		shared := context.WithoutCancel(ctx)
		lctx, release, err := s.locks.Lock(shared, id)
		if err != nil {
			return nil, err
		}
		defer release()
		return s.syncLocked(lctx, slot, opts)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		report := *res.Val.(*domain.SyncReport)
		report.Shared = res.Shared
		return &report, nil
	}
}

func flightKey(id string, opts domain.SyncOptions) string {
	start := "-"
	if opts.StartIndex != nil {
		start = fmt.Sprint(*opts.StartIndex)
	}
	return fmt.Sprintf("%s|%t|%d|%s", id, opts.Force, opts.GapLimit, start)
}

func (s *SyncService) syncLocked(ctx context.Context, slot *accountSlot, opts domain.SyncOptions) (*domain.SyncReport, error) {
	if err := slot.live(); err != nil {
		return nil, err
	}
	current := slot.snapshot()
	log := s.log.With().Str("account_id", current.ID).Logger()

	report := &domain.SyncReport{
		AccountID:    current.ID,
		StartedAt:    s.clock.Now().UTC(),
		BalanceDiffs: make(map[string]domain.BalanceDiff),
	}

	if !opts.Force && s.cfg.MinInterval > 0 && !current.LastSyncedAt.IsZero() &&
		report.StartedAt.Sub(current.LastSyncedAt) < s.cfg.MinInterval {
		report.Skipped = true
		report.FinishedAt = report.StartedAt
		log.Debug().Msg("sync skipped, within minimum interval")
		return report, nil
	}

	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx, current.ID, s.owner, s.cfg.LeaseTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("sync lease unavailable, continuing with local lock")
		case !ok:
			return nil, apperror.ErrSyncInProgress()
		default:
			defer func() {
				if err := s.lease.Release(context.WithoutCancel(ctx), current.ID, s.owner); err != nil {
					log.Warn().Err(err).Msg("failed to release sync lease")
				}
			}()
		}
	}

	client, err := s.nodes.Pool(current.Nodes)
	if err != nil {
		return nil, err
	}

	gap := opts.GapLimit
	if gap <= 0 {
		gap = s.cfg.GapLimit
	}

	p := &syncPass{
		svc:     s,
		client:  client,
		before:  current,
		account: current.Clone(),
		report:  report,
		log:     log,
	}
	if err := p.refreshKnown(ctx); err != nil {
		return nil, err
	}
	for _, chain := range domain.Chains {
		if err := p.discover(ctx, chain, gap, opts.StartIndex); err != nil {
			return nil, err
		}
	}
	newMessages, err := p.collectMessages(ctx)
	if err != nil {
		return nil, err
	}
	changes, err := p.updateConfirmations(ctx, newMessages)
	if err != nil {
		return nil, err
	}
	p.flagReattachmentDivergence()

	events, err := p.buildEvents(newMessages, changes)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	p.account.LastSyncedAt = s.clock.Now().UTC()
	if err := s.accounts.Save(ctx, p.account); err != nil {
		return nil, apperror.ErrIoFailure(fmt.Errorf("persisting account: %w", err))
	}
	slot.swap(p.account)

	s.events.RecordAll(ctx, events)
	report.EventsEmitted = len(events)
	report.FinishedAt = s.clock.Now().UTC()

	log.Debug().
		Int("scanned", report.AddressesScanned).
		Int("new_addresses", len(report.NewAddresses)).
		Int("new_messages", len(report.NewMessages)).
		Int("events", report.EventsEmitted).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("account synced")
	return report, nil
}

// nodeCall runs fn with a per-request timeout, retrying transient node
// failures with exponential backoff.
func (s *SyncService) nodeCall(ctx context.Context, fn func(ctx context.Context) error) error {
	return callNode(ctx, s.cfg, fn)
}

// nodeCallOnce bounds fn by the request timeout without retrying it.
func (s *SyncService) nodeCallOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	rctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	return fn(rctx)
}

func callNode(ctx context.Context, cfg SyncConfig, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(uint64(cfg.RetryAttempts), retry.NewExponential(cfg.RetryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		rctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		err := fn(rctx)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	return errors.Is(err, apperror.ErrNodeUnreachable(nil)) ||
		errors.Is(err, context.DeadlineExceeded)
}

// syncPass is the working state of one sync. It mutates only its own clone
// of the account.
type syncPass struct {
	svc     *SyncService
	client  ports.NodeClient
	before  *domain.Account
	account *domain.Account
	report  *domain.SyncReport
	log     zerolog.Logger
}

type confirmationChange struct {
	message  *domain.Message
	from, to domain.ConfirmationState
}

// refreshKnown reloads the outputs of every known address. The node is
// authoritative; locally unspent outputs it no longer lists are fetched by id.
func (p *syncPass) refreshKnown(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.svc.cfg.Parallelism)

	for i := range p.account.Addresses {
		addr := &p.account.Addresses[i]
		g.Go(func() error {
			outputs, err := p.fetchOutputs(gctx, addr.Address)
			if err != nil {
				return err
			}
			outputs, err = p.keepMissing(gctx, addr.Outputs, outputs)
			if err != nil {
				return err
			}
			addr.Outputs = outputs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	p.report.AddressesScanned += len(p.account.Addresses)
	return nil
}

func (p *syncPass) fetchOutputs(ctx context.Context, address string) ([]domain.Output, error) {
	var outputs []domain.Output
	err := p.svc.nodeCall(ctx, func(ctx context.Context) error {
		var err error
		outputs, err = p.client.FetchAddressOutputs(ctx, address)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortOutputs(outputs)
	return outputs, nil
}

func (p *syncPass) keepMissing(ctx context.Context, cached, fresh []domain.Output) ([]domain.Output, error) {
	seen := make(map[string]struct{}, len(fresh))
	for _, o := range fresh {
		seen[o.ID] = struct{}{}
	}
	for _, o := range cached {
		if _, ok := seen[o.ID]; ok || o.Spent {
			continue
		}
		var got *domain.Output
		err := p.svc.nodeCall(ctx, func(ctx context.Context) error {
			var err error
			got, err = p.client.FetchOutput(ctx, o.ID)
			return err
		})
		if err != nil {
			return nil, err
		}
		if got == nil {
			// Unknown to the node; keep the cached copy rather than guess.
			got = &o
		}
		fresh = append(fresh, *got)
	}
	sortOutputs(fresh)
	return fresh, nil
}

func sortOutputs(outputs []domain.Output) {
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].ID < outputs[j].ID })
}

// discover probes the chain until gap consecutive unused addresses follow
// the last used one, then keeps every probed address up to the last used
// index plus one fresh external address.
func (p *syncPass) discover(ctx context.Context, chain domain.Chain, gap int, startIndex *uint32) error {
	known := make(map[uint32]*domain.Address)
	lastUsed := int64(-1)
	for i := range p.account.Addresses {
		a := &p.account.Addresses[i]
		if a.Chain() != chain {
			continue
		}
		known[a.Index] = a
		if a.Used() && int64(a.Index) > lastUsed {
			lastUsed = int64(a.Index)
		}
	}

	next := int64(p.account.NextIndex(chain))
	if startIndex != nil {
		next = int64(*startIndex)
	} else if lastUsed+1 < next {
		// Trailing unused known addresses count towards the gap.
		next = lastUsed + 1
	}

	probed := make(map[uint32]domain.Address)
	for next <= lastUsed+int64(gap) {
		end := lastUsed + int64(gap)
		if end-next+1 > int64(gap) {
			end = next + int64(gap) - 1
		}

		batch := make([]domain.Address, end-next+1)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.svc.cfg.Parallelism)
		for i := range batch {
			idx := uint32(next) + uint32(i)
			if a, ok := known[idx]; ok {
				batch[i] = *a
				continue
			}
			g.Go(func() error {
				addr, err := p.svc.deriver.DeriveFromXPub(p.account.ExtendedPublicKey, chain, idx)
				if err != nil {
					return apperror.InternalError(fmt.Errorf("deriving %s address %d: %w", chain, idx, err))
				}
				addr.Outputs, err = p.fetchOutputs(gctx, addr.Address)
				if err != nil {
					return err
				}
				batch[i] = addr
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, a := range batch {
			if _, ok := known[a.Index]; !ok {
				probed[a.Index] = a
				p.report.AddressesScanned++
			}
			if a.Used() && int64(a.Index) > lastUsed {
				lastUsed = int64(a.Index)
			}
		}
		next = end + 1
	}

	keepThrough := lastUsed
	if chain == domain.ChainExternal {
		keepThrough++
	}
	for idx := int64(0); idx <= keepThrough; idx++ {
		if _, ok := known[uint32(idx)]; ok {
			continue
		}
		a, ok := probed[uint32(idx)]
		if !ok {
			// Below the probe window; derive and query it so no gap is left.
			derived, err := p.svc.deriver.DeriveFromXPub(p.account.ExtendedPublicKey, chain, uint32(idx))
			if err != nil {
				return apperror.InternalError(fmt.Errorf("deriving %s address %d: %w", chain, idx, err))
			}
			if derived.Outputs, err = p.fetchOutputs(ctx, derived.Address); err != nil {
				return err
			}
			a = derived
		}
		p.account.Addresses = append(p.account.Addresses, a)
		p.report.NewAddresses = append(p.report.NewAddresses, a.Address)
	}
	return nil
}

// collectMessages fetches every message referenced by an output that the
// account has not seen yet and classifies it.
func (p *syncPass) collectMessages(ctx context.Context) ([]*domain.Message, error) {
	ids := make(map[string]struct{})
	for _, a := range p.account.Addresses {
		for _, o := range a.Outputs {
			if o.MessageID != "" {
				ids[o.MessageID] = struct{}{}
			}
			if o.SpentBy != "" {
				ids[o.SpentBy] = struct{}{}
			}
		}
	}

	var missing []string
	for id := range ids {
		if p.account.Message(id) == nil {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)

	fetched := make([]*ports.NodeMessage, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.svc.cfg.Parallelism)
	for i, id := range missing {
		g.Go(func() error {
			return p.svc.nodeCall(gctx, func(ctx context.Context) error {
				m, err := p.client.FetchMessage(ctx, id)
				fetched[i] = m
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	start := len(p.account.Messages)
	for i, nm := range fetched {
		if nm == nil {
			p.log.Debug().Str("message_id", missing[i]).Msg("referenced message not found on node")
			continue
		}
		p.account.Messages = append(p.account.Messages, classifyMessage(p.account, nm))
		p.report.NewMessages = append(p.report.NewMessages, nm.ID)
	}

	added := make([]*domain.Message, 0, len(p.account.Messages)-start)
	for i := start; i < len(p.account.Messages); i++ {
		added = append(added, &p.account.Messages[i])
	}
	return added, nil
}

// classifyMessage derives direction, value and the internal flag from the
// essence and the account's owned addresses.
func classifyMessage(account *domain.Account, nm *ports.NodeMessage) domain.Message {
	m := domain.Message{
		ID:           nm.ID,
		Payload:      nm.Payload,
		Confirmation: domain.ConfirmationPending,
		Broadcasted:  true,
		Timestamp:    nm.Timestamp,
		Incoming:     true,
	}

	essence := nm.Payload.Essence
	if nm.Payload.Kind != domain.PayloadTransaction || essence == nil {
		return m
	}

	ownedInputs := 0
	for _, in := range essence.Inputs {
		if account.Owns(in.Address) {
			ownedInputs++
		}
	}
	allOutputsOwned := true
	var toOwned, toOthers, toInternal uint64
	for _, out := range essence.Outputs {
		addr := account.AddressByText(out.Address)
		if addr == nil {
			allOutputsOwned = false
			toOthers += out.Amount
			continue
		}
		toOwned += out.Amount
		if addr.Internal {
			toInternal += out.Amount
		}
	}

	switch {
	case len(essence.Inputs) > 0 && ownedInputs == len(essence.Inputs) && allOutputsOwned:
		m.Internal = true
		m.Incoming = false
		m.Value = toOwned - toInternal
		m.RemainderValue = toInternal
	case ownedInputs > 0:
		m.Incoming = false
		m.Value = toOthers
		m.RemainderValue = toOwned
	default:
		m.Value = toOwned
	}
	return m
}

// updateConfirmations asks the node about every pending message. Unknown
// answers and terminal states are left alone. Messages first seen in this
// pass take their initial state without a change being reported.
func (p *syncPass) updateConfirmations(ctx context.Context, fresh []*domain.Message) ([]confirmationChange, error) {
	isFresh := make(map[string]bool, len(fresh))
	for _, m := range fresh {
		isFresh[m.ID] = true
	}

	var pending []*domain.Message
	for i := range p.account.Messages {
		if p.account.Messages[i].IsPending() {
			pending = append(pending, &p.account.Messages[i])
		}
	}

	states := make([]domain.ConfirmationState, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.svc.cfg.Parallelism)
	for i, m := range pending {
		g.Go(func() error {
			return p.svc.nodeCall(gctx, func(ctx context.Context) error {
				st, err := p.client.InclusionState(ctx, m.ID)
				states[i] = st
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var changes []confirmationChange
	for i, m := range pending {
		from := m.Confirmation
		to, changed := from.Advance(states[i])
		if !changed {
			continue
		}
		m.Confirmation = to
		if isFresh[m.ID] {
			continue
		}
		changes = append(changes, confirmationChange{message: m, from: from, to: to})
		p.report.ConfirmationChanges = append(p.report.ConfirmationChanges, m.ID)
	}
	return changes, nil
}

// flagReattachmentDivergence logs when a reattachment and its original are
// both confirmed. The states are recorded as reported.
func (p *syncPass) flagReattachmentDivergence() {
	for _, m := range p.account.Messages {
		if m.ReattachedMessageID == "" || m.Confirmation != domain.ConfirmationConfirmed {
			continue
		}
		orig := p.account.Message(m.ReattachedMessageID)
		if orig != nil && orig.Confirmation == domain.ConfirmationConfirmed {
			p.log.Warn().
				Str("message_id", m.ID).
				Str("reattached_message_id", m.ReattachedMessageID).
				Msg("reattachment and original both confirmed")
		}
	}
}

// buildEvents diffs every address against the pre-sync account and builds the
// events to emit after commit.
func (p *syncPass) buildEvents(newMessages []*domain.Message, changes []confirmationChange) ([]domain.Event, error) {
	var events []domain.Event
	id := p.account.ID

	addrs := append([]domain.Address(nil), p.account.Addresses...)
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Internal != addrs[j].Internal {
			return !addrs[i].Internal
		}
		return addrs[i].Index < addrs[j].Index
	})

	for i := range addrs {
		diff, trigger := addressDiff(p.before.AddressByText(addrs[i].Address), &addrs[i])
		if diff.IsZero() {
			continue
		}
		p.report.BalanceDiffs[addrs[i].Address] = diff
		e, err := domain.NewEvent(domain.EventBalanceChanged, id, domain.BalanceChangedPayload{
			Address:   addrs[i].Address,
			Diff:      diff,
			MessageID: trigger,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	for _, m := range newMessages {
		e, err := domain.NewEvent(domain.EventNewTransaction, id, domain.NewTransactionPayload{
			MessageID: m.ID,
			Incoming:  m.Incoming,
			Internal:  m.Internal,
			Value:     m.Value,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	for _, c := range changes {
		e, err := domain.NewEvent(domain.EventConfirmationChanged, id, domain.ConfirmationChangedPayload{
			MessageID:           c.message.ID,
			From:                c.from,
			To:                  c.to,
			ReattachedMessageID: c.message.ReattachedMessageID,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// addressDiff returns what was received and spent at an address since the
// previous state, and the id of the first message responsible.
func addressDiff(before, after *domain.Address) (domain.BalanceDiff, string) {
	var diff domain.BalanceDiff
	var trigger string
	note := func(id string) {
		if trigger == "" {
			trigger = id
		}
	}

	for _, o := range after.Outputs {
		var prev *domain.Output
		if before != nil {
			prev = before.Output(o.ID)
		}
		if prev == nil {
			diff.Received += o.Amount
			note(o.MessageID)
		}
		if o.Spent && (prev == nil || !prev.Spent) {
			diff.Spent += o.Amount
			note(o.SpentBy)
		}
	}
	return diff, trigger
}
