package service

import (
	"context"
	"fmt"
	"sort"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/apperror"
)

// AccountHandle is the per-account API. Mutating operations take the account
// lock; the implicit sync they run re-enters it.
type AccountHandle struct {
	m    *AccountManager
	slot *accountSlot
}

func (h *AccountHandle) ID() string    { return h.slot.ID() }
func (h *AccountHandle) Index() uint32 { return h.slot.Index() }

func (h *AccountHandle) Alias() string {
	h.slot.mu.RLock()
	defer h.slot.mu.RUnlock()
	return h.slot.account.Alias
}

// Account returns a copy of the committed account state.
func (h *AccountHandle) Account() *domain.Account {
	return h.slot.snapshot()
}

func (h *AccountHandle) Balance() domain.Balance {
	return h.slot.snapshot().Balance()
}

func (h *AccountHandle) Addresses() []domain.Address {
	return h.slot.snapshot().Addresses
}

// Messages returns the account messages, newest first.
func (h *AccountHandle) Messages() []domain.Message {
	msgs := h.slot.snapshot().Messages
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp.After(msgs[j].Timestamp) })
	return msgs
}

// LatestAddress returns the highest external address.
func (h *AccountHandle) LatestAddress() (domain.Address, error) {
	a := h.slot.snapshot().LatestAddress()
	if a == nil {
		return domain.Address{}, apperror.ErrNotFound("address")
	}
	return *a, nil
}

func (h *AccountHandle) Sync(ctx context.Context, opts domain.SyncOptions) (*domain.SyncReport, error) {
	return h.m.sync.Sync(ctx, h.slot, opts)
}

// GenerateAddress derives and stores the next external address.
func (h *AccountHandle) GenerateAddress(ctx context.Context) (domain.Address, error) {
	ctx, release, err := h.m.sync.lockSlot(ctx, h.slot)
	if err != nil {
		return domain.Address{}, err
	}
	defer release()

	account := h.slot.snapshot()
	addr, err := h.m.deriver.DeriveFromXPub(account.ExtendedPublicKey, domain.ChainExternal, account.NextIndex(domain.ChainExternal))
	if err != nil {
		return domain.Address{}, apperror.InternalError(err)
	}
	account.Addresses = append(account.Addresses, addr)
	if err := h.m.repo.Save(ctx, account); err != nil {
		return domain.Address{}, apperror.ErrIoFailure(fmt.Errorf("persisting account: %w", err))
	}
	h.slot.swap(account)
	return addr, nil
}

// Transfer sends req.Amount to req.Address. Inputs are picked greedily from
// available outputs and any change goes to a fresh internal address.
func (h *AccountHandle) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.ErrInvalidTransfer(err.Error())
	}
	if err := h.m.deriver.ValidateAddress(req.Address); err != nil {
		return nil, apperror.ErrInvalidTransfer(fmt.Sprintf("address: %v", err))
	}

	ctx, release, err := h.m.sync.lockSlot(ctx, h.slot)
	if err != nil {
		return nil, err
	}
	defer release()

	h.progress(ctx, domain.StepSyncingAccount, "")
	if _, err := h.Sync(ctx, domain.SyncOptions{}); err != nil {
		return nil, err
	}

	h.progress(ctx, domain.StepSelectingInputs, "")
	account := h.slot.snapshot()
	inputs, total, err := selectInputs(account, req.Amount)
	if err != nil {
		return nil, err
	}

	essence := domain.Essence{Indexation: req.Indexation}
	for _, o := range inputs {
		owner := account.AddressByText(o.Address)
		essence.Inputs = append(essence.Inputs, domain.Input{OutputID: o.ID, Address: o.Address, Amount: o.Amount})
		essence.InputsMetadata = append(essence.InputsMetadata, domain.InputMetadata{
			OutputID:     o.ID,
			AddressIndex: owner.Index,
			Internal:     owner.Internal,
		})
	}
	essence.Outputs = append(essence.Outputs, domain.EssenceOutput{Address: req.Address, Amount: req.Amount})

	if remainder := total - req.Amount; remainder > 0 {
		h.progress(ctx, domain.StepRemainderAddress, "")
		addr, err := h.m.deriver.DeriveFromXPub(account.ExtendedPublicKey, domain.ChainInternal, account.NextIndex(domain.ChainInternal))
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		account.Addresses = append(account.Addresses, addr)
		essence.Outputs = append(essence.Outputs, domain.EssenceOutput{Address: addr.Address, Amount: remainder})
	}

	h.progress(ctx, domain.StepSigningTransaction, "")
	payload, err := h.sign(ctx, account, &essence)
	if err != nil {
		return nil, err
	}

	h.progress(ctx, domain.StepBroadcasting, "")
	id, err := h.submit(ctx, account, payload)
	if err != nil {
		return nil, err
	}

	msg := classifyMessage(account, &ports.NodeMessage{ID: id, Payload: payload, Timestamp: h.m.clock.Now().UTC()})
	account.Messages = append(account.Messages, msg)
	if err := h.commitBroadcast(ctx, account); err != nil {
		return nil, err
	}

	h.emit(ctx, domain.EventNewTransaction, domain.NewTransactionPayload{
		MessageID: msg.ID,
		Incoming:  msg.Incoming,
		Internal:  msg.Internal,
		Value:     msg.Value,
	})
	h.progress(ctx, domain.StepCompleted, msg.ID)

	h.m.log.Info().Str("account_id", account.ID).Str("message_id", msg.ID).Uint64("amount", req.Amount).Msg("transfer broadcast")
	return &msg, nil
}

// selectInputs takes the largest available outputs first until amount is
// covered.
func selectInputs(account *domain.Account, amount uint64) ([]domain.Output, uint64, error) {
	locked := account.LockedOutputs()
	var candidates []domain.Output
	for _, a := range account.Addresses {
		for _, o := range a.Outputs {
			if o.Spent {
				continue
			}
			if _, ok := locked[o.ID]; ok {
				continue
			}
			candidates = append(candidates, o)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Amount != candidates[j].Amount {
			return candidates[i].Amount > candidates[j].Amount
		}
		return candidates[i].ID < candidates[j].ID
	})

	var (
		picked []domain.Output
		total  uint64
	)
	for _, o := range candidates {
		if total >= amount {
			break
		}
		picked = append(picked, o)
		total += o.Amount
	}
	if total < amount {
		return nil, 0, apperror.ErrInsufficientBalance()
	}
	return picked, total, nil
}

func (h *AccountHandle) sign(ctx context.Context, account *domain.Account, essence *domain.Essence) (domain.Payload, error) {
	hash, err := essence.SigningHash()
	if err != nil {
		return domain.Payload{}, apperror.InternalError(err)
	}

	unlocks := make([]domain.Unlock, len(essence.InputsMetadata))
	err = h.m.vault.WithSeed(ctx, func(seed []byte) error {
		for i, meta := range essence.InputsMetadata {
			u, err := h.m.deriver.Sign(seed, account.Index, domain.ChainOf(meta.Internal), meta.AddressIndex, hash)
			if err != nil {
				return fmt.Errorf("signing input %d: %w", i, err)
			}
			unlocks[i] = u
		}
		return nil
	})
	if err != nil {
		return domain.Payload{}, asAppError(err)
	}
	return domain.Payload{Kind: domain.PayloadTransaction, Essence: essence, Unlocks: unlocks}, nil
}

func (h *AccountHandle) submit(ctx context.Context, account *domain.Account, payload domain.Payload) (string, error) {
	client, err := h.m.nodes.Pool(account.Nodes)
	if err != nil {
		return "", err
	}
	// One attempt only: a timed out submit may have been accepted, and the
	// next sync picks the message up by its inputs.
	var id string
	err = h.m.sync.nodeCallOnce(ctx, func(ctx context.Context) error {
		var err error
		id, err = client.SubmitMessage(ctx, payload)
		return err
	})
	return id, asAppError(err)
}

// commitBroadcast stores an account after a message reached the node. The
// in-memory state is updated even when the write fails so the spent inputs
// stay locked until the next sync persists them.
func (h *AccountHandle) commitBroadcast(ctx context.Context, account *domain.Account) error {
	// Swap before saving, unlike the sync commit. The node already holds the
	// message, so a failed write must not leave its inputs looking spendable.
	h.slot.swap(account)
	if err := h.m.repo.Save(ctx, account); err != nil {
		return apperror.ErrIoFailure(fmt.Errorf("persisting account: %w", err))
	}
	return nil
}

// Retry promotes a pending message that is younger than the promote
// threshold and reattaches older ones.
func (h *AccountHandle) Retry(ctx context.Context, messageID string) (*domain.Message, error) {
	ctx, account, msg, release, err := h.retryable(ctx, messageID)
	if err != nil {
		return nil, err
	}
	defer release()

	if h.m.clock.Now().Sub(msg.Timestamp) < h.m.cfg.PromoteThreshold {
		if _, err := h.promote(ctx, account, msg); err != nil {
			return nil, err
		}
		return msg, nil
	}
	return h.reattach(ctx, account, msg)
}

// Reattach resubmits the payload of a pending message as a new message.
func (h *AccountHandle) Reattach(ctx context.Context, messageID string) (*domain.Message, error) {
	ctx, account, msg, release, err := h.retryable(ctx, messageID)
	if err != nil {
		return nil, err
	}
	defer release()
	return h.reattach(ctx, account, msg)
}

// Promote asks the node to promote a pending message and returns the id of
// the promoting message.
func (h *AccountHandle) Promote(ctx context.Context, messageID string) (string, error) {
	ctx, account, msg, release, err := h.retryable(ctx, messageID)
	if err != nil {
		return "", err
	}
	defer release()
	return h.promote(ctx, account, msg)
}

// retryable locks the account, syncs it and checks that the message can
// still be retried. The caller must release on success.
func (h *AccountHandle) retryable(ctx context.Context, messageID string) (context.Context, *domain.Account, *domain.Message, func(), error) {
	ctx, release, err := h.m.sync.lockSlot(ctx, h.slot)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	fail := func(err error) (context.Context, *domain.Account, *domain.Message, func(), error) {
		release()
		return nil, nil, nil, nil, err
	}

	if _, err := h.Sync(ctx, domain.SyncOptions{}); err != nil {
		return fail(err)
	}
	account := h.slot.snapshot()
	msg := account.Message(messageID)
	switch {
	case msg == nil:
		return fail(apperror.ErrNotFound("message"))
	case msg.Confirmation == domain.ConfirmationConfirmed:
		return fail(apperror.ErrInvalidTransfer("message is already confirmed"))
	case msg.Confirmation == domain.ConfirmationConflicting:
		return fail(apperror.ErrInvalidTransfer("message is conflicting"))
	case msg.Payload.Kind != domain.PayloadTransaction || msg.Payload.Essence == nil:
		return fail(apperror.ErrInvalidTransfer("only transaction messages can be retried"))
	}
	return ctx, account, msg, release, nil
}

func (h *AccountHandle) reattach(ctx context.Context, account *domain.Account, original *domain.Message) (*domain.Message, error) {
	id, err := h.submit(ctx, account, original.Payload)
	if err != nil {
		return nil, err
	}

	msg := classifyMessage(account, &ports.NodeMessage{ID: id, Payload: original.Payload, Timestamp: h.m.clock.Now().UTC()})
	msg.ReattachedMessageID = original.ID
	account.Messages = append(account.Messages, msg)
	if err := h.commitBroadcast(ctx, account); err != nil {
		return nil, err
	}

	h.emit(ctx, domain.EventReattachmentTriggered, domain.ReattachmentPayload{
		MessageID:           msg.ID,
		ReattachedMessageID: original.ID,
	})
	h.m.log.Info().Str("account_id", account.ID).Str("message_id", msg.ID).Str("reattached_message_id", original.ID).Msg("message reattached")
	return &msg, nil
}

func (h *AccountHandle) promote(ctx context.Context, account *domain.Account, msg *domain.Message) (string, error) {
	client, err := h.m.nodes.Pool(account.Nodes)
	if err != nil {
		return "", err
	}
	var id string
	err = h.m.sync.nodeCall(ctx, func(ctx context.Context) error {
		var err error
		id, err = client.PromoteMessage(ctx, msg.ID)
		return err
	})
	if err != nil {
		return "", asAppError(err)
	}
	h.m.log.Info().Str("account_id", account.ID).Str("message_id", msg.ID).Str("promotion_id", id).Msg("message promoted")
	return id, nil
}

func (h *AccountHandle) progress(ctx context.Context, step domain.TransferStep, messageID string) {
	h.emit(ctx, domain.EventTransferProgress, domain.TransferProgressPayload{Step: step, MessageID: messageID})
}

func (h *AccountHandle) emit(ctx context.Context, kind domain.EventKind, payload interface{}) {
	e, err := domain.NewEvent(kind, h.ID(), payload)
	if err != nil {
		h.m.log.Error().Err(err).Str("kind", string(kind)).Msg("failed to build event")
		return
	}
	h.m.events.Record(ctx, e)
}
