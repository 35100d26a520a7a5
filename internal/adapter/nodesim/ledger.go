// Package nodesim is an in-memory ledger that behaves like a remote node:
// it tracks outputs per address, validates and applies signed transactions,
// and lets tests or operators drive confirmation states.
package nodesim

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/address"

	"github.com/lightningnetwork/lnd/clock"
	"golang.org/x/crypto/blake2b"
)

// FaucetAddress is the sender of every faucet transaction.
const FaucetAddress = "faucet"

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrOutputNotFound  = errors.New("output not found")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrDoubleSpend     = errors.New("input already spent by another transaction")
	ErrInvalidState    = errors.New("invalid confirmation state")
)

type transaction struct {
	id        string
	essence   domain.Essence
	messageID string // first message carrying the transaction
}

type message struct {
	node  ports.NodeMessage
	state domain.ConfirmationState
	txID  string
}

// Ledger is safe for concurrent use.
type Ledger struct {
	hrp   string
	clock clock.Clock

	mu        sync.RWMutex
	seq       uint64
	outputs   map[string]*domain.Output
	byAddress map[string][]string
	txs       map[string]*transaction
	messages  map[string]*message
	order     []string
}

// NewLedger creates an empty ledger that accepts addresses with hrp.
func NewLedger(hrp string, clk clock.Clock) *Ledger {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &Ledger{
		hrp:       hrp,
		clock:     clk,
		outputs:   make(map[string]*domain.Output),
		byAddress: make(map[string][]string),
		txs:       make(map[string]*transaction),
		messages:  make(map[string]*message),
	}
}

// HRP is the human-readable part of accepted addresses.
func (l *Ledger) HRP() string {
	return l.hrp
}

// Faucet credits amount to addr with a confirmed transaction and returns the
// message id.
func (l *Ledger) Faucet(addr string, amount uint64) (string, error) {
	if err := address.Validate(l.hrp, addr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if amount == 0 {
		return "", fmt.Errorf("%w: amount must be positive", ErrInvalidPayload)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	essence := domain.Essence{
		Inputs:  []domain.Input{{OutputID: fmt.Sprintf("faucet-%d", l.seq), Address: FaucetAddress, Amount: amount}},
		Outputs: []domain.EssenceOutput{{Address: addr, Amount: amount}},
	}
	txID, err := transactionID(&essence)
	if err != nil {
		return "", err
	}
	msgID := l.newMessageLocked(txID, domain.Payload{Kind: domain.PayloadTransaction, Essence: &essence})
	l.txs[txID] = &transaction{id: txID, essence: essence, messageID: msgID}
	l.createOutputsLocked(txID, msgID, essence.Outputs)
	l.messages[msgID].state = domain.ConfirmationConfirmed
	return msgID, nil
}

// Submit validates a signed payload and applies it. Resubmitting a payload
// whose transaction is already known creates a reattachment message that
// shares the transaction's outputs.
func (l *Ledger) Submit(payload domain.Payload) (string, error) {
	switch payload.Kind {
	case domain.PayloadTransaction:
	case domain.PayloadIndexation:
		if payload.Indexation == nil || payload.Indexation.Index == "" {
			return "", fmt.Errorf("%w: indexation payload needs an index", ErrInvalidPayload)
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		l.seq++
		return l.newMessageLocked("", payload), nil
	default:
		return "", fmt.Errorf("%w: unsupported payload kind %q", ErrInvalidPayload, payload.Kind)
	}

	essence := payload.Essence
	if essence == nil || len(essence.Inputs) == 0 || len(essence.Outputs) == 0 {
		return "", fmt.Errorf("%w: transaction needs inputs and outputs", ErrInvalidPayload)
	}
	if len(payload.Unlocks) != len(essence.Inputs) {
		return "", fmt.Errorf("%w: %d unlocks for %d inputs", ErrInvalidPayload, len(payload.Unlocks), len(essence.Inputs))
	}
	for _, out := range essence.Outputs {
		if out.Amount == 0 {
			return "", fmt.Errorf("%w: zero-value output", ErrInvalidPayload)
		}
		if err := address.Validate(l.hrp, out.Address); err != nil {
			return "", fmt.Errorf("%w: output address: %v", ErrInvalidPayload, err)
		}
	}
	hash, err := essence.SigningHash()
	if err != nil {
		return "", err
	}
	txID, err := transactionID(essence)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.txs[txID]; ok {
		l.seq++
		return l.newMessageLocked(txID, payload), nil
	}

	var in uint64
	seen := make(map[string]struct{}, len(essence.Inputs))
	for i, input := range essence.Inputs {
		if _, dup := seen[input.OutputID]; dup {
			return "", fmt.Errorf("%w: duplicate input %s", ErrInvalidPayload, input.OutputID)
		}
		seen[input.OutputID] = struct{}{}

		out, ok := l.outputs[input.OutputID]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrOutputNotFound, input.OutputID)
		}
		if out.Spent {
			return "", fmt.Errorf("%w: %s", ErrDoubleSpend, input.OutputID)
		}
		if out.Address != input.Address || out.Amount != input.Amount {
			return "", fmt.Errorf("%w: input %s does not match ledger output", ErrInvalidPayload, input.OutputID)
		}
		u := payload.Unlocks[i]
		if err := address.VerifyUnlock(input.Address, u.PublicKey, u.Signature, hash); err != nil {
			return "", fmt.Errorf("%w: input %d: %v", ErrInvalidPayload, i, err)
		}
		in += out.Amount
	}
	if in != essence.Total() {
		return "", fmt.Errorf("%w: inputs %d do not match outputs %d", ErrInvalidPayload, in, essence.Total())
	}

	l.seq++
	stored := *essence
	stored.InputsMetadata = nil
	msgID := l.newMessageLocked(txID, payload)
	l.txs[txID] = &transaction{id: txID, essence: stored, messageID: msgID}
	for _, input := range essence.Inputs {
		out := l.outputs[input.OutputID]
		out.Spent = true
		out.SpentBy = msgID
	}
	l.createOutputsLocked(txID, msgID, essence.Outputs)
	return msgID, nil
}

// Promote attaches an empty indexation message referencing id and returns
// the new message id.
func (l *Ledger) Promote(id string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.messages[id]; !ok {
		return "", ErrMessageNotFound
	}
	l.seq++
	return l.newMessageLocked("", domain.Payload{
		Kind:       domain.PayloadIndexation,
		Indexation: &domain.Indexation{Index: "promotion", Data: []byte(id)},
	}), nil
}

// SetState overrides the inclusion state of a message. Confirming one
// message of a transaction marks its other messages conflicting.
func (l *Ledger) SetState(id string, state domain.ConfirmationState) error {
	switch state {
	case domain.ConfirmationPending, domain.ConfirmationConfirmed,
		domain.ConfirmationConflicting, domain.ConfirmationUnknown:
	default:
		return ErrInvalidState
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.messages[id]
	if !ok {
		return ErrMessageNotFound
	}
	m.state = state
	if state == domain.ConfirmationConfirmed && m.txID != "" {
		for otherID, other := range l.messages {
			if otherID != id && other.txID == m.txID && other.state == domain.ConfirmationPending {
				other.state = domain.ConfirmationConflicting
			}
		}
	}
	return nil
}

// AddressOutputs returns every output ever created at addr, spent or not.
func (l *Ledger) AddressOutputs(addr string) []domain.Output {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.byAddress[addr]
	out := make([]domain.Output, 0, len(ids))
	for _, id := range ids {
		out = append(out, *l.outputs[id])
	}
	return out
}

// Output returns one output.
func (l *Ledger) Output(id string) (domain.Output, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.outputs[id]
	if !ok {
		return domain.Output{}, ErrOutputNotFound
	}
	return *o, nil
}

// Message returns a message as a node reports it.
func (l *Ledger) Message(id string) (ports.NodeMessage, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.messages[id]
	if !ok {
		return ports.NodeMessage{}, ErrMessageNotFound
	}
	return m.node, nil
}

// State returns the inclusion state; unknown ids report Unknown.
func (l *Ledger) State(id string) domain.ConfirmationState {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.messages[id]
	if !ok {
		return domain.ConfirmationUnknown
	}
	return m.state
}

// Balance sums unspent outputs at addr.
func (l *Ledger) Balance(addr string) uint64 {
	var total uint64
	for _, o := range l.AddressOutputs(addr) {
		if !o.Spent {
			total += o.Amount
		}
	}
	return total
}

// MessageIDs lists every message id in submission order.
func (l *Ledger) MessageIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.order...)
}

func (l *Ledger) newMessageLocked(txID string, payload domain.Payload) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s|%d", txID, l.seq)))
	id := hex.EncodeToString(sum[:])
	l.messages[id] = &message{
		node: ports.NodeMessage{
			ID:        id,
			Payload:   stripMetadata(payload),
			Timestamp: l.clock.Now().UTC(),
		},
		state: domain.ConfirmationPending,
		txID:  txID,
	}
	l.order = append(l.order, id)
	return id
}

func (l *Ledger) createOutputsLocked(txID, msgID string, outputs []domain.EssenceOutput) {
	for i, o := range outputs {
		id := fmt.Sprintf("%s:%d", txID, i)
		l.outputs[id] = &domain.Output{
			ID:        id,
			MessageID: msgID,
			Address:   o.Address,
			Amount:    o.Amount,
		}
		l.byAddress[o.Address] = append(l.byAddress[o.Address], id)
	}
}

func transactionID(e *domain.Essence) (string, error) {
	hash, err := e.SigningHash()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hash), nil
}

// stripMetadata drops wallet-local input metadata; nodes never store it.
func stripMetadata(p domain.Payload) domain.Payload {
	raw, err := json.Marshal(p)
	if err != nil {
		return p
	}
	var c domain.Payload
	if err := json.Unmarshal(raw, &c); err != nil {
		return p
	}
	if c.Essence != nil {
		c.Essence.InputsMetadata = nil
	}
	return c
}
