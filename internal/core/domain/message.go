package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// PayloadKind identifies the message payload type.
type PayloadKind string

const (
	PayloadTransaction PayloadKind = "TRANSACTION"
	PayloadIndexation  PayloadKind = "INDEXATION"
	PayloadOther       PayloadKind = "OTHER"
)

// ConfirmationState is the ledger inclusion state of a message.
type ConfirmationState string

const (
	ConfirmationPending     ConfirmationState = "PENDING"
	ConfirmationConfirmed   ConfirmationState = "CONFIRMED"
	ConfirmationConflicting ConfirmationState = "CONFLICTING"
	ConfirmationUnknown     ConfirmationState = "UNKNOWN"
)

// IsTerminal reports whether the state can no longer change.
func (s ConfirmationState) IsTerminal() bool {
	return s == ConfirmationConfirmed || s == ConfirmationConflicting
}

// Advance applies a state reported by a node. Only Pending may move, and only
// to Confirmed or Conflicting; Unknown and repeated Pending are no-ops.
func (s ConfirmationState) Advance(reported ConfirmationState) (ConfirmationState, bool) {
	if s.IsTerminal() {
		return s, false
	}
	if reported != ConfirmationConfirmed && reported != ConfirmationConflicting {
		return s, false
	}
	return reported, true
}

// Input references an output consumed by a transaction.
type Input struct {
	OutputID string `json:"output_id"`
	Address  string `json:"address"`
	Amount   uint64 `json:"amount"`
}

// InputMetadata records where a signing key for an input lives. Only present
// on messages the wallet built itself.
type InputMetadata struct {
	OutputID     string `json:"output_id"`
	AddressIndex uint32 `json:"address_index"`
	Internal     bool   `json:"internal"`
}

// EssenceOutput is a value transfer to an address.
type EssenceOutput struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// Indexation is an indexed data payload.
type Indexation struct {
	Index string `json:"index"`
	Data  []byte `json:"data,omitempty"`
}

// Essence is the signed part of a transaction.
type Essence struct {
	Inputs         []Input         `json:"inputs"`
	Outputs        []EssenceOutput `json:"outputs"`
	InputsMetadata []InputMetadata `json:"inputs_metadata,omitempty"`
	Indexation     *Indexation     `json:"indexation,omitempty"`
}

// SigningHash is the blake2b-256 digest signed by every input's key.
// Inputs metadata is local bookkeeping and is excluded.
func (e *Essence) SigningHash() ([]byte, error) {
	signed := Essence{
		Inputs:     e.Inputs,
		Outputs:    e.Outputs,
		Indexation: e.Indexation,
	}
	raw, err := json.Marshal(signed)
	if err != nil {
		return nil, fmt.Errorf("encoding essence: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return sum[:], nil
}

// Total is the sum of all outputs.
func (e *Essence) Total() uint64 {
	var total uint64
	for _, o := range e.Outputs {
		total += o.Amount
	}
	return total
}

// Unlock proves ownership of one input.
type Unlock struct {
	PublicKey string `json:"public_key"` // hex compressed
	Signature string `json:"signature"`  // hex DER
}

// Payload is the message body submitted to a node.
type Payload struct {
	Kind       PayloadKind `json:"kind"`
	Essence    *Essence    `json:"essence,omitempty"`
	Unlocks    []Unlock    `json:"unlocks,omitempty"`
	Indexation *Indexation `json:"indexation,omitempty"`
}

// Message is a ledger message as tracked by an account.
type Message struct {
	ID                  string            `json:"id"`
	Payload             Payload           `json:"payload"`
	Confirmation        ConfirmationState `json:"confirmation"`
	Incoming            bool              `json:"incoming"`
	Value               uint64            `json:"value"`
	RemainderValue      uint64            `json:"remainder_value"`
	Internal            bool              `json:"internal"`
	ReattachedMessageID string            `json:"reattached_message_id,omitempty"`
	Broadcasted         bool              `json:"broadcasted"`
	Timestamp           time.Time         `json:"timestamp"`
}

// IsPending reports whether the message still awaits inclusion.
func (m *Message) IsPending() bool {
	return !m.Confirmation.IsTerminal()
}

// Clone returns a deep copy.
func (m Message) Clone() Message {
	c := m
	if m.Payload.Essence != nil {
		e := *m.Payload.Essence
		e.Inputs = append([]Input(nil), e.Inputs...)
		e.Outputs = append([]EssenceOutput(nil), e.Outputs...)
		e.InputsMetadata = append([]InputMetadata(nil), e.InputsMetadata...)
		c.Payload.Essence = &e
	}
	c.Payload.Unlocks = append([]Unlock(nil), m.Payload.Unlocks...)
	return c
}
