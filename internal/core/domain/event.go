package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies a wallet event.
type EventKind string

const (
	EventBalanceChanged        EventKind = "BALANCE_CHANGED"
	EventNewTransaction        EventKind = "NEW_TRANSACTION"
	EventConfirmationChanged   EventKind = "CONFIRMATION_CHANGED"
	EventReattachmentTriggered EventKind = "REATTACHMENT_TRIGGERED"
	EventTransferProgress      EventKind = "TRANSFER_PROGRESS"
)

// Event is an entry of the append-only wallet event log.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Seq       uint64          `json:"seq"`
	Kind      EventKind       `json:"kind"`
	AccountID string          `json:"account_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent builds an unrecorded event; ID and Seq are assigned on record.
func NewEvent(kind EventKind, accountID string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s payload: %w", kind, err)
	}
	return Event{Kind: kind, AccountID: accountID, Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventFilter narrows List results. Empty fields match everything.
type EventFilter struct {
	AccountID string
	Kind      EventKind
}

// Matches reports whether e passes the filter.
func (f EventFilter) Matches(e Event) bool {
	if f.AccountID != "" && f.AccountID != e.AccountID {
		return false
	}
	if f.Kind != "" && f.Kind != e.Kind {
		return false
	}
	return true
}

// BalanceChangedPayload carries a per-address sync diff.
type BalanceChangedPayload struct {
	Address   string      `json:"address"`
	Diff      BalanceDiff `json:"diff"`
	MessageID string      `json:"message_id,omitempty"`
}

type NewTransactionPayload struct {
	MessageID string `json:"message_id"`
	Incoming  bool   `json:"incoming"`
	Internal  bool   `json:"internal"`
	Value     uint64 `json:"value"`
}

type ConfirmationChangedPayload struct {
	MessageID           string            `json:"message_id"`
	From                ConfirmationState `json:"from"`
	To                  ConfirmationState `json:"to"`
	ReattachedMessageID string            `json:"reattached_message_id,omitempty"`
}

type ReattachmentPayload struct {
	MessageID           string `json:"message_id"`
	ReattachedMessageID string `json:"reattached_message_id"`
}

// TransferStep is a stage of transfer construction.
type TransferStep string

const (
	StepSyncingAccount     TransferStep = "SYNCING_ACCOUNT"
	StepSelectingInputs    TransferStep = "SELECTING_INPUTS"
	StepRemainderAddress   TransferStep = "GENERATING_REMAINDER_ADDRESS"
	StepSigningTransaction TransferStep = "SIGNING_TRANSACTION"
	StepBroadcasting       TransferStep = "BROADCASTING"
	StepCompleted          TransferStep = "COMPLETED"
)

type TransferProgressPayload struct {
	Step      TransferStep `json:"step"`
	MessageID string       `json:"message_id,omitempty"`
}
