package domain

import "time"

// DefaultGapLimit is the number of consecutive unused addresses probed per chain.
const DefaultGapLimit = 20

// SyncOptions tunes one sync pass.
type SyncOptions struct {
	GapLimit   int     // 0 = engine default
	StartIndex *uint32 // nil = highest known index on each chain
	Force      bool    // ignore the minimum sync interval
	NoWait     bool    // fail with SyncInProgress instead of waiting for the lock
}

// BalanceDiff is the change applied to one address by a sync pass.
type BalanceDiff struct {
	Spent    uint64 `json:"spent"`
	Received uint64 `json:"received"`
}

// IsZero reports whether nothing changed.
func (d BalanceDiff) IsZero() bool {
	return d.Spent == 0 && d.Received == 0
}

// SyncReport summarises a sync pass.
type SyncReport struct {
	AccountID           string                 `json:"account_id"`
	Skipped             bool                   `json:"skipped"` // within the minimum interval
	Shared              bool                   `json:"shared"`  // result of a concurrent pass
	AddressesScanned    int                    `json:"addresses_scanned"`
	NewAddresses        []string               `json:"new_addresses,omitempty"`
	NewMessages         []string               `json:"new_messages,omitempty"`
	ConfirmationChanges []string               `json:"confirmation_changes,omitempty"`
	BalanceDiffs        map[string]BalanceDiff `json:"balance_diffs,omitempty"`
	EventsEmitted       int                    `json:"events_emitted"`
	StartedAt           time.Time              `json:"started_at"`
	FinishedAt          time.Time              `json:"finished_at"`
}
