package domain

import (
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"
)

const accountIDPrefix = "wallet-account://"

// Account is a wallet account: a BIP32 account-level key, its derived
// addresses and the messages touching them.
type Account struct {
	ID                string       `json:"id"`
	Index             uint32       `json:"index"`
	Alias             string       `json:"alias"`
	Nodes             []NodeConfig `json:"nodes"`
	ExtendedPublicKey string       `json:"extended_public_key"`
	Addresses         []Address    `json:"addresses"`
	Messages          []Message    `json:"messages"`
	CreatedAt         time.Time    `json:"created_at"`
	LastSyncedAt      time.Time    `json:"last_synced_at"`
}

// Balance holds the derived balance figures of an account.
type Balance struct {
	Total     uint64 `json:"total"`
	Available uint64 `json:"available"`
	Incoming  uint64 `json:"incoming"`
	Outgoing  uint64 `json:"outgoing"`
}

// AccountID derives a stable account id from the account extended public key.
func AccountID(xpub string) string {
	sum := blake2b.Sum256([]byte(xpub))
	return accountIDPrefix + hex.EncodeToString(sum[:20])
}

// DefaultAlias numbers accounts from 1.
func DefaultAlias(index uint32) string {
	return fmt.Sprintf("Account %d", index+1)
}

// Balance computes the account balance from unspent outputs. Available
// excludes outputs already consumed by a pending outgoing message; Incoming and
// Outgoing skip internal transfers, conflicting messages and reattachments
// that are not confirmed.
func (a *Account) Balance() Balance {
	var b Balance
	locked := a.LockedOutputs()
	for i := range a.Addresses {
		for _, o := range a.Addresses[i].Outputs {
			if o.Spent {
				continue
			}
			b.Total += o.Amount
			if _, ok := locked[o.ID]; !ok {
				b.Available += o.Amount
			}
		}
	}
	for _, m := range a.Messages {
		if m.Internal || m.Confirmation == ConfirmationConflicting {
			continue
		}
		if m.ReattachedMessageID != "" && m.Confirmation != ConfirmationConfirmed {
			continue
		}
		if m.Incoming {
			b.Incoming += m.Value
		} else {
			b.Outgoing += m.Value
		}
	}
	return b
}

// LockedOutputs returns the output ids used as inputs by pending messages.
func (a *Account) LockedOutputs() map[string]struct{} {
	locked := make(map[string]struct{})
	for _, m := range a.Messages {
		if !m.IsPending() || m.Payload.Essence == nil {
			continue
		}
		for _, in := range m.Payload.Essence.Inputs {
			locked[in.OutputID] = struct{}{}
		}
	}
	return locked
}

// ChainAddresses returns the addresses of one chain sorted by index.
func (a *Account) ChainAddresses(c Chain) []Address {
	var out []Address
	for _, addr := range a.Addresses {
		if addr.Chain() == c {
			out = append(out, addr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// NextIndex is the index the next derived address on the chain will get.
func (a *Account) NextIndex(c Chain) uint32 {
	var next uint32
	for _, addr := range a.Addresses {
		if addr.Chain() == c && addr.Index+1 > next {
			next = addr.Index + 1
		}
	}
	return next
}

// LatestAddress returns the highest external address, or nil.
func (a *Account) LatestAddress() *Address {
	var latest *Address
	for i := range a.Addresses {
		addr := &a.Addresses[i]
		if addr.Internal {
			continue
		}
		if latest == nil || addr.Index > latest.Index {
			latest = addr
		}
	}
	return latest
}

// AddressByText finds an address by its bech32 form.
func (a *Account) AddressByText(text string) *Address {
	for i := range a.Addresses {
		if a.Addresses[i].Address == text {
			return &a.Addresses[i]
		}
	}
	return nil
}

// Owns reports whether the address belongs to the account.
func (a *Account) Owns(text string) bool {
	return a.AddressByText(text) != nil
}

// Message finds a message by id.
func (a *Account) Message(id string) *Message {
	for i := range a.Messages {
		if a.Messages[i].ID == id {
			return &a.Messages[i]
		}
	}
	return nil
}

// IsEmpty reports whether the account has never seen ledger activity.
func (a *Account) IsEmpty() bool {
	if len(a.Messages) > 0 {
		return false
	}
	for i := range a.Addresses {
		if a.Addresses[i].Used() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so a sync pass can work without touching the
// committed snapshot.
func (a *Account) Clone() *Account {
	c := *a
	c.Nodes = append([]NodeConfig(nil), a.Nodes...)
	c.Addresses = make([]Address, len(a.Addresses))
	for i, addr := range a.Addresses {
		c.Addresses[i] = addr.Clone()
	}
	c.Messages = make([]Message, len(a.Messages))
	for i, m := range a.Messages {
		c.Messages[i] = m.Clone()
	}
	return &c
}
