package domain

// Chain selects the external (receiving) or internal (change) branch of an account.
type Chain uint32

const (
	ChainExternal Chain = 0
	ChainInternal Chain = 1
)

// Chains lists both branches in derivation order.
var Chains = []Chain{ChainExternal, ChainInternal}

func (c Chain) String() string {
	if c == ChainInternal {
		return "internal"
	}
	return "external"
}

// ChainOf maps the internal flag to a chain.
func ChainOf(internal bool) Chain {
	if internal {
		return ChainInternal
	}
	return ChainExternal
}

// Output is a ledger output observed at one of the account's addresses.
type Output struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	Address   string `json:"address"`
	Amount    uint64 `json:"amount"`
	Spent     bool   `json:"spent"`
	SpentBy   string `json:"spent_by,omitempty"` // id of the spending message
}

// Address is a derived account address with the outputs known at it.
type Address struct {
	Index     uint32   `json:"index"`
	Internal  bool     `json:"internal"`
	Address   string   `json:"address"`
	PublicKey string   `json:"public_key"` // hex, compressed secp256k1
	Outputs   []Output `json:"outputs"`
}

// Chain returns the branch the address was derived on.
func (a *Address) Chain() Chain {
	return ChainOf(a.Internal)
}

// Balance is the sum of unspent outputs. It is always derived, never stored.
func (a *Address) Balance() uint64 {
	var total uint64
	for _, o := range a.Outputs {
		if !o.Spent {
			total += o.Amount
		}
	}
	return total
}

// Used reports whether the ledger has ever sent funds to this address.
func (a *Address) Used() bool {
	return len(a.Outputs) > 0
}

// Output returns the output with the given id, or nil.
func (a *Address) Output(id string) *Output {
	for i := range a.Outputs {
		if a.Outputs[i].ID == id {
			return &a.Outputs[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (a Address) Clone() Address {
	c := a
	c.Outputs = append([]Output(nil), a.Outputs...)
	return c
}
