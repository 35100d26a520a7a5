package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmationState_Advance(t *testing.T) {
	tests := []struct {
		name     string
		current  ConfirmationState
		reported ConfirmationState
		want     ConfirmationState
		changed  bool
	}{
		{"pending to confirmed", ConfirmationPending, ConfirmationConfirmed, ConfirmationConfirmed, true},
		{"pending to conflicting", ConfirmationPending, ConfirmationConflicting, ConfirmationConflicting, true},
		{"pending stays on unknown", ConfirmationPending, ConfirmationUnknown, ConfirmationPending, false},
		{"pending stays on pending", ConfirmationPending, ConfirmationPending, ConfirmationPending, false},
		{"confirmed ignores unknown", ConfirmationConfirmed, ConfirmationUnknown, ConfirmationConfirmed, false},
		{"confirmed ignores pending", ConfirmationConfirmed, ConfirmationPending, ConfirmationConfirmed, false},
		{"conflicting ignores confirmed", ConfirmationConflicting, ConfirmationConfirmed, ConfirmationConflicting, false},
		{"unknown to confirmed", ConfirmationUnknown, ConfirmationConfirmed, ConfirmationConfirmed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := tt.current.Advance(tt.reported)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestAddress_Balance(t *testing.T) {
	addr := Address{Outputs: []Output{
		{ID: "o1", Amount: 100},
		{ID: "o2", Amount: 50, Spent: true},
		{ID: "o3", Amount: 25},
	}}

	assert.Equal(t, uint64(125), addr.Balance())
	assert.True(t, addr.Used())
	assert.NotNil(t, addr.Output("o2"))
	assert.Nil(t, addr.Output("missing"))
}

func testAccount() *Account {
	return &Account{
		ID: "acc",
		Addresses: []Address{
			{Index: 0, Address: "ext0", Outputs: []Output{{ID: "a", Amount: 1000}}},
			{Index: 1, Address: "ext1", Outputs: []Output{{ID: "b", Amount: 500, Spent: true, SpentBy: "m2"}}},
			{Index: 0, Internal: true, Address: "int0", Outputs: []Output{{ID: "c", Amount: 300}}},
			{Index: 2, Address: "ext2"},
		},
		Messages: []Message{
			{ID: "m1", Incoming: true, Value: 1000, Confirmation: ConfirmationConfirmed},
			{ID: "m2", Value: 200, RemainderValue: 300, Confirmation: ConfirmationConfirmed},
			{ID: "m3", Internal: true, Value: 400, Confirmation: ConfirmationConfirmed},
			{ID: "m4", Incoming: true, Value: 900, Confirmation: ConfirmationConflicting},
			{ID: "m5", Value: 100, Confirmation: ConfirmationPending, Payload: Payload{
				Kind:    PayloadTransaction,
				Essence: &Essence{Inputs: []Input{{OutputID: "c", Address: "int0", Amount: 300}}},
			}},
		},
	}
}

func TestAccount_Balance(t *testing.T) {
	acc := testAccount()

	b := acc.Balance()
	assert.Equal(t, uint64(1300), b.Total)
	assert.Equal(t, uint64(1000), b.Available, "output locked by pending message is unavailable")
	assert.Equal(t, uint64(1000), b.Incoming, "internal and conflicting messages are excluded")
	assert.Equal(t, uint64(300), b.Outgoing)
}

func TestAccount_BalanceCountsTransferOnce(t *testing.T) {
	acc := testAccount()
	acc.Messages = append(acc.Messages, Message{
		ID: "m6", Value: 100, Confirmation: ConfirmationPending, ReattachedMessageID: "m5",
	})
	assert.Equal(t, uint64(300), acc.Balance().Outgoing, "pending reattachment is not counted twice")

	acc.Messages[4].Confirmation = ConfirmationConflicting
	acc.Messages[5].Confirmation = ConfirmationConfirmed
	assert.Equal(t, uint64(300), acc.Balance().Outgoing)
}

func TestAccount_BalanceEqualsUnspentSum(t *testing.T) {
	acc := testAccount()

	var sum uint64
	for i := range acc.Addresses {
		sum += acc.Addresses[i].Balance()
	}
	assert.Equal(t, sum, acc.Balance().Total)
}

func TestAccount_AddressHelpers(t *testing.T) {
	acc := testAccount()

	ext := acc.ChainAddresses(ChainExternal)
	require.Len(t, ext, 3)
	assert.Equal(t, []uint32{0, 1, 2}, []uint32{ext[0].Index, ext[1].Index, ext[2].Index})
	assert.Equal(t, uint32(3), acc.NextIndex(ChainExternal))
	assert.Equal(t, uint32(1), acc.NextIndex(ChainInternal))
	assert.Equal(t, "ext2", acc.LatestAddress().Address)
	assert.True(t, acc.Owns("int0"))
	assert.False(t, acc.Owns("elsewhere"))
	assert.NotNil(t, acc.Message("m3"))
	assert.False(t, acc.IsEmpty())
	assert.True(t, (&Account{Addresses: []Address{{Address: "x"}}}).IsEmpty())
}

func TestAccount_CloneIsDeep(t *testing.T) {
	acc := testAccount()
	clone := acc.Clone()

	clone.Addresses[0].Outputs[0].Spent = true
	clone.Messages[4].Payload.Essence.Inputs[0].OutputID = "changed"

	assert.False(t, acc.Addresses[0].Outputs[0].Spent)
	assert.Equal(t, "c", acc.Messages[4].Payload.Essence.Inputs[0].OutputID)
}

func TestAccountID_StableAndPrefixed(t *testing.T) {
	a := AccountID("xpub-one")
	b := AccountID("xpub-one")
	c := AccountID("xpub-two")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "wallet-account://"))
}

func TestDefaultAlias_StartsAtOne(t *testing.T) {
	assert.Equal(t, "Account 1", DefaultAlias(0))
	assert.Equal(t, "Account 3", DefaultAlias(2))
}

func TestEssence_SigningHashIgnoresMetadata(t *testing.T) {
	e := Essence{
		Inputs:  []Input{{OutputID: "o1", Address: "a", Amount: 10}},
		Outputs: []EssenceOutput{{Address: "b", Amount: 10}},
	}
	h1, err := e.SigningHash()
	require.NoError(t, err)

	e.InputsMetadata = []InputMetadata{{OutputID: "o1", AddressIndex: 3}}
	h2, err := e.SigningHash()
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)
	assert.Equal(t, uint64(10), e.Total())
}

func TestEvent_FilterAndDecode(t *testing.T) {
	ev, err := NewEvent(EventNewTransaction, "acc-1", NewTransactionPayload{MessageID: "m1", Value: 5})
	require.NoError(t, err)

	assert.True(t, EventFilter{}.Matches(ev))
	assert.True(t, EventFilter{AccountID: "acc-1", Kind: EventNewTransaction}.Matches(ev))
	assert.False(t, EventFilter{AccountID: "acc-2"}.Matches(ev))
	assert.False(t, EventFilter{Kind: EventBalanceChanged}.Matches(ev))

	var p NewTransactionPayload
	require.NoError(t, ev.Decode(&p))
	assert.Equal(t, "m1", p.MessageID)
	assert.Equal(t, uint64(5), p.Value)
}

func TestNodeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		node    NodeConfig
		wantErr bool
	}{
		{"valid http", NodeConfig{URL: "http://localhost:14265"}, false},
		{"valid https with auth", NodeConfig{URL: "https://node.example", Auth: &NodeAuth{Username: "u", Password: "p"}}, false},
		{"empty url", NodeConfig{}, true},
		{"bad scheme", NodeConfig{URL: "ws://node"}, true},
		{"auth without username", NodeConfig{URL: "http://node", Auth: &NodeAuth{Password: "p"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnabledNodes(t *testing.T) {
	nodes := []NodeConfig{{URL: "http://a"}, {URL: "http://b", Disabled: true}, {URL: "http://c"}}

	enabled := EnabledNodes(nodes)
	require.Len(t, enabled, 2)
	assert.Equal(t, "http://a", enabled[0].URL)
	assert.Equal(t, "http://c", enabled[1].URL)
}

func TestChain(t *testing.T) {
	assert.Equal(t, ChainInternal, ChainOf(true))
	assert.Equal(t, ChainExternal, ChainOf(false))
	assert.Equal(t, "internal", ChainInternal.String())
	assert.Equal(t, "external", ChainExternal.String())
}
