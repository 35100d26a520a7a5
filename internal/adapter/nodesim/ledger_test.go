package nodesim

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/pkg/address"
	"ledger-wallet/pkg/apperror"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHRP = "atoi"

type testKey struct {
	priv *btcec.PrivateKey
	addr string
}

func newTestKey(t *testing.T) testKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := address.FromPublicKey(testHRP, priv.PubKey().SerializeCompressed())
	require.NoError(t, err)
	return testKey{priv: priv, addr: addr}
}

func (k testKey) unlock(t *testing.T, e *domain.Essence) domain.Unlock {
	t.Helper()
	hash, err := e.SigningHash()
	require.NoError(t, err)
	return domain.Unlock{
		PublicKey: hex.EncodeToString(k.priv.PubKey().SerializeCompressed()),
		Signature: hex.EncodeToString(ecdsa.Sign(k.priv, hash).Serialize()),
	}
}

// spendAll moves every unspent output of from to outputs.
func spendAll(t *testing.T, l *Ledger, from testKey, outputs ...domain.EssenceOutput) domain.Payload {
	t.Helper()
	e := &domain.Essence{Outputs: outputs}
	for _, o := range l.AddressOutputs(from.addr) {
		if !o.Spent {
			e.Inputs = append(e.Inputs, domain.Input{OutputID: o.ID, Address: o.Address, Amount: o.Amount})
		}
	}
	p := domain.Payload{Kind: domain.PayloadTransaction, Essence: e}
	for range e.Inputs {
		p.Unlocks = append(p.Unlocks, from.unlock(t, e))
	}
	return p
}

func newTestLedger() *Ledger {
	return NewLedger(testHRP, clock.NewTestClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestLedger_Faucet(t *testing.T) {
	l := newTestLedger()
	alice := newTestKey(t)

	id, err := l.Faucet(alice.addr, 100)
	require.NoError(t, err)

	assert.Equal(t, domain.ConfirmationConfirmed, l.State(id))
	assert.Equal(t, uint64(100), l.Balance(alice.addr))
	outs := l.AddressOutputs(alice.addr)
	require.Len(t, outs, 1)
	assert.Equal(t, id, outs[0].MessageID)

	msg, err := l.Message(id)
	require.NoError(t, err)
	assert.Equal(t, FaucetAddress, msg.Payload.Essence.Inputs[0].Address)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), msg.Timestamp)

	_, err = l.Faucet("not-an-address", 1)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	_, err = l.Faucet(alice.addr, 0)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestLedger_SubmitTransfer(t *testing.T) {
	l := newTestLedger()
	alice, bob := newTestKey(t), newTestKey(t)
	_, err := l.Faucet(alice.addr, 100)
	require.NoError(t, err)

	payload := spendAll(t, l, alice,
		domain.EssenceOutput{Address: bob.addr, Amount: 60},
		domain.EssenceOutput{Address: alice.addr, Amount: 40},
	)
	payload.Essence.InputsMetadata = []domain.InputMetadata{{OutputID: payload.Essence.Inputs[0].OutputID}}

	id, err := l.Submit(payload)
	require.NoError(t, err)

	assert.Equal(t, domain.ConfirmationPending, l.State(id))
	assert.Equal(t, uint64(60), l.Balance(bob.addr))
	assert.Equal(t, uint64(40), l.Balance(alice.addr))

	spent := l.AddressOutputs(alice.addr)[0]
	assert.True(t, spent.Spent)
	assert.Equal(t, id, spent.SpentBy)

	msg, err := l.Message(id)
	require.NoError(t, err)
	assert.Empty(t, msg.Payload.Essence.InputsMetadata, "nodes never store wallet metadata")
	assert.Len(t, payload.Essence.InputsMetadata, 1, "caller payload is untouched")
}

func TestLedger_SubmitRejects(t *testing.T) {
	l := newTestLedger()
	alice, bob := newTestKey(t), newTestKey(t)
	_, err := l.Faucet(alice.addr, 100)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(p *domain.Payload)
		want   error
	}{
		{"unbalanced", func(p *domain.Payload) { p.Essence.Outputs[0].Amount = 99 }, ErrInvalidPayload},
		{"missing unlock", func(p *domain.Payload) { p.Unlocks = nil }, ErrInvalidPayload},
		{"unknown input", func(p *domain.Payload) { p.Essence.Inputs[0].OutputID = "missing:0" }, ErrOutputNotFound},
		{"wrong amount", func(p *domain.Payload) { p.Essence.Inputs[0].Amount = 1 }, ErrInvalidPayload},
		{"bad output address", func(p *domain.Payload) { p.Essence.Outputs[0].Address = "foo" }, ErrInvalidPayload},
		{"zero output", func(p *domain.Payload) {
			p.Essence.Outputs = append(p.Essence.Outputs, domain.EssenceOutput{Address: bob.addr})
		}, ErrInvalidPayload},
		{"bad signature", func(p *domain.Payload) { p.Unlocks[0] = bob.unlock(t, p.Essence) }, ErrInvalidPayload},
		{"unsupported kind", func(p *domain.Payload) { p.Kind = domain.PayloadOther }, ErrInvalidPayload},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := spendAll(t, l, alice, domain.EssenceOutput{Address: bob.addr, Amount: 100})
			tc.mutate(&p)
			_, err := l.Submit(p)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, uint64(100), l.Balance(alice.addr), "rejected payloads change nothing")
}

func TestLedger_DoubleSpend(t *testing.T) {
	l := newTestLedger()
	alice, bob, carol := newTestKey(t), newTestKey(t), newTestKey(t)
	_, err := l.Faucet(alice.addr, 100)
	require.NoError(t, err)

	first := spendAll(t, l, alice, domain.EssenceOutput{Address: bob.addr, Amount: 100})
	second := spendAll(t, l, alice, domain.EssenceOutput{Address: carol.addr, Amount: 100})

	_, err = l.Submit(first)
	require.NoError(t, err)
	_, err = l.Submit(second)
	assert.ErrorIs(t, err, ErrDoubleSpend)
}

func TestLedger_ReattachAndConfirm(t *testing.T) {
	l := newTestLedger()
	alice, bob := newTestKey(t), newTestKey(t)
	_, err := l.Faucet(alice.addr, 100)
	require.NoError(t, err)

	payload := spendAll(t, l, alice, domain.EssenceOutput{Address: bob.addr, Amount: 100})
	original, err := l.Submit(payload)
	require.NoError(t, err)
	reattached, err := l.Submit(payload)
	require.NoError(t, err)

	assert.NotEqual(t, original, reattached)
	assert.Len(t, l.AddressOutputs(bob.addr), 1, "reattachment shares outputs")

	require.NoError(t, l.SetState(reattached, domain.ConfirmationConfirmed))
	assert.Equal(t, domain.ConfirmationConfirmed, l.State(reattached))
	assert.Equal(t, domain.ConfirmationConflicting, l.State(original))
}

func TestLedger_PromoteAndIndexation(t *testing.T) {
	l := newTestLedger()
	alice := newTestKey(t)
	id, err := l.Faucet(alice.addr, 5)
	require.NoError(t, err)

	promo, err := l.Promote(id)
	require.NoError(t, err)
	msg, err := l.Message(promo)
	require.NoError(t, err)
	assert.Equal(t, domain.PayloadIndexation, msg.Payload.Kind)
	assert.Equal(t, []byte(id), msg.Payload.Indexation.Data)

	_, err = l.Promote("missing")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = l.Submit(domain.Payload{Kind: domain.PayloadIndexation, Indexation: &domain.Indexation{}})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	assert.Equal(t, []string{id, promo}, l.MessageIDs())
}

func TestLedger_SetState(t *testing.T) {
	l := newTestLedger()
	alice := newTestKey(t)
	id, err := l.Faucet(alice.addr, 5)
	require.NoError(t, err)

	assert.ErrorIs(t, l.SetState(id, "FINAL"), ErrInvalidState)
	assert.ErrorIs(t, l.SetState("missing", domain.ConfirmationPending), ErrMessageNotFound)
	require.NoError(t, l.SetState(id, domain.ConfirmationUnknown))
	assert.Equal(t, domain.ConfirmationUnknown, l.State(id))
	assert.Equal(t, domain.ConfirmationUnknown, l.State("missing"))
}

func TestLocalClient(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	alice := newTestKey(t)
	id, err := l.Faucet(alice.addr, 10)
	require.NoError(t, err)

	c := NewLocalClient(l)
	outs, err := c.FetchAddressOutputs(ctx, alice.addr)
	require.NoError(t, err)
	assert.Len(t, outs, 1)
	assert.Equal(t, 1, c.Queried(alice.addr))

	missing, err := c.FetchMessage(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
	out, err := c.FetchOutput(ctx, "missing:0")
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = c.PromoteMessage(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound("message"))
	_, err = c.SubmitMessage(ctx, domain.Payload{Kind: domain.PayloadOther})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransfer(""))

	c.SetOffline(true)
	_, err = c.InclusionState(ctx, id)
	assert.ErrorIs(t, err, apperror.ErrNodeUnreachable(nil))
	assert.Equal(t, 1, c.Calls("InclusionState"))

	c.SetOffline(false)
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, c.Health(cancelled), context.Canceled)
}

func TestLocalFactory(t *testing.T) {
	f := NewLocalFactory(NewLocalClient(newTestLedger()))

	_, err := f.Client(domain.NodeConfig{URL: "ftp://x"})
	assert.ErrorIs(t, err, apperror.ErrNodeConfigInvalid(nil))
	_, err = f.Pool([]domain.NodeConfig{{URL: "http://a", Disabled: true}})
	assert.ErrorIs(t, err, apperror.ErrNodeConfigInvalid(nil))

	c, err := f.Pool([]domain.NodeConfig{{URL: "http://a"}})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
