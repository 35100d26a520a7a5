package service

import (
	"bytes"
	"testing"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/pkg/address"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSeed = bytes.Repeat([]byte{0x5e}, 32)

func TestHDDerivationService_Deterministic(t *testing.T) {
	a := NewHDDerivationService("atoi", 4218)
	b := NewHDDerivationService("atoi", 4218)

	addrA, err := a.Derive(testSeed, 0, domain.ChainExternal, 3)
	require.NoError(t, err)
	addrB, err := b.Derive(testSeed, 0, domain.ChainExternal, 3)
	require.NoError(t, err)

	assert.Equal(t, addrA, addrB)
	assert.Equal(t, uint32(3), addrA.Index)
	assert.False(t, addrA.Internal)
	assert.NoError(t, a.ValidateAddress(addrA.Address))
}

func TestHDDerivationService_DistinctPaths(t *testing.T) {
	svc := NewHDDerivationService("atoi", 4218)

	seen := map[string]bool{}
	for _, acct := range []uint32{0, 1} {
		for _, chain := range domain.Chains {
			for idx := uint32(0); idx < 3; idx++ {
				addr, err := svc.Derive(testSeed, acct, chain, idx)
				require.NoError(t, err)
				assert.False(t, seen[addr.Address], "address collision at %d/%s/%d", acct, chain, idx)
				seen[addr.Address] = true
			}
		}
	}
}

func TestHDDerivationService_XPubMatchesSeed(t *testing.T) {
	svc := NewHDDerivationService("atoi", 4218)

	xpub, err := svc.AccountXPub(testSeed, 1)
	require.NoError(t, err)

	for _, chain := range domain.Chains {
		fromSeed, err := svc.Derive(testSeed, 1, chain, 7)
		require.NoError(t, err)
		fromXPub, err := svc.DeriveFromXPub(xpub, chain, 7)
		require.NoError(t, err)
		assert.Equal(t, fromSeed, fromXPub)
	}
}

func TestHDDerivationService_SignVerifies(t *testing.T) {
	svc := NewHDDerivationService("atoi", 4218)
	hash := bytes.Repeat([]byte{0x11}, 32)

	addr, err := svc.Derive(testSeed, 0, domain.ChainInternal, 2)
	require.NoError(t, err)
	unlock, err := svc.Sign(testSeed, 0, domain.ChainInternal, 2, hash)
	require.NoError(t, err)

	assert.Equal(t, addr.PublicKey, unlock.PublicKey)
	assert.NoError(t, address.VerifyUnlock(addr.Address, unlock.PublicKey, unlock.Signature, hash))
}

func TestHDDerivationService_InvalidInputs(t *testing.T) {
	svc := NewHDDerivationService("atoi", 4218)

	_, err := svc.Derive([]byte("short"), 0, domain.ChainExternal, 0)
	assert.Error(t, err)

	_, err = svc.DeriveFromXPub("not-an-xpub", domain.ChainExternal, 0)
	assert.Error(t, err)

	other := NewHDDerivationService("iota", 4218)
	addr, err := other.Derive(testSeed, 0, domain.ChainExternal, 0)
	require.NoError(t, err)
	assert.Error(t, svc.ValidateAddress(addr.Address), "foreign prefix must be rejected")
}
