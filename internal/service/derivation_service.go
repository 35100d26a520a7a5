package service

import (
	"encoding/hex"
	"fmt"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/pkg/address"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

const bip44Purpose = 44

// HDDerivationService implements ports.AddressDeriver over BIP32 keys on the
// path m/44'/coin'/account'/chain/index.
type HDDerivationService struct {
	hrp      string
	coinType uint32
	net      *chaincfg.Params
}

// NewHDDerivationService creates a deriver for the given bech32 prefix and
// BIP44 coin type.
func NewHDDerivationService(hrp string, coinType uint32) *HDDerivationService {
	return &HDDerivationService{
		hrp:      hrp,
		coinType: coinType,
		net:      &chaincfg.MainNetParams,
	}
}

// HRP returns the bech32 prefix of derived addresses.
func (s *HDDerivationService) HRP() string {
	return s.hrp
}

// AccountXPub returns the neutered account-level extended key. Discovery
// derives from it so sync never needs the seed.
func (s *HDDerivationService) AccountXPub(seed []byte, accountIndex uint32) (string, error) {
	acct, err := s.accountKey(seed, accountIndex)
	if err != nil {
		return "", err
	}
	defer acct.Zero()

	pub, err := acct.Neuter()
	if err != nil {
		return "", fmt.Errorf("neutering account key: %w", err)
	}
	return pub.String(), nil
}

// Derive derives an address from the seed.
func (s *HDDerivationService) Derive(seed []byte, accountIndex uint32, chain domain.Chain, index uint32) (domain.Address, error) {
	acct, err := s.accountKey(seed, accountIndex)
	if err != nil {
		return domain.Address{}, err
	}
	defer acct.Zero()
	return s.addressAt(acct, chain, index)
}

// DeriveFromXPub derives an address from an account extended public key.
func (s *HDDerivationService) DeriveFromXPub(xpub string, chain domain.Chain, index uint32) (domain.Address, error) {
	acct, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return domain.Address{}, fmt.Errorf("parsing account xpub: %w", err)
	}
	return s.addressAt(acct, chain, index)
}

// Sign signs hash with the private key of the given address.
func (s *HDDerivationService) Sign(seed []byte, accountIndex uint32, chain domain.Chain, index uint32, hash []byte) (domain.Unlock, error) {
	acct, err := s.accountKey(seed, accountIndex)
	if err != nil {
		return domain.Unlock{}, err
	}
	defer acct.Zero()

	child, err := childKey(acct, chain, index)
	if err != nil {
		return domain.Unlock{}, err
	}
	defer child.Zero()

	priv, err := child.ECPrivKey()
	if err != nil {
		return domain.Unlock{}, fmt.Errorf("extracting private key: %w", err)
	}
	defer priv.Zero()

	sig := ecdsa.Sign(priv, hash)
	return domain.Unlock{
		PublicKey: hex.EncodeToString(priv.PubKey().SerializeCompressed()),
		Signature: hex.EncodeToString(sig.Serialize()),
	}, nil
}

// ValidateAddress checks bech32 form and prefix.
func (s *HDDerivationService) ValidateAddress(text string) error {
	return address.Validate(s.hrp, text)
}

func (s *HDDerivationService) accountKey(seed []byte, accountIndex uint32) (*hdkeychain.ExtendedKey, error) {
	master, err := hdkeychain.NewMaster(seed, s.net)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}
	defer master.Zero()

	purpose, err := master.Derive(hdkeychain.HardenedKeyStart + bip44Purpose)
	if err != nil {
		return nil, fmt.Errorf("deriving purpose: %w", err)
	}
	defer purpose.Zero()

	coin, err := purpose.Derive(hdkeychain.HardenedKeyStart + s.coinType)
	if err != nil {
		return nil, fmt.Errorf("deriving coin type: %w", err)
	}
	defer coin.Zero()

	acct, err := coin.Derive(hdkeychain.HardenedKeyStart + accountIndex)
	if err != nil {
		return nil, fmt.Errorf("deriving account %d: %w", accountIndex, err)
	}
	return acct, nil
}

func childKey(acct *hdkeychain.ExtendedKey, chain domain.Chain, index uint32) (*hdkeychain.ExtendedKey, error) {
	branch, err := acct.Derive(uint32(chain))
	if err != nil {
		return nil, fmt.Errorf("deriving %s chain: %w", chain, err)
	}
	child, err := branch.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("deriving index %d: %w", index, err)
	}
	return child, nil
}

func (s *HDDerivationService) addressAt(acct *hdkeychain.ExtendedKey, chain domain.Chain, index uint32) (domain.Address, error) {
	child, err := childKey(acct, chain, index)
	if err != nil {
		return domain.Address{}, err
	}
	pub, err := child.ECPubKey()
	if err != nil {
		return domain.Address{}, fmt.Errorf("extracting public key: %w", err)
	}
	compressed := pub.SerializeCompressed()

	text, err := address.FromPublicKey(s.hrp, compressed)
	if err != nil {
		return domain.Address{}, err
	}
	return domain.Address{
		Index:     index,
		Internal:  chain == domain.ChainInternal,
		Address:   text,
		PublicKey: hex.EncodeToString(compressed),
	}, nil
}
