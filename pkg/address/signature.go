package address

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ErrBadSignature is returned when an unlock does not verify.
var ErrBadSignature = errors.New("signature does not verify")

// VerifyUnlock checks that pubKeyHex owns text and that sigHex is a valid
// DER signature of hash under that key.
func VerifyUnlock(text, pubKeyHex, sigHex string, hash []byte) error {
	pubBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return fmt.Errorf("decoding public key: %w", err)
	}
	if !MatchesPublicKey(text, pubBytes) {
		return fmt.Errorf("public key does not own %s: %w", text, ErrBadSignature)
	}
	pub, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("parsing signature: %w", err)
	}
	if !sig.Verify(hash, pub) {
		return ErrBadSignature
	}
	return nil
}
