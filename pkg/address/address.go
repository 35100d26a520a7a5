// Package address encodes ledger addresses as bech32 strings.
//
// An address is the bech32 encoding of a one byte kind followed by the
// blake2b-256 hash of a compressed secp256k1 public key.
package address

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

// KindKeyHash marks a public key hash address.
const KindKeyHash byte = 0x00

var (
	ErrWrongHRP     = errors.New("address has a different network prefix")
	ErrInvalidKind  = errors.New("unsupported address kind")
	ErrInvalidBytes = errors.New("address has an invalid length")
)

// FromPublicKey returns the bech32 address of a compressed public key.
func FromPublicKey(hrp string, pubKey []byte) (string, error) {
	sum := blake2b.Sum256(pubKey)
	data := append([]byte{KindKeyHash}, sum[:]...)
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("converting address bits: %w", err)
	}
	return bech32.Encode(hrp, conv)
}

// Decode parses text and returns its prefix and key hash.
func Decode(text string) (string, []byte, error) {
	hrp, data, err := bech32.Decode(text)
	if err != nil {
		return "", nil, fmt.Errorf("decoding bech32: %w", err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("converting address bits: %w", err)
	}
	if len(raw) != 1+blake2b.Size256 {
		return "", nil, ErrInvalidBytes
	}
	if raw[0] != KindKeyHash {
		return "", nil, ErrInvalidKind
	}
	return hrp, raw[1:], nil
}

// Validate checks that text is a well-formed address for hrp.
func Validate(hrp, text string) error {
	got, _, err := Decode(text)
	if err != nil {
		return err
	}
	if got != hrp {
		return ErrWrongHRP
	}
	return nil
}

// MatchesPublicKey reports whether text is the address of pubKey.
func MatchesPublicKey(text string, pubKey []byte) bool {
	_, hash, err := Decode(text)
	if err != nil {
		return false
	}
	sum := blake2b.Sum256(pubKey)
	return bytes.Equal(hash, sum[:])
}
