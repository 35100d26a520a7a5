package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
)

// Argon2id defaults.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64MB
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Argon2HashService implements ports.HashService using Argon2id.
// One derivation yields both the vault encryption key and a verifier key;
// only the blake2b hash of the verifier key is stored.
type Argon2HashService struct {
	params domain.KDFParams
}

// NewArgon2HashService creates a hash service with the default parameters.
func NewArgon2HashService() *Argon2HashService {
	return NewArgon2HashServiceWithParams(domain.KDFParams{
		Time:    argon2Time,
		Memory:  argon2Memory,
		Threads: argon2Threads,
		KeyLen:  argon2KeyLen,
	})
}

// NewArgon2HashServiceWithParams overrides the cost parameters. Zero fields
// fall back to the defaults.
func NewArgon2HashServiceWithParams(p domain.KDFParams) *Argon2HashService {
	if p.Time == 0 {
		p.Time = argon2Time
	}
	if p.Memory == 0 {
		p.Memory = argon2Memory
	}
	if p.Threads == 0 {
		p.Threads = argon2Threads
	}
	if p.KeyLen == 0 {
		p.KeyLen = argon2KeyLen
	}
	return &Argon2HashService{params: p}
}

// Params returns the parameters new vault records are sealed with.
func (s *Argon2HashService) Params() domain.KDFParams {
	return s.params
}

// NewSalt returns a random salt.
func (s *Argon2HashService) NewSalt() ([]byte, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// Derive runs Argon2id with the record's own parameters.
func (s *Argon2HashService) Derive(password string, salt []byte, params domain.KDFParams) ports.DerivedKeys {
	keyLen := params.KeyLen
	if keyLen == 0 {
		keyLen = argon2KeyLen
	}
	out := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, keyLen*2)

	verifier := blake2b.Sum256(out[keyLen:])
	encKey := make([]byte, keyLen)
	copy(encKey, out[:keyLen])
	wipe(out)

	return ports.DerivedKeys{
		EncryptionKey: encKey,
		Verifier:      verifier[:],
	}
}

// VerifierMatches compares verifiers in constant time.
func (s *Argon2HashService) VerifierMatches(stored, derived []byte) bool {
	return len(stored) > 0 && subtle.ConstantTimeCompare(stored, derived) == 1
}

// wipe zeroes b in place.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
