package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/apperror"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/rs/zerolog"
	"github.com/tyler-smith/go-bip39"
)

const (
	minSeedLen = 16
	maxSeedLen = 64

	mnemonicEntropyBits = 256
)

// SeedScope is a handle on a decrypted seed. The seed is scrubbed when the
// scope is released or when the vault locks, whichever comes first.
type SeedScope struct {
	vault *VaultService

	mu   sync.Mutex
	seed []byte
}

// Seed returns the seed, or nil once the scope has been scrubbed. Callers
// must not retain the slice past Release.
func (s *SeedScope) Seed() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed
}

// Release scrubs the seed. Safe to call more than once.
func (s *SeedScope) Release() {
	s.scrub()
	s.vault.forget(s)
}

func (s *SeedScope) scrub() {
	s.mu.Lock()
	defer s.mu.Unlock()
	wipe(s.seed)
	s.seed = nil
}

// VaultService guards the encrypted seed. Unlock, Lock and ChangePassword
// are serialized by a single mutex; a failed operation leaves the state as it
// was.
type VaultService struct {
	repo     ports.VaultRepository
	restorer ports.RestoreWriter
	hasher   ports.HashService
	enc      ports.EncryptionService
	clock    clock.Clock
	log      zerolog.Logger

	unlockTTL time.Duration
	compress  bool

	mu          sync.Mutex
	loaded      bool
	record      *domain.VaultRecord
	key         []byte
	unlockUntil time.Time
	scopes      map[*SeedScope]struct{}
}

// VaultOptions tunes the vault.
type VaultOptions struct {
	// UnlockTTL relocks the vault after this long. Zero keeps it unlocked
	// until Lock.
	UnlockTTL time.Duration
	// Compress xz-compresses snapshot payloads.
	Compress bool
}

// NewVaultService creates a vault backed by repo.
func NewVaultService(
	repo ports.VaultRepository,
	restorer ports.RestoreWriter,
	hasher ports.HashService,
	enc ports.EncryptionService,
	clk clock.Clock,
	opts VaultOptions,
	log zerolog.Logger,
) *VaultService {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &VaultService{
		repo:      repo,
		restorer:  restorer,
		hasher:    hasher,
		enc:       enc,
		clock:     clk,
		log:       log.With().Str("component", "vault").Logger(),
		unlockTTL: opts.UnlockTTL,
		compress:  opts.Compress,
		scopes:    make(map[*SeedScope]struct{}),
	}
}

// State reports whether the vault is empty, locked or unlocked.
func (v *VaultService) State(ctx context.Context) (domain.VaultState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, err := v.loadLocked(ctx)
	if err != nil {
		return "", err
	}
	switch {
	case rec == nil:
		return domain.VaultEmpty, nil
	case v.unlockedLocked():
		return domain.VaultUnlocked, nil
	default:
		return domain.VaultLocked, nil
	}
}

// SetSeed seals a new seed under password. It refuses to overwrite an
// existing seed. The vault stays locked afterwards.
func (v *VaultService) SetSeed(ctx context.Context, seed []byte, password string) error {
	if len(seed) < minSeedLen || len(seed) > maxSeedLen {
		return apperror.Validation(fmt.Sprintf("seed must be between %d and %d bytes", minSeedLen, maxSeedLen))
	}
	if password == "" {
		return apperror.Validation("password must not be empty")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	rec, err := v.loadLocked(ctx)
	if err != nil {
		return err
	}
	if rec != nil {
		return apperror.ErrAlreadyInitialized()
	}

	rec, err = v.seal(seed, password, v.clock.Now().UTC())
	if err != nil {
		return err
	}
	if err := v.repo.SaveRecord(ctx, rec); err != nil {
		return apperror.ErrIoFailure(fmt.Errorf("saving vault record: %w", err))
	}
	v.record = rec
	v.log.Info().Msg("vault initialized")
	return nil
}

// GenerateMnemonic returns a fresh 24-word BIP39 mnemonic.
func (v *VaultService) GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("generating entropy: %w", err))
	}
	defer wipe(entropy)
	m, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("encoding mnemonic: %w", err))
	}
	return m, nil
}

// SetMnemonic derives the seed from a BIP39 mnemonic and stores it.
func (v *VaultService) SetMnemonic(ctx context.Context, mnemonic, password string) error {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return apperror.Validation("invalid mnemonic")
	}
	defer wipe(seed)
	return v.SetSeed(ctx, seed, password)
}

// Unlock verifies password and opens the vault for the configured TTL. The
// returned scope must be released by the caller.
func (v *VaultService) Unlock(ctx context.Context, password string) (*SeedScope, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, err := v.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperror.ErrVaultEmpty()
	}

	key, seed, err := v.open(rec, password)
	if err != nil {
		v.log.Warn().Str("code", apperror.CodeOf(err)).Msg("vault unlock failed")
		return nil, err
	}

	wipe(v.key)
	v.key = key
	v.unlockUntil = time.Time{}
	if v.unlockTTL > 0 {
		v.unlockUntil = v.clock.Now().Add(v.unlockTTL)
	}

	scope := &SeedScope{vault: v, seed: seed}
	v.scopes[scope] = struct{}{}
	v.log.Info().Msg("vault unlocked")
	return scope, nil
}

// Lock scrubs the key and every outstanding seed scope. Idempotent.
func (v *VaultService) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key != nil {
		v.log.Info().Msg("vault locked")
	}
	v.lockLocked()
}

// IsUnlocked reports whether the vault is currently unlocked.
func (v *VaultService) IsUnlocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unlockedLocked()
}

// WithSeed runs fn with a temporary copy of the seed. The vault must be
// unlocked; the copy is scrubbed when fn returns.
func (v *VaultService) WithSeed(ctx context.Context, fn func(seed []byte) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.unlockedLocked() {
		return apperror.ErrVaultLocked()
	}
	rec, err := v.loadLocked(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperror.ErrVaultEmpty()
	}
	seed, err := v.enc.Decrypt(v.key, rec.EncryptedSeed)
	if err != nil {
		return apperror.ErrVaultCorrupted(err)
	}
	defer wipe(seed)
	return fn(seed)
}

// ChangePassword re-seals the seed under a new password. On any failure the
// stored record and the lock state are unchanged.
func (v *VaultService) ChangePassword(ctx context.Context, current, next string) error {
	if next == "" {
		return apperror.Validation("password must not be empty")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	rec, err := v.loadLocked(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperror.ErrVaultEmpty()
	}

	oldKey, seed, err := v.open(rec, current)
	if err != nil {
		return err
	}
	wipe(oldKey)
	defer wipe(seed)

	updated, err := v.seal(seed, next, rec.CreatedAt)
	if err != nil {
		return err
	}
	if err := v.repo.SaveRecord(ctx, updated); err != nil {
		return apperror.ErrIoFailure(fmt.Errorf("saving vault record: %w", err))
	}
	v.record = updated

	if v.unlockedLocked() {
		newKey := v.hasher.Derive(next, updated.Salt, updated.KDF)
		wipe(v.key)
		v.key = newKey.EncryptionKey
	}
	v.log.Info().Msg("vault password changed")
	return nil
}

// Delete destroys the seed after verifying password.
func (v *VaultService) Delete(ctx context.Context, password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, err := v.loadLocked(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperror.ErrVaultEmpty()
	}
	key, seed, err := v.open(rec, password)
	if err != nil {
		return err
	}
	wipe(key)
	wipe(seed)

	if err := v.repo.DeleteRecord(ctx); err != nil {
		return apperror.ErrIoFailure(fmt.Errorf("deleting vault record: %w", err))
	}
	v.lockLocked()
	v.record = nil
	v.log.Warn().Msg("vault deleted")
	return nil
}

// ExportSnapshot writes the encrypted vault record and payload to
// destination. The vault must be unlocked. A directory destination gets a
// timestamped file name. The final path is returned.
func (v *VaultService) ExportSnapshot(ctx context.Context, destination string, payload domain.SnapshotPayload) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.unlockedLocked() {
		return "", apperror.ErrVaultLocked()
	}
	rec, err := v.loadLocked(ctx)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", apperror.ErrVaultEmpty()
	}
	return v.writeSnapshot(rec, v.key, destination, payload)
}

// Backup is ExportSnapshot authorized by password instead of the unlock
// state. The lock state is not changed.
func (v *VaultService) Backup(ctx context.Context, destination, password string, payload domain.SnapshotPayload) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, err := v.loadLocked(ctx)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", apperror.ErrVaultEmpty()
	}
	key, seed, err := v.open(rec, password)
	if err != nil {
		return "", err
	}
	wipe(seed)
	defer wipe(key)
	return v.writeSnapshot(rec, key, destination, payload)
}

// ImportSnapshot reads a snapshot, verifies password against the vault
// record it carries and hands the decrypted payload to the restore writer.
// An initialized vault is never overwritten. The vault stays locked.
func (v *VaultService) ImportSnapshot(ctx context.Context, source, password string) (*domain.SnapshotPayload, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	existing, err := v.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyInitialized()
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, apperror.ErrIoFailure(fmt.Errorf("reading snapshot: %w", err))
	}
	snap, err := parseSnapshot(data)
	if err != nil {
		return nil, apperror.ErrVaultCorrupted(err)
	}

	key, seed, err := v.open(&snap.Vault, password)
	if err != nil {
		return nil, err
	}
	wipe(seed)
	defer wipe(key)

	plain, err := v.enc.Decrypt(key, snap.Payload)
	if err != nil {
		return nil, apperror.ErrVaultCorrupted(fmt.Errorf("decrypting snapshot payload: %w", err))
	}
	payload, err := decodeSnapshotPayload(plain, snap.Compression)
	if err != nil {
		return nil, apperror.ErrVaultCorrupted(err)
	}

	accounts := make([]*domain.Account, len(payload.Accounts))
	for i := range payload.Accounts {
		accounts[i] = &payload.Accounts[i]
	}
	rec := snap.Vault
	if err := v.restorer.Restore(ctx, &rec, accounts); err != nil {
		return nil, apperror.ErrIoFailure(fmt.Errorf("restoring snapshot: %w", err))
	}
	v.record = &rec
	v.loaded = true
	v.log.Info().Int("accounts", len(accounts)).Str("source", source).Msg("snapshot imported")
	return payload, nil
}

func (v *VaultService) writeSnapshot(rec *domain.VaultRecord, key []byte, destination string, payload domain.SnapshotPayload) (string, error) {
	data, compression, err := encodeSnapshotPayload(payload, v.compress)
	if err != nil {
		return "", apperror.InternalError(err)
	}
	sealed, err := v.enc.Encrypt(key, data)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("encrypting snapshot payload: %w", err))
	}

	now := v.clock.Now().UTC()
	snap := domain.Snapshot{
		Format:      domain.SnapshotFormat,
		Version:     domain.SnapshotVersion,
		CreatedAt:   now,
		Vault:       *rec,
		Compression: compression,
		Payload:     sealed,
	}
	raw, err := marshalSnapshot(snap)
	if err != nil {
		return "", apperror.InternalError(err)
	}

	path := resolveSnapshotPath(destination, now)
	if err := writeFileAtomic(path, raw); err != nil {
		return "", apperror.ErrIoFailure(err)
	}
	v.log.Info().Str("path", path).Int("accounts", len(payload.Accounts)).Msg("snapshot written")
	return path, nil
}

// open derives the key for password and decrypts the seed. A verifier
// mismatch is a wrong password; a decryption failure after a match means the
// record itself is damaged.
func (v *VaultService) open(rec *domain.VaultRecord, password string) ([]byte, []byte, error) {
	if rec.Version != domain.VaultRecordVersion || len(rec.Salt) == 0 || len(rec.Verifier) == 0 || len(rec.EncryptedSeed) == 0 {
		return nil, nil, apperror.ErrVaultCorrupted(errors.New("malformed vault record"))
	}

	derived := v.hasher.Derive(password, rec.Salt, rec.KDF)
	if !v.hasher.VerifierMatches(rec.Verifier, derived.Verifier) {
		wipe(derived.EncryptionKey)
		return nil, nil, apperror.ErrInvalidCredentials()
	}
	seed, err := v.enc.Decrypt(derived.EncryptionKey, rec.EncryptedSeed)
	if err != nil {
		wipe(derived.EncryptionKey)
		return nil, nil, apperror.ErrVaultCorrupted(err)
	}
	return derived.EncryptionKey, seed, nil
}

func (v *VaultService) seal(seed []byte, password string, createdAt time.Time) (*domain.VaultRecord, error) {
	salt, err := v.hasher.NewSalt()
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	params := v.hasher.Params()
	derived := v.hasher.Derive(password, salt, params)
	defer wipe(derived.EncryptionKey)

	encSeed, err := v.enc.Encrypt(derived.EncryptionKey, seed)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encrypting seed: %w", err))
	}
	return &domain.VaultRecord{
		Version:       domain.VaultRecordVersion,
		KDF:           params,
		Salt:          salt,
		Verifier:      derived.Verifier,
		EncryptedSeed: encSeed,
		CreatedAt:     createdAt,
	}, nil
}

func (v *VaultService) loadLocked(ctx context.Context) (*domain.VaultRecord, error) {
	if v.loaded {
		return v.record, nil
	}
	rec, err := v.repo.LoadRecord(ctx)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.ErrIoFailure(fmt.Errorf("loading vault record: %w", err))
	}
	v.record = rec
	v.loaded = true
	return rec, nil
}

// unlockedLocked applies the TTL lazily.
func (v *VaultService) unlockedLocked() bool {
	if v.key == nil {
		return false
	}
	if !v.unlockUntil.IsZero() && !v.clock.Now().Before(v.unlockUntil) {
		v.log.Debug().Msg("vault unlock window expired")
		v.lockLocked()
		return false
	}
	return true
}

func (v *VaultService) lockLocked() {
	wipe(v.key)
	v.key = nil
	v.unlockUntil = time.Time{}
	for s := range v.scopes {
		s.scrub()
		delete(v.scopes, s)
	}
}

func (v *VaultService) forget(s *SeedScope) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.scopes, s)
}
