package domain

import "time"

// VaultState is the lock state of the seed vault.
type VaultState string

const (
	VaultEmpty    VaultState = "EMPTY"
	VaultLocked   VaultState = "LOCKED"
	VaultUnlocked VaultState = "UNLOCKED"
)

// VaultRecordVersion is the current persisted vault format.
const VaultRecordVersion = 1

// KDFParams are the argon2id parameters a vault record was sealed with.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"` // KiB
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"key_len"`
}

// VaultRecord is the persisted, encrypted form of the seed.
type VaultRecord struct {
	Version       int       `json:"version"`
	KDF           KDFParams `json:"kdf"`
	Salt          []byte    `json:"salt"`
	Verifier      []byte    `json:"verifier"`
	EncryptedSeed []byte    `json:"encrypted_seed"`
	CreatedAt     time.Time `json:"created_at"`
}

// Snapshot file format identifiers.
const (
	SnapshotFormat   = "ledger-wallet-snapshot"
	SnapshotVersion  = 1
	CompressionXZ    = "xz"
	CompressionNone  = "none"
	SnapshotFileExt  = ".snapshot"
	SnapshotFileStem = "wallet-backup"
)

// Snapshot is the on-disk backup envelope. Payload is encrypted with the
// vault key and optionally compressed before encryption.
type Snapshot struct {
	Format      string      `json:"format"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	Vault       VaultRecord `json:"vault"`
	Compression string      `json:"compression"`
	Payload     []byte      `json:"payload"`
}

// SnapshotPayload is the plaintext carried inside a snapshot.
type SnapshotPayload struct {
	Accounts []Account `json:"accounts"`
}
