package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"io"
	"time"

	"ledger-wallet/internal/core/domain"
)

// EncryptionService handles AES-256-GCM sealing of byte payloads.
type EncryptionService interface {
	Encrypt(key, plaintext []byte) ([]byte, error)
	Decrypt(key, ciphertext []byte) ([]byte, error)
}

// DerivedKeys is the output of the password KDF: an encryption key and a
// verification token that can be stored in the clear.
type DerivedKeys struct {
	EncryptionKey []byte
	Verifier      []byte
}

// HashService handles password key derivation (Argon2id).
type HashService interface {
	Params() domain.KDFParams
	NewSalt() ([]byte, error)
	Derive(password string, salt []byte, params domain.KDFParams) DerivedKeys
	VerifierMatches(stored, derived []byte) bool
}

// TokenService handles JWT token operations for node authentication.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	ID        string
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// AddressDeriver maps (seed, account, chain, index) to addresses and keys.
type AddressDeriver interface {
	AccountXPub(seed []byte, accountIndex uint32) (string, error)
	Derive(seed []byte, accountIndex uint32, chain domain.Chain, index uint32) (domain.Address, error)
	DeriveFromXPub(xpub string, chain domain.Chain, index uint32) (domain.Address, error)
	Sign(seed []byte, accountIndex uint32, chain domain.Chain, index uint32, hash []byte) (domain.Unlock, error)
	ValidateAddress(text string) error
}

// NodeMessage is a message as returned by a ledger node.
type NodeMessage struct {
	ID        string
	Payload   domain.Payload
	Timestamp time.Time
}

// NodeClient is the remote ledger node collaborator.
type NodeClient interface {
	Health(ctx context.Context) error
	FetchAddressOutputs(ctx context.Context, address string) ([]domain.Output, error)
	FetchOutput(ctx context.Context, outputID string) (*domain.Output, error)
	FetchMessage(ctx context.Context, messageID string) (*NodeMessage, error)
	InclusionState(ctx context.Context, messageID string) (domain.ConfirmationState, error)
	SubmitMessage(ctx context.Context, payload domain.Payload) (string, error)
	PromoteMessage(ctx context.Context, messageID string) (string, error)
}

// NodeClientFactory builds clients for node configurations.
type NodeClientFactory interface {
	// Client talks to exactly one node.
	Client(node domain.NodeConfig) (NodeClient, error)
	// Pool fails over across the enabled nodes.
	Pool(nodes []domain.NodeConfig) (NodeClient, error)
}

// EventPublisher forwards recorded events to an external transport.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// SyncLease is a cross-process exclusivity lease on an account.
type SyncLease interface {
	Acquire(ctx context.Context, accountID, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, accountID, owner string) error
}

// BackupStore stores snapshot files outside the local filesystem.
type BackupStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	Download(ctx context.Context, key string, dst io.Writer) error
}
