package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrDecrypt is returned when authenticated decryption fails.
var ErrDecrypt = errors.New("authenticated decryption failed")

// AESEncryptionService implements ports.EncryptionService using AES-256-GCM.
type AESEncryptionService struct{}

// NewAESEncryptionService creates a new AES-256-GCM encryption service.
func NewAESEncryptionService() *AESEncryptionService {
	return &AESEncryptionService{}
}

// Encrypt seals plaintext with a 32-byte key.
// Output layout: nonce(12) || ciphertext || tag.
func (s *AESEncryptionService) Encrypt(key, plaintext []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return aesGCM.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a payload produced by Encrypt. Any authentication failure
// is reported as ErrDecrypt.
func (s *AESEncryptionService) Decrypt(key, ciphertext []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize+aesGCM.Overhead() {
		return nil, fmt.Errorf("ciphertext too short: %w", ErrDecrypt)
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("AES key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aesGCM, nil
}

// KeyedEncryption binds an EncryptionService to a fixed key, for value
// encryption in the storage layer.
type KeyedEncryption struct {
	enc *AESEncryptionService
	key []byte
}

// NewKeyedEncryption validates the key length up front.
func NewKeyedEncryption(key []byte) (*KeyedEncryption, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("AES key must be 32 bytes, got %d", len(key))
	}
	return &KeyedEncryption{enc: NewAESEncryptionService(), key: append([]byte(nil), key...)}, nil
}

func (k *KeyedEncryption) Seal(plaintext []byte) ([]byte, error) {
	return k.enc.Encrypt(k.key, plaintext)
}

func (k *KeyedEncryption) Open(ciphertext []byte) ([]byte, error) {
	return k.enc.Decrypt(k.key, ciphertext)
}
