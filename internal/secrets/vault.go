package secrets

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//nolint:gochecknoglobals // sentinel errors
var (
	ErrSecretNotFound = errors.New("secrets: not found")
	ErrInvalidKey     = errors.New("secrets: vault key must be 32 bytes")
	ErrMalformed      = errors.New("secrets: malformed sealed value")
)

// Secret is an application credential stored sealed in the public
// app_secrets table.
type Secret struct {
	ID        uuid.UUID
	Name      string // referenced as secret://<name> in configuration
	Value     string // output of Vault.Seal
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SecretRepository interface {
	Put(ctx context.Context, s *Secret) error
	GetByName(ctx context.Context, name string) (*Secret, error)
	List(ctx context.Context) ([]*Secret, error)
	Delete(ctx context.Context, name string) error
}

// Vault seals app secrets with AES-256-GCM. The secret name is bound as
// additional data, so a value copied onto another row does not open.
type Vault struct {
	aead cipher.AEAD
}

func NewVault(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Seal returns base64(nonce || ciphertext) for value stored under name.
func (v *Vault) Seal(name, value string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secrets.Seal: nonce: %w", err)
	}
	out := v.aead.Seal(nonce, nonce, []byte(value), []byte(name))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. name must be the one the value was sealed under.
func (v *Vault) Open(name, sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(data) < v.aead.NonceSize() {
		return "", fmt.Errorf("secrets.Open %q: %w", name, ErrMalformed)
	}

	n := v.aead.NonceSize()
	plain, err := v.aead.Open(nil, data[:n], data[n:], []byte(name))
	if err != nil {
		return "", fmt.Errorf("secrets.Open %q: %w", name, err)
	}
	return string(plain), nil
}
