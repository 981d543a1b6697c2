package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Provider resolves a named credential from an external secret store.
type Provider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// EnvProvider reads secrets from EQUISY_SECRET_<NAME> variables. Dashes
// and dots in the name become underscores.
type EnvProvider struct {
	Prefix string
}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{Prefix: "EQUISY_SECRET_"}
}

func (p *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	key := p.Prefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("secrets.EnvProvider: %s: %w", key, ErrSecretNotFound)
	}
	return v, nil
}

// StoreProvider decrypts secrets kept in a SecretRepository.
type StoreProvider struct {
	repo  SecretRepository
	vault *Vault
}

func NewStoreProvider(repo SecretRepository, vault *Vault) *StoreProvider {
	return &StoreProvider{repo: repo, vault: vault}
}

func (p *StoreProvider) GetSecret(ctx context.Context, name string) (string, error) {
	s, err := p.repo.GetByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("secrets.StoreProvider: %w", err)
	}
	plain, err := p.vault.Open(s.Name, s.Value)
	if err != nil {
		return "", fmt.Errorf("secrets.StoreProvider: %w", err)
	}
	return plain, nil
}

// Put seals value under s.Name and stores it.
func (p *StoreProvider) Put(ctx context.Context, s *Secret, value string) error {
	enc, err := p.vault.Seal(s.Name, value)
	if err != nil {
		return fmt.Errorf("secrets.StoreProvider.Put: %w", err)
	}
	s.Value = enc
	if err := p.repo.Put(ctx, s); err != nil {
		return fmt.Errorf("secrets.StoreProvider.Put: %w", err)
	}
	return nil
}

// Chain asks each provider in order and returns the first hit. Errors
// other than ErrSecretNotFound stop the search.
type Chain []Provider

func (c Chain) GetSecret(ctx context.Context, name string) (string, error) {
	for _, p := range c {
		v, err := p.GetSecret(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("secrets.Chain: %q: %w", name, ErrSecretNotFound)
}

// None never resolves anything.
type None struct{}

func (None) GetSecret(_ context.Context, name string) (string, error) {
	return "", fmt.Errorf("secrets: provider disabled, %q: %w", name, ErrSecretNotFound)
}
