package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps values in the OS credential store under a single service name.
// It backs the small "settings" scope where credentials live.
type KeyringStore struct {
	service string
}

// NewKeyringStore returns a store that namespaces every key under service.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

func (s *KeyringStore) Get(_ context.Context, key string) ([]byte, error) {
	v, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get %q: %w", key, err)
	}
	return []byte(v), nil
}

func (s *KeyringStore) Set(_ context.Context, key string, value []byte) error {
	err := keyring.Set(s.service, key, string(value))
	if errors.Is(err, keyring.ErrSetDataTooBig) {
		return fmt.Errorf("%w: keyring item %q", ErrQuotaExceeded, key)
	}
	if err != nil {
		return fmt.Errorf("keyring set %q: %w", key, err)
	}
	return nil
}

func (s *KeyringStore) Delete(_ context.Context, key string) error {
	err := keyring.Delete(s.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %q: %w", key, err)
	}
	return nil
}
