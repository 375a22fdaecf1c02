package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrQuotaExceeded is returned when a write would push a scope past its size budget.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Store is the key/value capability the core depends on.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored value for key, or nil, nil if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes the value stored under key into a new T.
// ok is false when the key does not exist.
func GetJSON[T any](ctx context.Context, s Store, key string) (v T, ok bool, err error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return v, false, err
	}
	if raw == nil {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %q: %w", key, err)
	}
	return v, true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// DeleteAll removes every key, stopping at the first error.
func DeleteAll(ctx context.Context, s Store, keys ...string) error {
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
