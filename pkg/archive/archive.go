// Package archive keeps finalized recordings in the local storage scope.
package archive

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/store"
	"github.com/samber/lo"
)

// KeyRecordings holds a map of recording id to recording.
const KeyRecordings = "recordings"

var ErrNotFound = errors.New("recording not found")

// Archive is a read-modify-write view over the recordings map.
type Archive struct {
	mu    sync.Mutex
	local store.Store
}

func New(local store.Store) *Archive {
	return &Archive{local: local}
}

func (a *Archive) load(ctx context.Context) (map[string]recording.Recording, error) {
	m, ok, err := store.GetJSON[map[string]recording.Recording](ctx, a.local, KeyRecordings)
	if err != nil {
		return nil, fmt.Errorf("load recordings: %w", err)
	}
	if !ok || m == nil {
		m = map[string]recording.Recording{}
	}
	return m, nil
}

// Save stores rec, replacing any recording with the same id.
func (a *Archive) Save(ctx context.Context, rec recording.Recording) error {
	if rec.ID == "" {
		return errors.New("recording id is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	m, err := a.load(ctx)
	if err != nil {
		return err
	}
	m[rec.ID] = rec.Clone()
	if err := store.SetJSON(ctx, a.local, KeyRecordings, m); err != nil {
		return fmt.Errorf("save recording %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the recording with id, or ErrNotFound.
func (a *Archive) Get(ctx context.Context, id string) (recording.Recording, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, err := a.load(ctx)
	if err != nil {
		return recording.Recording{}, err
	}
	rec, ok := m[id]
	if !ok {
		return recording.Recording{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// List returns all recordings, newest first.
func (a *Archive) List(ctx context.Context) ([]recording.Recording, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	recs := lo.Values(m)
	slices.SortFunc(recs, func(x, y recording.Recording) int {
		if c := cmp.Compare(y.StartTime, x.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return recs, nil
}

// Delete removes the recording with id. Deleting a missing id returns ErrNotFound.
func (a *Archive) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, err := a.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := m[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m, id)
	return store.SetJSON(ctx, a.local, KeyRecordings, m)
}

// Usage reports how many recordings are stored and their total serialized size.
func (a *Archive) Usage(ctx context.Context) (count int, bytes int, err error) {
	recs, err := a.List(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range recs {
		n, err := recording.Size(r)
		if err != nil {
			return 0, 0, err
		}
		bytes += n
	}
	return len(recs), bytes, nil
}
