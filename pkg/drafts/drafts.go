// Package drafts persists the values of an unfinished form so a session can
// be resumed later.
package drafts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/goliatone/go-multistep/pkg/wizard"
)

// ErrNotFound is returned by Load when no draft exists for the id.
var ErrNotFound = errors.New("drafts: draft not found")

// Store keeps one value map per draft id.
type Store interface {
	Load(ctx context.Context, id string) (map[string]any, error)
	Save(ctx context.Context, id string, values map[string]any) error
	Delete(ctx context.Context, id string) error
}

// Restore returns seed overlaid with the stored draft for id. A missing draft
// returns seed unchanged.
func Restore(ctx context.Context, store Store, id string, seed map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(seed))
	for k, v := range seed {
		out[k] = v
	}
	draft, err := store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for k, v := range draft {
		out[k] = v
	}
	return out, nil
}

// Autosave returns a wizard.WithOnChange listener that saves the accumulated
// values on every change. Save failures are logged and otherwise ignored.
func Autosave(ctx context.Context, store Store, id string, logger *slog.Logger) func(wizard.Snapshot) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return func(s wizard.Snapshot) {
		if err := store.Save(ctx, id, s.Values); err != nil {
			logger.Warn("draft not saved", "draft", id, "step", s.Index, "error", err)
			return
		}
		logger.Debug("draft saved", "draft", id, "step", s.Index, "fields", len(s.Values))
	}
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string]map[string]any
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]map[string]any)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	values, ok := m.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyValues(values), nil
}

func (m *MemoryStore) Save(_ context.Context, id string, values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[id] = copyValues(values)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	return nil
}

// copyValues is shallow; snapshots handed to Autosave are already deep
// copies.
func copyValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
