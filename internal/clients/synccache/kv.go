package synccache

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound means no payload has ever been stored for the key.
var ErrNotFound = errors.New("synccache: key not found")

// KV is the injected storage capability for the last-known-synced payload.
// Production wires Redis; tests wire the in-memory stub. It is a best-effort
// side channel, never a source of truth.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
