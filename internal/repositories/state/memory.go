package state

import (
	"context"
	"strings"
	"sync"

	"github.com/navlock/navlock/internal/common"
)

// MemoryRepository keeps state in a process-local map. It backs tests and the
// pure-in-memory session mode, where grants do not survive a restart.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string][]byte)}
}

func (r *MemoryRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (r *MemoryRepository) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	r.data[key] = v
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, prefix string) (map[string][]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string][]byte)
	for k, v := range r.data {
		if strings.HasPrefix(k, prefix) {
			out := make([]byte, len(v))
			copy(out, v)
			result[k] = out
		}
	}
	return result, nil
}

func (r *MemoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = make(map[string][]byte)
	return nil
}
