package persist

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. A positive quota caps the total number
// of stored value bytes; a Put beyond it fails with ErrQuotaExceeded.
type MemoryStore struct {
	mu    sync.RWMutex
	m     map[string][]byte
	used  int64
	quota int64
}

// NewMemoryStore returns an empty store. quota <= 0 means unlimited.
func NewMemoryStore(quota int64) *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte), quota: quota}
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := int64(len(value)) - int64(len(s.m[key]))
	if s.quota > 0 && s.used+delta > s.quota {
		return ErrQuotaExceeded
	}
	s.m[key] = slices.Clone(value)
	s.used += delta
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.used -= int64(len(s.m[key]))
	delete(s.m, key)
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

var _ Store = (*MemoryStore)(nil)
