package settings

import (
	"fmt"
	"strconv"
	"sync"
)

// Store is the key/value settings collaborator. Values are strings; callers
// encode their own types.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Close() error
}

// GetBool reads a boolean setting, returning def when the key is missing.
func GetBool(s Store, key string, def bool) (bool, error) {
	v, ok, err := s.Get(key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("setting %s: %w", key, err)
	}
	return b, nil
}

// SetBool stores a boolean setting.
func SetBool(s Store, key string, v bool) error {
	return s.Set(key, strconv.FormatBool(v))
}

// MemoryStore keeps settings in memory only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
