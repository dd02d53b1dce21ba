package adapter

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// ErrKeyNotFound is returned by SessionStore.Get when nothing is stored under the key
var ErrKeyNotFound = goerr.New("key not found")

// SessionStore is a key-value store scoped to a single chat session. All
// operations are synchronous and any of them may fail.
type SessionStore interface {
	// Get returns the value stored under key, or ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// memoryStore keeps values in process memory. It lives as long as the process,
// which matches a browser session for a single CLI run.
type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() SessionStore {
	return &memoryStore{
		data: make(map[string][]byte),
	}
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, goerr.Wrap(ErrKeyNotFound, "no value in memory store", goerr.V("key", key))
	}
	return append([]byte(nil), v...), nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
