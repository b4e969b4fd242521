package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MapStore is an in-process Store for tests and ephemeral runs. Maps are
// stored JSON-encoded so round-trip fidelity matches the durable stores.
type MapStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMapStore creates an empty in-process store.
func NewMapStore() *MapStore {
	return &MapStore{data: make(map[string]string)}
}

// Load returns the stored map for a session, or nil if none exists.
func (s *MapStore) Load(_ context.Context, sessionID string) (map[string]any, error) {
	s.mu.RLock()
	raw, ok := s.data[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return data, nil
}

// Save rewrites the full map for a session.
func (s *MapStore) Save(_ context.Context, sessionID string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	s.mu.Lock()
	s.data[sessionID] = string(raw)
	s.mu.Unlock()
	return nil
}
