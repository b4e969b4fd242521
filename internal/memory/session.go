// Package memory provides a durable key/value scratchpad scoped by session
// ID. Writes persist the whole session map on every mutation; reads are
// served from memory.
package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Store is the durable backing for session maps. Implementations persist
// one opaque JSON-serializable map per session ID, fully rewritten on every
// save.
type Store interface {
	// Load returns the persisted map for a session, or nil if none exists.
	Load(ctx context.Context, sessionID string) (map[string]any, error)

	// Save rewrites the full map for a session.
	Save(ctx context.Context, sessionID string, data map[string]any) error
}

// Session is an in-memory view of one session's map, backed by a Store.
// Values must be JSON-safe.
type Session struct {
	mu     sync.Mutex
	id     string
	data   map[string]any
	store  Store
	logger *slog.Logger
}

// NewSession creates a session view, pre-populated from any existing
// persisted map for the ID. Load failures are logged and treated as an
// empty session.
func NewSession(ctx context.Context, id string, store Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		id:     id,
		data:   make(map[string]any),
		store:  store,
		logger: logger,
	}

	if store != nil {
		existing, err := store.Load(ctx, id)
		if err != nil {
			logger.Warn("session load failed", "session_id", id, "error", err)
		} else if existing != nil {
			s.data = existing
		}
	}

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Put writes a key and immediately persists the entire session map under
// the single-writer lock. Persistence failures are logged and swallowed;
// they never abort an in-flight batch.
func (s *Session) Put(ctx context.Context, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	s.data["_updated_at"] = time.Now().UTC().Format(time.RFC3339)

	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.id, s.data); err != nil {
		s.logger.Warn("session persist failed",
			"session_id", s.id, "key", key, "error", err)
	}
}

// Get reads a key from the in-memory map.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Len returns the number of stored keys.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Snapshot returns a detached copy of the session map, safe to hand to
// concurrently running tasks. The copy goes through a JSON round-trip so
// nested structures are isolated too; if marshalling fails the top-level
// map is shallow-copied instead.
func (s *Session) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(s.data)
	if err == nil {
		var copied map[string]any
		if err := json.Unmarshal(raw, &copied); err == nil {
			return copied
		}
	}

	s.logger.Warn("session snapshot fell back to shallow copy", "session_id", s.id)
	copied := make(map[string]any, len(s.data))
	for k, v := range s.data {
		copied[k] = v
	}
	return copied
}
