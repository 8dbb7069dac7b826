// Package memory owns the global knowledge blob shared across all sessions.
// The backend appends to it through the updateGlobalMemory tool; it is never
// session-scoped.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"mentor/internal/domain"
	"mentor/internal/observability"
)

// Store holds the memory text and persists it after every append.
type Store struct {
	mu    sync.RWMutex
	state domain.StateStore
	log   *slog.Logger

	text string
}

// NewStore loads the memory blob from the durable store. A missing key means
// empty memory.
func NewStore(ctx context.Context, state domain.StateStore) *Store {
	s := &Store{
		state: state,
		log:   observability.Component("memory"),
	}

	raw, ok, err := state.Load(ctx, domain.StateKeyMemory)
	if err != nil {
		s.log.Error("failed to load memory, starting empty", "error", err)
	}
	if ok && err == nil {
		s.text = string(raw)
	}
	return s
}

// Text returns the current memory blob.
func (s *Store) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Append adds one fact as a bulleted line and returns the new blob.
func (s *Store) Append(ctx context.Context, info string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.text == "" {
		s.text = "- " + info
	} else {
		s.text += "\n- " + info
	}
	s.flush(ctx)
	return s.text
}

func (s *Store) flush(ctx context.Context) {
	if err := s.state.Save(ctx, domain.StateKeyMemory, []byte(s.text)); err != nil {
		s.log.Error("failed to persist memory", "error", err)
	}
}
