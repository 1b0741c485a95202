// Package directory resolves principal ids to display names. Permission
// denials and summary breakdowns reference people by name, not bare uuid.
package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type Directory interface {
	// DisplayName returns the human-readable name for a principal, or an
	// empty string when the id is unknown.
	DisplayName(ctx context.Context, id uuid.UUID) (string, error)
}

// Static is an in-memory Directory backed by a fixed id-to-name map.
type Static struct {
	mu    sync.RWMutex
	names map[uuid.UUID]string
}

func NewStatic(names map[uuid.UUID]string) *Static {
	if names == nil {
		names = make(map[uuid.UUID]string)
	}
	return &Static{names: names}
}

func (s *Static) DisplayName(_ context.Context, id uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names[id], nil
}

func (s *Static) Register(id uuid.UUID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[id] = name
}
