// Package memory provides an in-memory snapshot store. It is safe for
// concurrent use and serves both as the test store and as the fallback mirror
// when a durable store rejects a write.
package memory

import (
	"context"
	"sync"

	"github.com/tradon-app/tradon/internal/app/domain/reward"
	"github.com/tradon-app/tradon/internal/app/storage"
)

// Store keeps the latest snapshot in memory.
type Store struct {
	mu    sync.RWMutex
	state reward.State
	saved bool
}

var _ storage.RewardStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) (reward.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.saved {
		return reward.State{}, storage.ErrNotFound
	}
	return s.state.Clone(), nil
}

func (s *Store) Save(_ context.Context, state reward.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state.Clone()
	s.saved = true
	return nil
}
