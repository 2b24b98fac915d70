// Package file provides a JSON file snapshot store. The snapshot is written
// atomically (temp file + rename) so a crash mid-write never corrupts the
// previous snapshot.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tradon-app/tradon/internal/app/domain/reward"
	"github.com/tradon-app/tradon/internal/app/storage"
)

// Store persists the snapshot as one JSON document on disk.
type Store struct {
	mu   sync.Mutex
	path string
}

var _ storage.RewardStore = (*Store)(nil)

// New creates a store writing to path. The parent directory is created if
// missing.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	return &Store{path: path}, nil
}

func (s *Store) Load(_ context.Context) (reward.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return reward.State{}, storage.ErrNotFound
		}
		return reward.State{}, fmt.Errorf("read snapshot: %w", err)
	}

	var state reward.State
	if err := json.Unmarshal(data, &state); err != nil {
		return reward.State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if state.Tasks == nil {
		state.Tasks = make(map[reward.TaskKey]reward.TaskRecord)
	}
	return state, nil
}

func (s *Store) Save(_ context.Context, state reward.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
