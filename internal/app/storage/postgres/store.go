// Package postgres implements the snapshot store backed by PostgreSQL. The
// snapshot is stored as a single JSONB row keyed by a stable record id.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradon-app/tradon/internal/app/domain/reward"
	"github.com/tradon-app/tradon/internal/app/storage"
)

// Store implements storage.RewardStore backed by PostgreSQL.
type Store struct {
	db       *sql.DB
	recordID string
}

var _ storage.RewardStore = (*Store)(nil)

// New creates a Store using the provided database handle. recordID selects
// the snapshot row; when empty a fresh identifier is generated, which is only
// useful for throwaway instances.
func New(db *sql.DB, recordID string) *Store {
	if recordID == "" {
		recordID = uuid.NewString()
	}
	return &Store{db: db, recordID: recordID}
}

// Migrate creates the snapshot table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reward_snapshots (
			id         TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create reward_snapshots: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (reward.State, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT state FROM reward_snapshots WHERE id = $1
	`, s.recordID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reward.State{}, storage.ErrNotFound
		}
		return reward.State{}, err
	}

	var state reward.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return reward.State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if state.Tasks == nil {
		state.Tasks = make(map[reward.TaskKey]reward.TaskRecord)
	}
	return state, nil
}

func (s *Store) Save(ctx context.Context, state reward.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reward_snapshots (id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET state = $2, updated_at = $3
	`, s.recordID, raw, time.Now().UTC())
	return err
}
