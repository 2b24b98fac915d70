package storage

import (
	"context"
	"errors"

	"github.com/tradon-app/tradon/internal/app/domain/reward"
)

// ErrNotFound is returned by Load when no snapshot has been saved yet.
var ErrNotFound = errors.New("snapshot not found")

// RewardStore persists the reward state snapshot. The reward service writes
// the whole snapshot on every mutation; implementations serialize it as a
// single record.
type RewardStore interface {
	Load(ctx context.Context) (reward.State, error)
	Save(ctx context.Context, state reward.State) error
}
