// Package reward implements the reward state service: the single writer for
// points, tickets, passes, the earning timer, task completion and referral
// progress.
package reward

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/tradon-app/tradon/internal/app/domain/identity"
	"github.com/tradon-app/tradon/internal/app/domain/reward"
	"github.com/tradon-app/tradon/internal/app/metrics"
	"github.com/tradon-app/tradon/internal/app/storage"
	"github.com/tradon-app/tradon/pkg/logger"
)

// Config carries the reward tuning knobs.
type Config struct {
	InvitePrefix         string
	TimerDurationSeconds int64
	TimerRewardPoints    int64
	ReferralThreshold    int64
	ReferralBonusPoints  int64
	PassPrices           map[int64]int64
}

// DefaultConfig returns the production reward parameters.
func DefaultConfig() Config {
	return Config{
		InvitePrefix:         "TRDN",
		TimerDurationSeconds: 21600,
		TimerRewardPoints:    2000,
		ReferralThreshold:    5,
		ReferralBonusPoints:  5000,
		PassPrices:           map[int64]int64{1: 500, 5: 2000},
	}
}

// Service owns the reward state. Every mutation runs under one lock and is
// followed by a snapshot write; a failed write is logged and the in-memory
// state remains authoritative, so reward logic never blocks on storage.
type Service struct {
	mu    sync.Mutex
	state reward.State
	store storage.RewardStore
	cfg   Config
	log   *logger.Logger
	now   func() time.Time
}

// New constructs the service, loading any existing snapshot from the store.
func New(store storage.RewardStore, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("reward")
	}
	if cfg.PassPrices == nil {
		cfg.PassPrices = DefaultConfig().PassPrices
	}

	s := &Service{
		store: store,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}

	state, err := store.Load(context.Background())
	switch {
	case err == nil:
		s.state = state
		s.log.WithField("points", state.Points).
			WithField("tickets", state.Tickets).
			Info("reward snapshot restored")
	case err == storage.ErrNotFound:
		s.state = reward.NewState()
	default:
		s.log.WithError(err).Warn("reward snapshot unreadable; starting fresh")
		s.state = reward.NewState()
	}
	return s
}

// WithClock replaces the wall clock. Tests use this to simulate elapsed time
// and date changes.
func (s *Service) WithClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// persistLocked writes the current state through the store. Failures are
// swallowed after logging: durability is best-effort, the mutation stands.
func (s *Service) persistLocked() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(context.Background(), s.state); err != nil {
		metrics.RecordSnapshotFailure()
		s.log.WithError(err).Warn("snapshot write failed; state kept in memory")
	}
}

// State returns a copy of the current state with the timer remaining time
// recomputed from the wall clock.
func (s *Service) State() reward.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state.Clone()
	out.EarningTimer.TimeRemaining = out.EarningTimer.Remaining(s.now())
	return out
}

// SetUser caches the host-supplied identity. A previously unseen user id
// derives a fresh invitation code; repeating the same id keeps the code.
func (s *Service) SetUser(u *identity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u == nil {
		s.state.User = nil
		s.persistLocked()
		return
	}

	if s.state.User == nil || s.state.User.ID != u.ID || s.state.InvitationCode == "" {
		s.state.InvitationCode = fmt.Sprintf("%s-%d-%s", s.cfg.InvitePrefix, u.ID, randomSuffix(6))
		s.log.WithField("user", u.Display()).Info("user session started")
	}
	copied := *u
	s.state.User = &copied
	s.persistLocked()
}

// AddPoints unconditionally credits points.
func (s *Service) AddPoints(amount int64) {
	if amount <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Points += amount
	s.persistLocked()
}

// AddTickets credits agent tickets.
func (s *Service) AddTickets(count int64) {
	if count <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Tickets += count
	s.persistLocked()
}

// ConsumeTicket spends one ticket. Returns false with no change when the
// balance is already zero; the ticket count never goes negative.
func (s *Service) ConsumeTicket() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Tickets <= 0 {
		return false
	}
	s.state.Tickets--
	s.persistLocked()
	return true
}

// PurchasePasses debits points at the fixed price table and credits passes.
// Unknown counts and unaffordable purchases are rejected with no state change.
func (s *Service) PurchasePasses(count int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.cfg.PassPrices[count]
	if !ok || s.state.Points < price {
		return false
	}
	s.state.Points -= price
	s.state.Passes += count
	s.log.WithField("count", count).
		WithField("price", price).
		Info("passes purchased")
	s.persistLocked()
	return true
}

// StartEarningTimer activates the singleton timer session, overwriting any
// prior session. Only one session exists at a time so no pending reward can
// be lost by restarting.
func (s *Service) StartEarningTimer(durationSeconds int64) {
	if durationSeconds <= 0 {
		durationSeconds = s.cfg.TimerDurationSeconds
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.EarningTimer = reward.TimerSession{
		Active:          true,
		DurationSeconds: durationSeconds,
		TimeRemaining:   durationSeconds,
		StartTimestamp:  s.now().UnixMilli(),
	}
	s.log.WithField("duration_seconds", durationSeconds).Info("earning timer started")
	s.persistLocked()
}

// Tick re-evaluates the earning timer against the wall clock. The first
// evaluation that observes zero remaining time grants the configured reward
// and deactivates the session; every later call is a no-op. Safe to invoke at
// any frequency.
func (s *Service) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := s.state.EarningTimer
	if !timer.Active || timer.StartTimestamp == 0 {
		return
	}

	remaining := timer.Remaining(s.now())
	if remaining > 0 {
		if remaining == timer.TimeRemaining {
			return
		}
		s.state.EarningTimer.TimeRemaining = remaining
		s.persistLocked()
		return
	}

	if !timer.RewardGranted {
		s.state.Points += s.cfg.TimerRewardPoints
		metrics.RecordRewardGrant("timer")
		s.log.WithField("points", s.cfg.TimerRewardPoints).Info("earning timer reward granted")
	}
	s.state.EarningTimer = reward.TimerSession{RewardGranted: true}
	s.persistLocked()
}

// CompleteTask marks a catalog task complete and grants its reward plus one
// ticket. Daily tasks are gated per calendar date, one-shot tasks complete at
// most once ever. A disallowed repeat returns false without changing state.
func (s *Service) CompleteTask(key reward.TaskKey, points int64) bool {
	spec, ok := reward.LookupTask(key)
	if !ok {
		return false
	}
	if points <= 0 {
		points = spec.Points
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.state.Tasks[key]
	today := reward.DateStamp(s.now())

	switch spec.Kind {
	case reward.KindDaily:
		if record.LastCompleted == today {
			return false
		}
		s.state.Tasks[key] = reward.TaskRecord{Completed: true, LastCompleted: today}
	default:
		if record.Completed {
			return false
		}
		s.state.Tasks[key] = reward.TaskRecord{Completed: true, LastCompleted: today}
	}

	s.state.Points += points
	s.state.Tickets++
	metrics.RecordRewardGrant("task")
	s.log.WithField("task", string(key)).
		WithField("points", points).
		Info("task completed")
	s.persistLocked()
	return true
}

// ResetDailyTasks re-arms daily tasks whose completion stamp is not today.
// Intended to run once per day but harmless at any frequency.
func (s *Service) ResetDailyTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := reward.DateStamp(s.now())
	changed := false
	for _, spec := range reward.Catalog() {
		if spec.Kind != reward.KindDaily {
			continue
		}
		record := s.state.Tasks[spec.Key]
		if record.Completed && record.LastCompleted != today {
			record.Completed = false
			s.state.Tasks[spec.Key] = record
			changed = true
		}
	}
	if changed {
		s.log.Info("daily tasks re-armed")
		s.persistLocked()
	}
}

// RecordReferral counts one accepted referral: the inviter earns a pass and a
// ticket per referral, and a one-time bonus the first time the running total
// reaches the threshold. The bonus is guarded by the invite task's completed
// flag, not the counter, so later referrals never repeat it.
func (s *Service) RecordReferral() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.InvitedUsers++
	s.state.Passes++
	s.state.Tickets++

	if s.state.InvitedUsers >= s.cfg.ReferralThreshold {
		record := s.state.Tasks[reward.TaskInviteFive]
		if !record.Completed {
			s.state.Points += s.cfg.ReferralBonusPoints
			s.state.Tasks[reward.TaskInviteFive] = reward.TaskRecord{
				Completed:     true,
				LastCompleted: reward.DateStamp(s.now()),
			}
			metrics.RecordRewardGrant("referral_bonus")
			s.log.WithField("invited", s.state.InvitedUsers).
				WithField("bonus", s.cfg.ReferralBonusPoints).
				Info("referral threshold bonus granted")
		}
	}
	s.persistLocked()
}

// SetFollowCompleted records follow completion detected out of band (the
// external redirect flow rather than CompleteTask).
func (s *Service) SetFollowCompleted(value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.state.Tasks[reward.TaskFollowX]
	record.Completed = value
	if value {
		record.LastCompleted = reward.DateStamp(s.now())
	}
	s.state.Tasks[reward.TaskFollowX] = record
	s.state.FollowCompleted = value
	s.persistLocked()
}

// randomSuffix returns n random base36 characters.
func randomSuffix(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = alphabet[i%len(alphabet)]
			continue
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out)
}
