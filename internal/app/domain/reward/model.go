// Package reward defines the persisted gamification state: balances, the
// earning timer session, the task catalog and referral progress.
package reward

import (
	"time"

	"github.com/tradon-app/tradon/internal/app/domain/identity"
)

// TaskKey identifies a task in the fixed catalog.
type TaskKey string

const (
	TaskDailyReward TaskKey = "dailyReward"
	TaskRetweetPost TaskKey = "rtPost"
	TaskFollowX     TaskKey = "followX"
	TaskInviteFive  TaskKey = "inviteFive"
)

// TaskKind distinguishes how often a task can be completed.
type TaskKind string

const (
	// KindDaily tasks re-arm once per calendar day.
	KindDaily TaskKind = "daily"
	// KindOneShot tasks complete at most once ever.
	KindOneShot TaskKind = "one-shot"
)

// TaskSpec describes one catalog entry.
type TaskSpec struct {
	Key    TaskKey
	Kind   TaskKind
	Points int64
}

// Catalog returns the fixed task catalog. Completion and reset iterate this
// generically rather than special-casing keys.
func Catalog() []TaskSpec {
	return []TaskSpec{
		{Key: TaskDailyReward, Kind: KindDaily, Points: 100},
		{Key: TaskRetweetPost, Kind: KindOneShot, Points: 1000},
		{Key: TaskFollowX, Kind: KindOneShot, Points: 1000},
		{Key: TaskInviteFive, Kind: KindOneShot, Points: 5000},
	}
}

// LookupTask resolves a catalog entry by key.
func LookupTask(key TaskKey) (TaskSpec, bool) {
	for _, spec := range Catalog() {
		if spec.Key == key {
			return spec, true
		}
	}
	return TaskSpec{}, false
}

// TaskRecord tracks completion state for one task.
type TaskRecord struct {
	Completed     bool   `json:"completed"`
	LastCompleted string `json:"lastCompleted,omitempty"`
}

// TimerSession is the singleton earning timer. Remaining time is always
// recomputed from the wall-clock start so the session survives restarts.
type TimerSession struct {
	Active          bool  `json:"active"`
	DurationSeconds int64 `json:"durationSeconds"`
	TimeRemaining   int64 `json:"timeRemaining"`
	// StartTimestamp is epoch milliseconds; 0 means no session was started.
	StartTimestamp int64 `json:"startTimestamp"`
	RewardGranted  bool  `json:"rewardAlreadyGranted"`
}

// Remaining computes seconds left in the session as of now.
func (s TimerSession) Remaining(now time.Time) int64 {
	if !s.Active || s.StartTimestamp == 0 {
		return s.TimeRemaining
	}
	elapsed := (now.UnixMilli() - s.StartTimestamp) / 1000
	remaining := s.DurationSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// State is the full persisted snapshot. It is the single record written to
// durable storage on every mutation; ephemeral market data never lands here.
type State struct {
	User            *identity.User         `json:"user"`
	Points          int64                  `json:"points"`
	Tickets         int64                  `json:"tickets"`
	Passes          int64                  `json:"passes"`
	EarningTimer    TimerSession           `json:"earningTimer"`
	FollowCompleted bool                   `json:"hasCompletedTwitterFollow"`
	Tasks           map[TaskKey]TaskRecord `json:"tasks"`
	InvitationCode  string                 `json:"invitationCode,omitempty"`
	InvitedUsers    int64                  `json:"invitedUsers"`
}

// InitialTickets is granted to every fresh state.
const InitialTickets = 3

// NewState returns a fresh snapshot with the task catalog armed.
func NewState() State {
	tasks := make(map[TaskKey]TaskRecord, len(Catalog()))
	for _, spec := range Catalog() {
		tasks[spec.Key] = TaskRecord{}
	}
	return State{
		Tickets: InitialTickets,
		Tasks:   tasks,
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.Tasks = make(map[TaskKey]TaskRecord, len(s.Tasks))
	for k, v := range s.Tasks {
		out.Tasks[k] = v
	}
	return out
}

// DateStamp renders the calendar-date key used to gate daily tasks. The stamp
// compares equal only within one calendar day in the given location.
func DateStamp(t time.Time) string {
	return t.Format("2006-01-02")
}
