package reward

import (
	"testing"
	"time"
)

func TestTimerRemaining(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := TimerSession{
		Active:          true,
		DurationSeconds: 100,
		TimeRemaining:   100,
		StartTimestamp:  start.UnixMilli(),
	}

	if got := session.Remaining(start); got != 100 {
		t.Errorf("remaining at start = %d", got)
	}
	if got := session.Remaining(start.Add(40 * time.Second)); got != 60 {
		t.Errorf("remaining at 40s = %d", got)
	}
	if got := session.Remaining(start.Add(5 * time.Hour)); got != 0 {
		t.Errorf("remaining past end = %d, want clamped to 0", got)
	}

	// Inactive sessions report their stored value untouched.
	session.Active = false
	session.TimeRemaining = 42
	if got := session.Remaining(start.Add(time.Hour)); got != 42 {
		t.Errorf("inactive remaining = %d", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	state := NewState()
	state.Tasks[TaskDailyReward] = TaskRecord{Completed: true}

	clone := state.Clone()
	clone.Tasks[TaskDailyReward] = TaskRecord{}
	clone.Points = 999

	if !state.Tasks[TaskDailyReward].Completed {
		t.Error("clone mutation leaked into original tasks")
	}
	if state.Points != 0 {
		t.Error("clone mutation leaked into original points")
	}
}

func TestDateStampGatesByCalendarDay(t *testing.T) {
	before := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	after := before.Add(2 * time.Second)
	if DateStamp(before) == DateStamp(after) {
		t.Error("stamps across midnight must differ")
	}
	if DateStamp(before) != DateStamp(before.Add(-12*time.Hour)) {
		t.Error("stamps within one day must match")
	}
}
