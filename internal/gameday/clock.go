package gameday

import (
	"time"

	"github.com/maxviazov/gameday-service/internal/model"
)

// NewTimer returns a stopped clock with nothing measured yet.
func NewTimer() model.Timer {
	return model.Timer{State: model.ClockStopped}
}

// StartTimer begins a new measured interval. Only valid from stopped.
func StartTimer(t model.Timer, now time.Time) (model.Timer, error) {
	if t.State != model.ClockStopped {
		return t, &TransitionError{From: t.State, Action: ActionStart}
	}
	start := now
	return model.Timer{
		State:       model.ClockRunning,
		StartTime:   &start,
		TotalPaused: 0,
		LastElapsed: t.LastElapsed,
	}, nil
}

// PauseTimer freezes the clock at now. Only valid from running.
func PauseTimer(t model.Timer, now time.Time) (model.Timer, error) {
	if t.State != model.ClockRunning {
		return t, &TransitionError{From: t.State, Action: ActionPause}
	}
	pausedAt := now
	out := t
	out.State = model.ClockPaused
	out.PausedAt = &pausedAt
	return out, nil
}

// ResumeTimer adds the pause interval to the accumulator. Only valid from paused.
func ResumeTimer(t model.Timer, now time.Time) (model.Timer, error) {
	if t.State != model.ClockPaused || t.PausedAt == nil {
		return t, &TransitionError{From: t.State, Action: ActionResume}
	}
	out := t
	// a clock that went backwards must not shrink the accumulator
	if interval := now.Sub(*t.PausedAt); interval > 0 {
		out.TotalPaused += interval
	}
	out.PausedAt = nil
	out.State = model.ClockRunning
	return out, nil
}

// StopTimer ends the current interval and keeps its elapsed time readable.
// Valid from running or paused.
func StopTimer(t model.Timer, now time.Time) (model.Timer, error) {
	if t.State != model.ClockRunning && t.State != model.ClockPaused {
		return t, &TransitionError{From: t.State, Action: ActionStop}
	}
	out := t
	out.LastElapsed = Elapsed(t, now)
	out.State = model.ClockStopped
	out.PausedAt = nil
	return out, nil
}

// Elapsed is the pure elapsed-time query. It never mutates the timer.
func Elapsed(t model.Timer, now time.Time) time.Duration {
	var d time.Duration
	switch t.State {
	case model.ClockRunning:
		if t.StartTime == nil {
			return 0
		}
		d = now.Sub(*t.StartTime) - t.TotalPaused
	case model.ClockPaused:
		if t.StartTime == nil || t.PausedAt == nil {
			return 0
		}
		d = t.PausedAt.Sub(*t.StartTime) - t.TotalPaused
	default:
		d = t.LastElapsed
	}
	if d < 0 {
		return 0
	}
	return d
}
