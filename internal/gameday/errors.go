// Package gameday implements live match control: the match clock, the event
// log, the statistics counters and the starting XV assignment engine.
// Everything here is pure: functions take values and return new values, the
// service layer owns the aggregate and persistence.
package gameday

import (
	"errors"
	"fmt"

	"github.com/maxviazov/gameday-service/internal/model"
)

// Domain errors surfaced to the service and transport layers.
var (
	ErrInvalidTimerTransition = errors.New("invalid timer transition")
	ErrMatchNotActive         = errors.New("match not active")
	ErrPositionNotFound       = errors.New("position not found")
	ErrNoOpenPosition         = errors.New("no open position")
	ErrPlayerNotFound         = errors.New("player not found")
	ErrInvalidTeam            = errors.New("invalid team")
	ErrInvalidEventType       = errors.New("invalid event type")
)

// ClockAction names a requested clock transition.
type ClockAction string

const (
	ActionStart  ClockAction = "start"
	ActionPause  ClockAction = "pause"
	ActionResume ClockAction = "resume"
	ActionStop   ClockAction = "stop"
)

// TransitionError reports which transition was refused. It unwraps to ErrInvalidTimerTransition.
type TransitionError struct {
	From   model.ClockState
	Action ClockAction
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s while %s", ErrInvalidTimerTransition, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTimerTransition }
