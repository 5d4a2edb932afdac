// Package service coordinates the gameday rules with storage: one controller
// per match serialises commands, applies them optimistically and reverts when
// the repository rejects the write.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/maxviazov/gameday-service/internal/model"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// ErrPersistenceFailure marks a command whose write was rejected and reverted.
var ErrPersistenceFailure = errors.New("persistence failure")

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput.
type invalidInputError struct {
	fields []FieldError
}

func (e *invalidInputError) Error() string        { return ErrInvalidInput.Error() }
func (e *invalidInputError) Unwrap() error        { return ErrInvalidInput }
func (e *invalidInputError) Fields() []FieldError { return e.fields }

func newInvalidInput(fe []FieldError) error {
	if len(fe) == 0 {
		return nil
	}
	return &invalidInputError{fields: fe}
}

func invalidField(field, message string) error {
	return newInvalidInput([]FieldError{{Field: field, Message: message}})
}

// FieldErrors extracts field errors from an aggregated validation error.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	var v *invalidInputError
	if errors.As(err, &v) {
		return v.Fields()
	}
	return nil
}

// PersistenceError carries the repository reason for a reverted command.
// errors.Is matches both ErrPersistenceFailure and the wrapped reason.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrPersistenceFailure, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistenceFailure }
func (e *PersistenceError) Unwrap() error        { return e.Err }

// ChangeKind tells observers whether a snapshot is a fresh mutation or a rollback.
type ChangeKind string

const (
	ChangeApplied  ChangeKind = "applied"
	ChangeReverted ChangeKind = "reverted"
)

// ChangeEvent is delivered to controller observers.
type ChangeEvent struct {
	Kind  ChangeKind  `json:"kind"`
	Op    string      `json:"op"`
	Match model.Match `json:"match"`
}

// Observer receives every optimistic snapshot and every rollback. It runs
// while the controller holds its lock and must not call back into it.
type Observer func(ev ChangeEvent)

// MatchService is the entry point for handlers: it creates matches and hands
// out the single controller that owns each one.
type MatchService interface {
	CreateMatch(ctx context.Context, in CreateMatchInput) (model.Match, error)
	Controller(ctx context.Context, matchID string) (*MatchController, error)
	ListByTeam(ctx context.Context, teamID string) ([]model.Match, error)
}
