package response_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/maxviazov/gameday-service/internal/gameday"
	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/repository"
	"github.com/maxviazov/gameday-service/internal/service"
	"github.com/maxviazov/gameday-service/pkg/response"
)

// fakeInvalid mimics service aggregated validation error to test mapping without reaching into internals.
type fakeInvalid struct{ fe []service.FieldError }

func (f *fakeInvalid) Error() string                { return service.ErrInvalidInput.Error() }
func (f *fakeInvalid) Unwrap() error                { return service.ErrInvalidInput }
func (f *fakeInvalid) Fields() []service.FieldError { return f.fe }

func TestMapError(t *testing.T) {
	cases := []struct {
		name     string
		in       error
		wantCode int
		wantErr  string
	}{
		{"invalid_input", &fakeInvalid{fe: []service.FieldError{{Field: "name", Message: "bad"}}}, 400, "invalid_input"},
		{"not_found", repository.ErrNotFound, 404, "not_found"},
		{"wrapped not_found", fmt.Errorf("load: %w", repository.ErrNotFound), 404, "not_found"},
		{"already_exists", repository.ErrAlreadyExists, 409, "already_exists"},
		{"conflict", repository.ErrConflict, 409, "conflict"},
		{"unavailable", repository.ErrUnavailable, 503, "unavailable"},
		{"persistence", &service.PersistenceError{Op: "toggle_possession", Err: repository.ErrNotFound}, 503, "persistence_failure"},
		{"timer", &gameday.TransitionError{From: model.ClockStopped, Action: gameday.ActionPause}, 409, "invalid_timer_transition"},
		{"not_active", gameday.ErrMatchNotActive, 409, "match_not_active"},
		{"no_open_position", gameday.ErrNoOpenPosition, 409, "no_open_position"},
		{"position_not_found", gameday.ErrPositionNotFound, 404, "position_not_found"},
		{"player_not_found", gameday.ErrPlayerNotFound, 404, "player_not_found"},
		{"invalid_team", gameday.ErrInvalidTeam, 400, "invalid_team"},
		{"invalid_event_type", gameday.ErrInvalidEventType, 400, "invalid_event_type"},
		{"internal", errors.New("boom"), 500, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, payload := response.MapError(tc.in)
			if code != tc.wantCode || payload.Error != tc.wantErr {
				t.Fatalf("unexpected mapping: got (%d,%s) want (%d,%s)", code, payload.Error, tc.wantCode, tc.wantErr)
			}
			if tc.wantErr == "invalid_input" && len(payload.FieldErrors) == 0 {
				t.Fatalf("expected field errors in payload")
			}
		})
	}
}
