// Package response centralizes HTTP response shapes and helpers.
// Handlers rely on it to keep controllers thin and uniform.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/gameday-service/internal/gameday"
	"github.com/maxviazov/gameday-service/internal/repository"
	"github.com/maxviazov/gameday-service/internal/service"
)

// ErrorPayload is the canonical error envelope returned by the API.
type ErrorPayload struct {
	Error       string               `json:"error"`
	Message     string               `json:"message,omitempty"`
	FieldErrors []service.FieldError `json:"field_errors,omitempty"`
}

// MapError converts a domain / infrastructure error into an HTTP status and payload.
func MapError(err error) (int, ErrorPayload) {
	if err == nil {
		return http.StatusOK, ErrorPayload{Error: "ok"}
	}

	if errors.Is(err, service.ErrInvalidInput) {
		return http.StatusBadRequest, ErrorPayload{
			Error:       "invalid_input",
			Message:     "one or more fields are invalid",
			FieldErrors: service.FieldErrors(err),
		}
	}

	// a persistence failure wraps the repository reason, so it has to win over the sentinels below
	if errors.Is(err, service.ErrPersistenceFailure) {
		return http.StatusServiceUnavailable, ErrorPayload{
			Error:   "persistence_failure",
			Message: "the change was not saved and has been reverted; retry",
		}
	}

	var te *gameday.TransitionError
	if errors.As(err, &te) {
		return http.StatusConflict, ErrorPayload{Error: "invalid_timer_transition", Message: te.Error()}
	}

	switch {
	case errors.Is(err, gameday.ErrMatchNotActive):
		return http.StatusConflict, ErrorPayload{Error: "match_not_active"}
	case errors.Is(err, gameday.ErrNoOpenPosition):
		return http.StatusConflict, ErrorPayload{Error: "no_open_position"}
	case errors.Is(err, gameday.ErrPositionNotFound):
		return http.StatusNotFound, ErrorPayload{Error: "position_not_found"}
	case errors.Is(err, gameday.ErrPlayerNotFound):
		return http.StatusNotFound, ErrorPayload{Error: "player_not_found"}
	case errors.Is(err, gameday.ErrInvalidTeam):
		return http.StatusBadRequest, ErrorPayload{Error: "invalid_team", Message: "team must be self or opponent"}
	case errors.Is(err, gameday.ErrInvalidEventType):
		return http.StatusBadRequest, ErrorPayload{Error: "invalid_event_type"}
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorPayload{Error: "not_found"}
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, ErrorPayload{Error: "already_exists"}
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, ErrorPayload{Error: "conflict"}
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrorPayload{Error: "unavailable"}
	default:
		return http.StatusInternalServerError, ErrorPayload{Error: "internal_error"}
	}
}

// WriteError writes an error response and aborts the context.
func WriteError(c *gin.Context, err error) {
	status, payload := MapError(err)
	c.AbortWithStatusJSON(status, payload)
}

// WriteData writes a successful JSON response.
func WriteData(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}
