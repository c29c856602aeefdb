package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pbnkron/kron/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. GoalID and
// Step are set on partial failures so the caller knows the private goal exists.
type errorResponse struct {
	Error  string `json:"error"`
	GoalID string `json:"goal_id,omitempty"`
	Step   string `json:"step,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var syncErr *domain.MirrorSyncError
	if errors.As(err, &syncErr) {
		log.Warn().
			Err(syncErr.Err).
			Str("goal_id", syncErr.GoalID).
			Str("step", string(syncErr.Step)).
			Msg("request finished with public mirror out of sync")
		return http.StatusBadGateway, errorResponse{
			Error:  "goal saved but public feed update failed",
			GoalID: syncErr.GoalID,
			Step:   string(syncErr.Step),
		}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrEmptyText),
		errors.Is(err, domain.ErrInvalidGoalType),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidDeadline):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrGoalNotFound):
		return http.StatusNotFound, errorResponse{Error: "goal not found"}
	case errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound, errorResponse{Error: "profile not found"}
	case errors.Is(err, domain.ErrCreateInFlight):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrGoalExists):
		return http.StatusConflict, errorResponse{Error: "goal id already in use"}
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, errorResponse{Error: "user already exists"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials"}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: "unauthenticated"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
