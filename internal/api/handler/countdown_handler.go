package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pbnkron/kron/internal/api/metrics"
	"github.com/pbnkron/kron/internal/core/ports"
	"github.com/pbnkron/kron/pkg/countdown"
)

// CountdownHandler renders the time left until a goal's deadline.
type CountdownHandler struct {
	goals    ports.GoalSyncService
	now      func() time.Time
	interval time.Duration
}

func NewCountdownHandler(goals ports.GoalSyncService, interval time.Duration) *CountdownHandler {
	if interval <= 0 {
		interval = countdown.DefaultInterval
	}
	return &CountdownHandler{goals: goals, now: time.Now, interval: interval}
}

// Get handles GET /v1/goals/:id/countdown.
//
// @Summary      Countdown for a goal
// @Description  state is null when the goal has no deadline.
// @Tags         countdown
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Goal id"
// @Success      200  {object}  countdownResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/goals/{id}/countdown [get]
func (h *CountdownHandler) Get(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	goal, err := h.goals.Get(c.Request().Context(), id.UID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCountdownResponse(goal, h.now()))
}

// Stream handles GET /v1/goals/:id/countdown/stream.
//
// @Summary      Live countdown for a goal
// @Description  Server-sent "tick" events, one per second, ending after the first expired state.
// @Description  A goal without a deadline gets a single event with a null state.
// @Tags         countdown
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id   path  string  true  "Goal id"
// @Success      200  {object}  countdownResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/goals/{id}/countdown/stream [get]
func (h *CountdownHandler) Stream(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	goal, err := h.goals.Get(ctx, id.UID, c.Param("id"))
	if err != nil {
		return err
	}

	ticker, ok := countdown.Start(ctx, goal.Deadline,
		countdown.WithInterval(h.interval),
		countdown.WithClock(h.now),
	)
	w := openStream(c)
	if !ok {
		return writeEvent(w, "tick", countdownResponse{GoalID: goal.ID})
	}
	defer ticker.Stop()

	metrics.CountdownStreamsActive.Inc()
	defer metrics.CountdownStreamsActive.Dec()

	for st := range ticker.C {
		st := st
		err := writeEvent(w, "tick", countdownResponse{
			GoalID:   goal.ID,
			Deadline: goal.Deadline,
			State:    &st,
			Label:    countdown.Label(st),
		})
		if err != nil {
			return nil
		}
	}
	return nil
}
