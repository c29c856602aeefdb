package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pbnkron/kron/internal/api/metrics"
	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

const defaultHeartbeat = 15 * time.Second

// FeedHandler serves the shared public feed.
type FeedHandler struct {
	feed      ports.FeedService
	heartbeat time.Duration
}

func NewFeedHandler(feed ports.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed, heartbeat: defaultHeartbeat}
}

// List handles GET /v1/feed.
//
// @Summary      Public feed
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        type  query     string  false  "all, one, daily or weekly"
// @Success      200   {object}  feedResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/feed [get]
func (h *FeedHandler) List(c echo.Context) error {
	filter, err := domain.ParseGoalFilter(c.QueryParam("type"))
	if err != nil {
		return err
	}

	mirrors, err := h.feed.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, feedResponse{Data: toMirrorResponses(mirrors)})
}

// Stream handles GET /v1/feed/stream.
//
// @Summary      Live public feed
// @Description  Server-sent "feed" events, each carrying the full current result set.
// @Tags         feed
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        type  query     string  false  "all, one, daily or weekly"
// @Success      200   {object}  feedResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/feed/stream [get]
func (h *FeedHandler) Stream(c echo.Context) error {
	filter, err := domain.ParseGoalFilter(c.QueryParam("type"))
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	snapshots, err := h.feed.Watch(ctx, filter)
	if err != nil {
		return err
	}

	w := openStream(c)
	metrics.FeedStreamsActive.Inc()
	defer metrics.FeedStreamsActive.Dec()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if err := writeComment(w, "ping"); err != nil {
				return nil
			}
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			if err := writeEvent(w, "feed", feedResponse{Data: toMirrorResponses(snap)}); err != nil {
				return nil
			}
		}
	}
}
