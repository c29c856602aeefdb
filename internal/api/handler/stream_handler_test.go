package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/pkg/countdown"
)

// steppingClock advances one second on every read.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

// sseEvents splits a recorded event stream into its data payloads.
func sseEvents(t *testing.T, body, event string) []countdownResponse {
	t.Helper()
	var out []countdownResponse
	for _, block := range strings.Split(body, "\n\n") {
		if !strings.HasPrefix(block, "event: "+event+"\n") {
			continue
		}
		data := strings.TrimPrefix(strings.SplitN(block, "\n", 2)[1], "data: ")
		var resp countdownResponse
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			t.Fatalf("invalid event payload %q: %v", data, err)
		}
		out = append(out, resp)
	}
	return out
}

func goalWithDeadline(deadline *time.Time) *stubGoalService {
	return &stubGoalService{
		getFn: func(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error) {
			if ownerUID != ada.UID {
				return nil, domain.ErrGoalNotFound
			}
			return &domain.Goal{ID: goalID, OwnerUID: ownerUID, Deadline: deadline}, nil
		},
	}
}

func TestCountdownHandler_Get(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(26*time.Hour + 3*time.Minute + 4*time.Second)

	h := NewCountdownHandler(goalWithDeadline(&deadline), 0)
	h.now = func() time.Time { return now }

	c, rec := newAuthedContext(http.MethodGet, "/v1/goals/g1/countdown", "", ada)
	if err := h.Get(withGoalID(c, "g1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp countdownResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.State == nil || resp.State.Days == nil || *resp.State.Days != 1 {
		t.Fatalf("unexpected state: %+v", resp.State)
	}
	if resp.Label != "Time remaining: 1d 02h 03m 04s" {
		t.Fatalf("unexpected label %q", resp.Label)
	}
}

func TestCountdownHandler_Get_NoDeadline(t *testing.T) {
	h := NewCountdownHandler(goalWithDeadline(nil), 0)

	c, rec := newAuthedContext(http.MethodGet, "/v1/goals/g1/countdown", "", ada)
	if err := h.Get(withGoalID(c, "g1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"state":null`) {
		t.Fatalf("expected null state, got %s", rec.Body.String())
	}
}

func TestCountdownHandler_Get_NotOwner(t *testing.T) {
	h := NewCountdownHandler(goalWithDeadline(nil), 0)

	c, _ := newAuthedContext(http.MethodGet, "/v1/goals/g1/countdown", "", domain.Identity{UID: "someone-else"})
	if err := h.Get(withGoalID(c, "g1")); !errors.Is(err, domain.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestCountdownHandler_Stream_EndsAfterExpiry(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := start.Add(2 * time.Second)
	clock := &steppingClock{now: start}

	h := NewCountdownHandler(goalWithDeadline(&deadline), time.Millisecond)
	h.now = clock.Now

	c, rec := newAuthedContext(http.MethodGet, "/v1/goals/g1/countdown/stream", "", ada)
	if err := h.Stream(withGoalID(c, "g1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	events := sseEvents(t, rec.Body.String(), "tick")
	if len(events) != 3 {
		t.Fatalf("expected 3 ticks (2s, 1s, expired), got %d: %s", len(events), rec.Body.String())
	}
	if events[0].Label != "Time remaining: 00h 00m 02s" {
		t.Fatalf("unexpected first label %q", events[0].Label)
	}
	last := events[len(events)-1]
	if last.State == nil || !last.State.Expired || last.Label != countdown.ExpiredLabel {
		t.Fatalf("unexpected last event: %+v", last)
	}
}

func TestCountdownHandler_Stream_NoDeadlineSingleEvent(t *testing.T) {
	h := NewCountdownHandler(goalWithDeadline(nil), time.Millisecond)

	c, rec := newAuthedContext(http.MethodGet, "/v1/goals/g1/countdown/stream", "", ada)
	if err := h.Stream(withGoalID(c, "g1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	events := sseEvents(t, rec.Body.String(), "tick")
	if len(events) != 1 || events[0].State != nil {
		t.Fatalf("expected one stateless event, got %+v", events)
	}
}

func TestCountdownHandler_Stream_StopsOnDisconnect(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(time.Hour)

	h := NewCountdownHandler(goalWithDeadline(&deadline), time.Millisecond)
	h.now = func() time.Time { return now }

	c, _ := newAuthedContext(http.MethodGet, "/v1/goals/g1/countdown/stream", "", ada)
	ctx, cancel := context.WithCancel(c.Request().Context())
	c.SetRequest(c.Request().WithContext(ctx))

	done := make(chan error, 1)
	go func() { done <- h.Stream(withGoalID(c, "g1")) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("handler error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not stop after disconnect")
	}
}

// ---- feed ----

type stubFeedService struct {
	listFn  func(ctx context.Context, filter domain.GoalFilter) ([]*domain.Mirror, error)
	watchFn func(ctx context.Context, filter domain.GoalFilter) (<-chan []*domain.Mirror, error)
}

func (s *stubFeedService) List(ctx context.Context, filter domain.GoalFilter) ([]*domain.Mirror, error) {
	return s.listFn(ctx, filter)
}

func (s *stubFeedService) Watch(ctx context.Context, filter domain.GoalFilter) (<-chan []*domain.Mirror, error) {
	return s.watchFn(ctx, filter)
}

func TestFeedHandler_List(t *testing.T) {
	stub := &stubFeedService{
		listFn: func(ctx context.Context, filter domain.GoalFilter) ([]*domain.Mirror, error) {
			if filter.Type != "" {
				t.Fatalf("expected unfiltered feed, got %+v", filter)
			}
			return []*domain.Mirror{{ID: "g1", AuthorName: "ada", Type: domain.GoalTypeOneTime}}, nil
		},
	}
	h := NewFeedHandler(stub)

	c, rec := newAuthedContext(http.MethodGet, "/v1/feed?type=all", "", ada)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp feedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].AuthorName != "ada" {
		t.Fatalf("unexpected feed: %+v", resp.Data)
	}
}

func TestFeedHandler_Stream(t *testing.T) {
	stub := &stubFeedService{
		watchFn: func(ctx context.Context, filter domain.GoalFilter) (<-chan []*domain.Mirror, error) {
			ch := make(chan []*domain.Mirror, 2)
			ch <- []*domain.Mirror{{ID: "g1", AuthorName: "ada"}}
			ch <- []*domain.Mirror{{ID: "g1", AuthorName: "Nova"}}
			close(ch)
			return ch, nil
		},
	}
	h := NewFeedHandler(stub)

	c, rec := newAuthedContext(http.MethodGet, "/v1/feed/stream", "", ada)
	if err := h.Stream(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	body := rec.Body.String()
	if n := strings.Count(body, "event: feed\n"); n != 2 {
		t.Fatalf("expected 2 feed events, got %d: %s", n, body)
	}
	if !strings.Contains(body, `"author_name":"Nova"`) {
		t.Fatalf("renamed snapshot missing: %s", body)
	}
}

func TestFeedHandler_Stream_BadFilter(t *testing.T) {
	h := NewFeedHandler(&stubFeedService{})

	c, _ := newAuthedContext(http.MethodGet, "/v1/feed/stream?type=hourly", "", ada)
	if err := h.Stream(c); !errors.Is(err, domain.ErrInvalidGoalType) {
		t.Fatalf("expected ErrInvalidGoalType, got %v", err)
	}
}
