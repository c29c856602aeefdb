package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pbnkron/kron/internal/api/middleware"
	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

type stubGoalService struct {
	createFn func(ctx context.Context, author ports.Author, in domain.NewGoalInput) (*domain.Goal, error)
	updateFn func(ctx context.Context, ownerUID, goalID string, patch domain.GoalPatch, current *domain.Goal) error
	deleteFn func(ctx context.Context, ownerUID, goalID string, wasPublic bool) error
	getFn    func(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error)
	listFn   func(ctx context.Context, ownerUID string, filter domain.GoalFilter) ([]*domain.Goal, error)
}

func (s *stubGoalService) Create(ctx context.Context, author ports.Author, in domain.NewGoalInput) (*domain.Goal, error) {
	return s.createFn(ctx, author, in)
}

func (s *stubGoalService) Update(ctx context.Context, ownerUID, goalID string, patch domain.GoalPatch, current *domain.Goal) error {
	return s.updateFn(ctx, ownerUID, goalID, patch, current)
}

func (s *stubGoalService) Delete(ctx context.Context, ownerUID, goalID string, wasPublic bool) error {
	return s.deleteFn(ctx, ownerUID, goalID, wasPublic)
}

func (s *stubGoalService) Get(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error) {
	return s.getFn(ctx, ownerUID, goalID)
}

func (s *stubGoalService) ListMine(ctx context.Context, ownerUID string, filter domain.GoalFilter) ([]*domain.Goal, error) {
	return s.listFn(ctx, ownerUID, filter)
}

var fixedCreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newAuthedContext builds a context as the Auth middleware would leave it.
func newAuthedContext(method, target, body string, id domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newJSONContext(method, target, body)
	if id.UID != "" {
		c.Set(middleware.IdentityKey, id)
	}
	return c, rec
}

func withGoalID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

var ada = domain.Identity{UID: "uid-ada", Email: "ada@example.com"}

func TestGoalHandler_Create_Success(t *testing.T) {
	stub := &stubGoalService{
		createFn: func(ctx context.Context, author ports.Author, in domain.NewGoalInput) (*domain.Goal, error) {
			if author.UID != ada.UID || author.Email != ada.Email || author.DisplayName != "Ada L." {
				t.Fatalf("unexpected author: %+v", author)
			}
			if in.Text != "Ship v1" || in.Type != domain.GoalTypeWeekly || !in.IsPublic {
				t.Fatalf("unexpected input: %+v", in)
			}
			want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
			if in.Deadline == nil || !in.Deadline.Equal(want) {
				t.Fatalf("unexpected deadline: %v", in.Deadline)
			}
			return &domain.Goal{
				ID: "g1", OwnerUID: author.UID, Text: in.Text, Type: in.Type,
				Status: domain.StatusDoing, Deadline: in.Deadline, Public: true,
				CreatedAt: fixedCreatedAt, UpdatedAt: fixedCreatedAt,
			}, nil
		},
	}
	handler := NewGoalHandler(stub)

	c, rec := newAuthedContext(http.MethodPost, "/v1/goals",
		`{"text":"Ship v1","type":"weekly","deadline":"2026-03-10","public":true,"author_name":"Ada L."}`, ada)
	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp goalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != "g1" || resp.Status != "doing" || !resp.Public {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Links.Countdown != "/v1/goals/g1/countdown" {
		t.Fatalf("unexpected links: %+v", resp.Links)
	}
}

func TestGoalHandler_Create_EpochMillisDeadline(t *testing.T) {
	want := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	stub := &stubGoalService{
		createFn: func(ctx context.Context, author ports.Author, in domain.NewGoalInput) (*domain.Goal, error) {
			if in.Deadline == nil || !in.Deadline.Equal(want) {
				t.Fatalf("unexpected deadline: %v", in.Deadline)
			}
			return &domain.Goal{ID: "g1", Text: in.Text}, nil
		},
	}
	handler := NewGoalHandler(stub)

	body := `{"text":"Run","deadline":` + jsonInt(want.UnixMilli()) + `}`
	c, _ := newAuthedContext(http.MethodPost, "/v1/goals", body, ada)
	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestGoalHandler_Create_Rejections(t *testing.T) {
	stub := &stubGoalService{
		createFn: func(ctx context.Context, author ports.Author, in domain.NewGoalInput) (*domain.Goal, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewGoalHandler(stub)

	c, _ := newAuthedContext(http.MethodPost, "/v1/goals", `{"text":"x","type":"monthly"}`, ada)
	assertHTTPError(t, handler.Create(c), http.StatusBadRequest)

	c, _ = newAuthedContext(http.MethodPost, "/v1/goals", `{"text":""}`, ada)
	assertHTTPError(t, handler.Create(c), http.StatusBadRequest)

	c, _ = newAuthedContext(http.MethodPost, "/v1/goals", `{"text":"x","deadline":"someday"}`, ada)
	if err := handler.Create(c); !errors.Is(err, domain.ErrInvalidDeadline) {
		t.Fatalf("expected ErrInvalidDeadline, got %v", err)
	}

	c, _ = newAuthedContext(http.MethodPost, "/v1/goals", `{"text":"x"}`, domain.Identity{})
	assertHTTPError(t, handler.Create(c), http.StatusUnauthorized)
}

func TestGoalHandler_Create_PassesServiceErrors(t *testing.T) {
	syncErr := &domain.MirrorSyncError{GoalID: "g1", Step: domain.StepMirrorUpsert, Err: errors.New("unavailable")}
	stub := &stubGoalService{
		createFn: func(ctx context.Context, author ports.Author, in domain.NewGoalInput) (*domain.Goal, error) {
			return &domain.Goal{ID: "g1"}, syncErr
		},
	}
	handler := NewGoalHandler(stub)

	c, _ := newAuthedContext(http.MethodPost, "/v1/goals", `{"text":"x","public":true}`, ada)
	var got *domain.MirrorSyncError
	if err := handler.Create(c); !errors.As(err, &got) || got.GoalID != "g1" {
		t.Fatalf("expected MirrorSyncError for g1, got %v", err)
	}
}

func TestGoalHandler_List_Filter(t *testing.T) {
	stub := &stubGoalService{
		listFn: func(ctx context.Context, ownerUID string, filter domain.GoalFilter) ([]*domain.Goal, error) {
			if ownerUID != ada.UID || filter.Type != domain.GoalTypeDaily {
				t.Fatalf("unexpected args: %s %+v", ownerUID, filter)
			}
			return []*domain.Goal{{ID: "g2"}, {ID: "g1"}}, nil
		},
	}
	handler := NewGoalHandler(stub)

	c, rec := newAuthedContext(http.MethodGet, "/v1/goals?type=daily", "", ada)
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp listGoalsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[0].ID != "g2" {
		t.Fatalf("unexpected order: %+v", resp.Data)
	}

	c, _ = newAuthedContext(http.MethodGet, "/v1/goals?type=yearly", "", ada)
	if err := handler.List(c); !errors.Is(err, domain.ErrInvalidGoalType) {
		t.Fatalf("expected ErrInvalidGoalType, got %v", err)
	}
}

func TestGoalHandler_Update_SparsePatch(t *testing.T) {
	var got domain.GoalPatch
	stub := &stubGoalService{
		updateFn: func(ctx context.Context, ownerUID, goalID string, patch domain.GoalPatch, current *domain.Goal) error {
			if ownerUID != ada.UID || goalID != "g1" || current != nil {
				t.Fatalf("unexpected args: %s %s %v", ownerUID, goalID, current)
			}
			got = patch
			return nil
		},
		getFn: func(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error) {
			return &domain.Goal{ID: goalID, Status: domain.StatusDone}, nil
		},
	}
	handler := NewGoalHandler(stub)

	c, rec := newAuthedContext(http.MethodPatch, "/v1/goals/g1", `{"status":"done","public":false}`, ada)
	if err := handler.Update(withGoalID(c, "g1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Status == nil || *got.Status != domain.StatusDone {
		t.Fatalf("status not patched: %+v", got)
	}
	if got.Public == nil || *got.Public {
		t.Fatalf("public not patched: %+v", got)
	}
	if got.Text != nil || got.Type != nil || got.Deadline != nil {
		t.Fatalf("absent fields must stay nil: %+v", got)
	}
}

func TestGoalHandler_Update_NullDeadlineClears(t *testing.T) {
	var got domain.GoalPatch
	stub := &stubGoalService{
		updateFn: func(ctx context.Context, ownerUID, goalID string, patch domain.GoalPatch, current *domain.Goal) error {
			got = patch
			return nil
		},
		getFn: func(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error) {
			return &domain.Goal{ID: goalID}, nil
		},
	}
	handler := NewGoalHandler(stub)

	c, _ := newAuthedContext(http.MethodPatch, "/v1/goals/g1", `{"deadline":null}`, ada)
	if err := handler.Update(withGoalID(c, "g1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Deadline == nil || got.Deadline.At != nil {
		t.Fatalf("expected a clearing deadline change, got %+v", got.Deadline)
	}
}

func TestGoalHandler_Update_InvalidStatus(t *testing.T) {
	stub := &stubGoalService{
		updateFn: func(ctx context.Context, ownerUID, goalID string, patch domain.GoalPatch, current *domain.Goal) error {
			t.Fatalf("should not be called")
			return nil
		},
	}
	handler := NewGoalHandler(stub)

	c, _ := newAuthedContext(http.MethodPatch, "/v1/goals/g1", `{"status":"paused"}`, ada)
	assertHTTPError(t, handler.Update(withGoalID(c, "g1")), http.StatusBadRequest)
}

func TestGoalHandler_Delete_UsesStoredVisibility(t *testing.T) {
	deleted := false
	stub := &stubGoalService{
		getFn: func(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error) {
			return &domain.Goal{ID: goalID, OwnerUID: ownerUID, Public: true}, nil
		},
		deleteFn: func(ctx context.Context, ownerUID, goalID string, wasPublic bool) error {
			if !wasPublic {
				t.Fatalf("expected wasPublic=true")
			}
			deleted = true
			return nil
		},
	}
	handler := NewGoalHandler(stub)

	c, rec := newAuthedContext(http.MethodDelete, "/v1/goals/g1", "", ada)
	if err := handler.Delete(withGoalID(c, "g1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !deleted || rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 and delete, got %d deleted=%v", rec.Code, deleted)
	}
}

func TestGoalHandler_Delete_NotFound(t *testing.T) {
	stub := &stubGoalService{
		getFn: func(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error) {
			return nil, domain.ErrGoalNotFound
		},
		deleteFn: func(ctx context.Context, ownerUID, goalID string, wasPublic bool) error {
			t.Fatalf("should not be called")
			return nil
		},
	}
	handler := NewGoalHandler(stub)

	c, _ := newAuthedContext(http.MethodDelete, "/v1/goals/nope", "", ada)
	if err := handler.Delete(withGoalID(c, "nope")); !errors.Is(err, domain.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestParseDeadline(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		present bool
		isNil   bool
		wantErr bool
	}{
		{name: "absent", raw: "", present: false, isNil: true},
		{name: "null", raw: "null", present: true, isNil: true},
		{name: "empty string", raw: `""`, present: true, isNil: true},
		{name: "blank string", raw: `"   "`, present: true, isNil: true},
		{name: "zero", raw: "0", present: true, isNil: true},
		{name: "rfc3339", raw: `"2026-03-10T08:00:00Z"`, present: true},
		{name: "date only", raw: `"2026-03-10"`, present: true},
		{name: "epoch millis", raw: "1773129600000", present: true},
		{name: "garbage", raw: `"soon"`, present: true, isNil: true, wantErr: true},
		{name: "object", raw: `{"seconds":1}`, present: true, isNil: true, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			at, present, err := parseDeadline(json.RawMessage(tc.raw))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if present != tc.present {
				t.Fatalf("present = %v, want %v", present, tc.present)
			}
			if (at == nil) != tc.isNil {
				t.Fatalf("at = %v, want nil=%v", at, tc.isNil)
			}
			if at != nil && at.Location() != time.UTC {
				t.Fatalf("deadline not normalised to UTC: %v", at)
			}
		})
	}
}
