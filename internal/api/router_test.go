package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/pbnkron/kron/internal/api/middleware"
	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/service"
	"github.com/pbnkron/kron/internal/infrastructure/db/memory"
	"github.com/pbnkron/kron/internal/infrastructure/http/handlers"
	"github.com/pbnkron/kron/internal/infrastructure/identity"
)

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	log := zerolog.Nop()
	store := memory.New().Ports()
	jwt := identity.NewJWTProvider("test-secret", time.Hour)

	return NewRouter(Deps{
		Log:       log,
		Identity:  jwt,
		Auth:      service.NewAuthService(store.Auth, store.Profiles, jwt),
		Goals:     service.NewGoalSyncService(store.Goals, store.Mirrors, store.Profiles, nil, nil, log),
		Feed:      service.NewFeedService(store.Mirrors, store.Feed),
		Profiles:  service.NewProfileService(store.Profiles, store.Mirrors, log),
		Reconcile: service.NewReconcileService(store.Goals, store.Mirrors, store.Profiles, log),
		Checks:    map[string]handlers.Check{"store": store.Ping},
		Limiter:   middleware.NewRateLimiter(1000, 1000),
		Registry:  prometheus.NewRegistry(),
	})
}

type client struct {
	t     *testing.T
	e     *echo.Echo
	token string
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	return rec
}

func (c *client) expect(rec *httptest.ResponseRecorder, code int, out any) {
	c.t.Helper()
	if rec.Code != code {
		c.t.Fatalf("expected %d, got %d: %s", code, rec.Code, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			c.t.Fatalf("invalid json: %v", err)
		}
	}
}

type feedBody struct {
	Data []struct {
		ID         string `json:"id"`
		AuthorName string `json:"author_name"`
		Text       string `json:"text"`
	} `json:"data"`
}

func TestRouter_GoalLifecycle(t *testing.T) {
	c := &client{t: t, e: newTestRouter(t)}

	c.expect(c.do(http.MethodPost, "/auth/register", `{"email":"ada@example.com","password":"secret1"}`), http.StatusCreated, nil)

	var login struct {
		Token string `json:"token"`
	}
	c.expect(c.do(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"secret1"}`), http.StatusOK, &login)
	if login.Token == "" {
		t.Fatalf("expected token")
	}
	c.token = login.Token

	var profile struct {
		Username string `json:"username"`
	}
	c.expect(c.do(http.MethodGet, "/v1/profile", ""), http.StatusOK, &profile)
	if profile.Username != "ada" {
		t.Fatalf("expected default username ada, got %q", profile.Username)
	}

	var goal struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Public bool   `json:"public"`
	}
	c.expect(c.do(http.MethodPost, "/v1/goals", `{"text":"Ship v1","type":"one","public":true,"deadline":"2030-01-01"}`), http.StatusCreated, &goal)
	if goal.Status != "doing" || !goal.Public {
		t.Fatalf("unexpected goal: %+v", goal)
	}

	var feed feedBody
	c.expect(c.do(http.MethodGet, "/v1/feed", ""), http.StatusOK, &feed)
	if len(feed.Data) != 1 || feed.Data[0].ID != goal.ID || feed.Data[0].AuthorName != "ada" {
		t.Fatalf("unexpected feed after create: %+v", feed.Data)
	}

	c.expect(c.do(http.MethodPut, "/v1/profile/username", `{"username":"Nova"}`), http.StatusOK, nil)
	c.expect(c.do(http.MethodGet, "/v1/feed", ""), http.StatusOK, &feed)
	if len(feed.Data) != 1 || feed.Data[0].AuthorName != "Nova" {
		t.Fatalf("rename did not reach the feed: %+v", feed.Data)
	}

	c.expect(c.do(http.MethodPatch, "/v1/goals/"+goal.ID, `{"text":"Ship v1.1"}`), http.StatusOK, nil)
	c.expect(c.do(http.MethodGet, "/v1/feed", ""), http.StatusOK, &feed)
	if len(feed.Data) != 1 || feed.Data[0].Text != "Ship v1.1" || feed.Data[0].AuthorName != "Nova" {
		t.Fatalf("update did not reach the feed: %+v", feed.Data)
	}

	c.expect(c.do(http.MethodPatch, "/v1/goals/"+goal.ID, `{"public":false}`), http.StatusOK, nil)
	c.expect(c.do(http.MethodGet, "/v1/feed", ""), http.StatusOK, &feed)
	if len(feed.Data) != 0 {
		t.Fatalf("private goal still in feed: %+v", feed.Data)
	}

	var countdown struct {
		Label string `json:"label"`
	}
	c.expect(c.do(http.MethodGet, "/v1/goals/"+goal.ID+"/countdown", ""), http.StatusOK, &countdown)
	if !strings.HasPrefix(countdown.Label, "Time remaining: ") {
		t.Fatalf("unexpected countdown label %q", countdown.Label)
	}

	c.expect(c.do(http.MethodPost, "/v1/reconcile", ""), http.StatusOK, nil)

	c.expect(c.do(http.MethodDelete, "/v1/goals/"+goal.ID, ""), http.StatusNoContent, nil)
	c.expect(c.do(http.MethodGet, "/v1/goals/"+goal.ID, ""), http.StatusNotFound, nil)
}

func TestRouter_ErrorMapping(t *testing.T) {
	c := &client{t: t, e: newTestRouter(t)}

	var errBody errorResponse
	c.expect(c.do(http.MethodGet, "/v1/goals", ""), http.StatusUnauthorized, &errBody)
	if errBody.Error == "" {
		t.Fatalf("expected error envelope")
	}

	c.expect(c.do(http.MethodPost, "/auth/register", `{"email":"bob@example.com","password":"secret1"}`), http.StatusCreated, nil)
	c.expect(c.do(http.MethodPost, "/auth/register", `{"email":"bob@example.com","password":"secret1"}`), http.StatusConflict, nil)
	c.expect(c.do(http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"wrong-pass"}`), http.StatusUnauthorized, nil)

	var login struct {
		Token string `json:"token"`
	}
	c.expect(c.do(http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"secret1"}`), http.StatusOK, &login)
	c.token = login.Token

	c.expect(c.do(http.MethodPost, "/v1/goals", `{"text":"   "}`), http.StatusBadRequest, nil)
	c.expect(c.do(http.MethodGet, "/v1/goals?type=monthly", ""), http.StatusBadRequest, nil)
	c.expect(c.do(http.MethodGet, "/v1/goals/missing", ""), http.StatusNotFound, nil)
	c.expect(c.do(http.MethodPut, "/v1/profile/username", `{"username":" "}`), http.StatusBadRequest, nil)
}

func TestRouter_ProbesAndMetrics(t *testing.T) {
	c := &client{t: t, e: newTestRouter(t)}

	c.expect(c.do(http.MethodGet, "/health", ""), http.StatusOK, nil)
	c.expect(c.do(http.MethodGet, "/health/ready", ""), http.StatusOK, nil)

	rec := c.do(http.MethodGet, "/metrics", "")
	c.expect(rec, http.StatusOK, nil)
	if !strings.Contains(rec.Body.String(), "kron_requests_total") {
		t.Fatalf("expected echo request metrics, got:\n%s", rec.Body.String())
	}
}

func TestRouter_WritesAreRateLimited(t *testing.T) {
	log := zerolog.Nop()
	store := memory.New().Ports()
	jwt := identity.NewJWTProvider("test-secret", time.Hour)
	e := NewRouter(Deps{
		Log:      log,
		Identity: jwt,
		Goals:    service.NewGoalSyncService(store.Goals, store.Mirrors, store.Profiles, nil, nil, log),
		Feed:     service.NewFeedService(store.Mirrors, store.Feed),
		Profiles: service.NewProfileService(store.Profiles, store.Mirrors, log),
		Limiter:  middleware.NewRateLimiter(0.001, 1),
		Registry: prometheus.NewRegistry(),
	})

	token, err := jwt.Issue(domain.Identity{UID: "uid-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c := &client{t: t, e: e, token: token}

	c.expect(c.do(http.MethodPost, "/v1/goals", `{"text":"one"}`), http.StatusCreated, nil)
	c.expect(c.do(http.MethodPost, "/v1/goals", `{"text":"two"}`), http.StatusTooManyRequests, nil)
	// Reads are not throttled.
	c.expect(c.do(http.MethodGet, "/v1/goals", ""), http.StatusOK, nil)
}
