package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/pbnkron/kron/internal/api/handler"
	"github.com/pbnkron/kron/internal/api/middleware"
	"github.com/pbnkron/kron/internal/core/ports"
	"github.com/pbnkron/kron/internal/infrastructure/http/handlers"
)

// Deps are the services the router exposes. Auth is nil when tokens come
// from an external identity provider.
type Deps struct {
	Log       zerolog.Logger
	Identity  ports.IdentityProvider
	Auth      ports.AuthService
	Goals     ports.GoalSyncService
	Feed      ports.FeedService
	Profiles  ports.ProfileService
	Reconcile ports.ReconcileService

	// Checks are the readiness probes, keyed by dependency name.
	Checks map[string]handlers.Check

	Limiter           *middleware.RateLimiter
	CountdownInterval time.Duration

	// Registry receives the HTTP metrics and backs /metrics. Nil uses the
	// default Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "kron",
		Registerer: registerer(d.Registry),
	}))

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", metricsHandler(d.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes (local identity provider only) ---
	if d.Auth != nil {
		authHandler := handler.NewAuthHandler(d.Auth)
		e.POST("/auth/register", authHandler.Register)
		e.POST("/auth/login", authHandler.Login)
	}

	// --- Authenticated API ---
	v1 := e.Group("/v1", middleware.Auth(d.Identity))

	throttle := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if d.Limiter != nil {
		throttle = d.Limiter.Middleware()
	}

	profileHandler := handler.NewProfileHandler(d.Profiles)
	v1.GET("/profile", profileHandler.Get)
	v1.PUT("/profile/username", profileHandler.Rename, throttle)

	goalHandler := handler.NewGoalHandler(d.Goals)
	v1.POST("/goals", goalHandler.Create, throttle)
	v1.GET("/goals", goalHandler.List)
	v1.GET("/goals/:id", goalHandler.Get)
	v1.PATCH("/goals/:id", goalHandler.Update, throttle)
	v1.DELETE("/goals/:id", goalHandler.Delete, throttle)

	countdownHandler := handler.NewCountdownHandler(d.Goals, d.CountdownInterval)
	v1.GET("/goals/:id/countdown", countdownHandler.Get)
	v1.GET("/goals/:id/countdown/stream", countdownHandler.Stream)

	feedHandler := handler.NewFeedHandler(d.Feed)
	v1.GET("/feed", feedHandler.List)
	v1.GET("/feed/stream", feedHandler.Stream)

	reconcileHandler := handler.NewReconcileHandler(d.Reconcile)
	v1.POST("/reconcile", reconcileHandler.Run, throttle)

	return e
}

func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return prometheus.DefaultRegisterer
	}
	return reg
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}

// requestLogger writes one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
