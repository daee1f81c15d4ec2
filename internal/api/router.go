package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/99minutos/user-accounts/docs"
	"github.com/99minutos/user-accounts/internal/api/handler"
	"github.com/99minutos/user-accounts/internal/api/middleware"
	"github.com/99minutos/user-accounts/internal/core/domain"
	"github.com/99minutos/user-accounts/internal/core/ports"
)

// RateLimit bounds per-client request rates on the credential endpoints.
// A zero RPS disables the limiter.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Deps carries everything the router wires into handlers and middleware.
type Deps struct {
	AuthService ports.AuthService
	UserService ports.UserService
	Access      middleware.RoleGate
	Readiness   map[string]handler.Pinger
	Logger      zerolog.Logger
	RateLimit   RateLimit

	// CORSOrigins lists the browser origins allowed to call the API.
	// Empty allows any origin.
	CORSOrigins []string

	// Nil values fall back to the Prometheus default registry.
	MetricsRegisterer prometheus.Registerer
	MetricsGatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	}))
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "accounts",
		Registerer: d.MetricsRegisterer,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	userHandler := handler.NewUserHandler(d.UserService)
	authMiddleware := middleware.Auth(d.AuthService)
	adminOnly := middleware.RequireRole(d.Access, domain.RoleAdmin)

	e.GET("/", welcome)

	// --- Auth routes ---
	apiGroup := e.Group("/api")
	limiter := credentialLimiter(d.RateLimit)
	apiGroup.POST("/register", authHandler.Register, limiter...)
	apiGroup.POST("/token", authHandler.Token, limiter...)
	apiGroup.POST("/login", authHandler.Login, limiter...)

	// --- Authenticated routes ---
	apiGroup.GET("/me", authHandler.Me, authMiddleware)
	apiGroup.GET("/users", userHandler.List, authMiddleware, adminOnly)
	apiGroup.PUT("/users/:id", userHandler.Update, authMiddleware)
	apiGroup.DELETE("/users/:id", userHandler.Delete, authMiddleware, adminOnly)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Readiness, d.Logger)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: d.MetricsGatherer,
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// welcome
//
// @Summary  Welcome
// @Tags     health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   / [get]
func welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Welcome to the user accounts API",
	})
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= http.StatusInternalServerError {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

func credentialLimiter(cfg RateLimit) []echo.MiddlewareFunc {
	if cfg.RPS <= 0 {
		return nil
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RPS),
		Burst:     cfg.Burst,
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})}
}
