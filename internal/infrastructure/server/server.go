package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/lifeplanner/core/docs"
	httpHandlers "github.com/lifeplanner/core/internal/adapters/http"
	"github.com/lifeplanner/core/internal/application/services"
	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/infrastructure/auth"
	"github.com/lifeplanner/core/internal/infrastructure/config"
	"github.com/lifeplanner/core/internal/infrastructure/logger"
	"github.com/lifeplanner/core/internal/infrastructure/metrics"
)

// HealthChecker reports whether the backing database answers.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// PoolReporter is a HealthChecker that also exposes connection pool
// statistics. /ready includes them under "database".
type PoolReporter interface {
	GetConnectionInfo() map[string]interface{}
}

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	health  HealthChecker
	issuer  *auth.Issuer
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator used for request payloads, with the
// notblank tag registered.
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &CustomValidator{validator: v}
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance serving ws. health and m may be nil.
func New(cfg *config.Config, ws *services.Workspace, health HealthChecker, appLogger *logger.Logger, m *metrics.Metrics) *Server {
	e := echo.New()

	e.Validator = NewValidator()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	s := &Server{
		echo:    e,
		config:  cfg,
		logger:  appLogger,
		metrics: m,
		health:  health,
	}
	if cfg.Auth.AuthEnabled() {
		s.issuer = auth.NewIssuer(cfg.Auth)
	}

	s.setupMiddleware()
	if m != nil && cfg.Metrics.Enabled {
		s.setupMetrics()
	}
	s.setupRoutes(httpHandlers.NewHandler(ws, appLogger.WithComponent("http")))

	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
			}

			reqLogger := s.logger.WithRequestID(values.RequestID)
			if values.Error != nil {
				reqLogger.WithError(values.Error).Warnw("HTTP request failed", fields...)
			} else {
				reqLogger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost},
	}))

	if s.config.Security.RateLimitRequests > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      requestRate(s.config.Security.RateLimitRequests, s.config.Security.RateLimitWindow),
				Burst:     s.config.Security.RateLimitRequests,
				ExpiresIn: s.config.Security.RateLimitWindow,
			}),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(context echo.Context, err error) error {
				return context.JSON(http.StatusForbidden, httpHandlers.ErrorResponse{Message: "rate limit exceeded"})
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				return context.JSON(http.StatusTooManyRequests, httpHandlers.ErrorResponse{Message: "rate limit exceeded"})
			},
		}))
	}

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	s.echo.Use(middleware.RequestID())

	if timeout := s.config.Server.WriteTimeout; timeout > 0 {
		s.echo.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: timeout,
		}))
	}
}

// requestRate spreads n requests evenly over window.
func requestRate(n int, window time.Duration) rate.Limit {
	if window <= 0 {
		return rate.Limit(n)
	}
	return rate.Limit(float64(n) / window.Seconds())
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(handler *httpHandlers.Handler) {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := s.echo.Group("/api/v1")
	if s.issuer != nil {
		v1.Use(s.authMiddleware())
	}
	handler.Register(v1)
}

// setupMetrics records every request on the shared registry and serves it.
func (s *Server) setupMetrics() {
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status, _ = statusFor(err)
			}

			s.metrics.HTTPRequests.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()
			s.metrics.HTTPDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	})

	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.config.App.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	if s.health != nil {
		if err := s.health.HealthCheck(c.Request().Context()); err != nil {
			s.logger.WithError(err).Warnw("Readiness check failed")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": "database_not_ready",
			})
		}
	}

	resp := map[string]interface{}{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if pool, ok := s.health.(PoolReporter); ok {
		resp["database"] = pool.GetConnectionInfo()
	}
	return c.JSON(http.StatusOK, resp)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	address := s.config.Server.Addr()
	s.logger.Infow("Starting server", "address", address)

	srv := &http.Server{
		Addr:         address,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
	return s.echo.StartServer(srv)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// statusFor maps domain errors to a status code and a client-facing message.
// Unrecognised errors map to 500 with a generic message.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}

	switch {
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, entities.ErrValidation),
		errors.Is(err, entities.ErrNoFieldsToUpdate),
		errors.Is(err, entities.ErrInvalidStatus),
		errors.Is(err, entities.ErrInvalidPriority),
		errors.Is(err, entities.ErrInvalidKind),
		errors.Is(err, entities.ErrDanglingParent):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, entities.ErrCompletionUnsupported):
		return http.StatusUnprocessableEntity, err.Error()
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, verrs.Error()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, msg := statusFor(err)

		if code == http.StatusInternalServerError {
			logger.WithError(err).Errorw("Internal server error", "path", c.Request().URL.Path)
		}

		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, httpHandlers.ErrorResponse{Message: msg})
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
