// Package api serves the identity operations as a JSON HTTP API.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lukman83/beast-antidetect/internal/models"
	"go.uber.org/zap"
)

// Banner is served on GET /.
const Banner = "Beast Antidetection Browser Backend"

// Identity is the set of operations the API exposes.
type Identity interface {
	GenerateFingerprint(candidate *models.Fingerprint) models.Fingerprint
	QueryIP(ctx context.Context, spec models.LaunchSpec) (*models.IPResult, error)
	Snapshot(ctx context.Context, spec models.LaunchSpec, target string, includeCookies bool) (*models.SnapshotResult, error)
	Cookies(ctx context.Context, spec models.LaunchSpec, target string) (*models.CookiesResult, error)
	RunBulk(ctx context.Context, specs []models.LaunchSpec, policy models.BulkPolicy) (*models.BulkReport, error)
}

type Server struct {
	e      *echo.Echo
	svc    Identity
	logger *zap.Logger
}

// NewServer wires the routes. A non-empty apiKey protects /api/* with
// bearer authentication.
func NewServer(svc Identity, apiKey string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{e: echo.New(), svc: svc, logger: logger.Named("api")}

	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Logger.SetOutput(io.Discard)
	s.e.HTTPErrorHandler = s.handleError

	s.e.Use(middleware.Recover())
	s.e.Use(middleware.BodyLimit("2M"))
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			s.logger.Info("request", fields...)
			return nil
		},
	}))

	s.e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, Banner)
	})
	s.e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	g := s.e.Group("/api")
	if apiKey != "" {
		g.Use(bearerAuth(apiKey))
	}
	g.GET("/fingerprint", s.fingerprint)
	g.POST("/fingerprint", s.fingerprint)
	g.POST("/launch", s.launch)
	g.POST("/snapshot", s.snapshot)
	g.POST("/cookies", s.cookies)
	g.POST("/bulk", s.bulk)

	return s
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler { return s.e }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.e.Server.ReadTimeout = 30 * time.Second
	// Bulk runs and snapshots can take minutes.
	s.e.Server.WriteTimeout = 0
	s.e.Server.IdleTimeout = 120 * time.Second

	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

type errorBody struct {
	Error     string `json:"error"`
	Completed *int   `json:"completed,omitempty"`
}

// handleError renders every failure as {"error": "..."}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	body := errorBody{Error: err.Error()}

	var he *echo.HTTPError
	var abort *models.BulkAbortError
	switch {
	case errors.As(err, &he):
		code = he.Code
		body.Error = fmt.Sprint(he.Message)
	case errors.As(err, &abort):
		body.Completed = &abort.Completed
	}
	if code >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}
	if err := c.JSON(code, body); err != nil {
		s.logger.Debug("write error response", zap.Error(err))
	}
}

func bearerAuth(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="beast"`)
				return echo.NewHTTPError(http.StatusUnauthorized, "missing Authorization header")
			}
			token, found := strings.CutPrefix(auth, "Bearer ")
			if !found || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="beast", error="invalid_token"`)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			return next(c)
		}
	}
}
