// Package server provides the HTTP API for governd.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/governd/internal/channel"
	"github.com/fyrsmithlabs/governd/internal/config"
	"github.com/fyrsmithlabs/governd/internal/meeting"
	"github.com/fyrsmithlabs/governd/internal/memorygate"
)

// Server exposes the interaction channel, meeting lifecycle and memory gate
// over HTTP.
type Server struct {
	echo     *echo.Echo
	sessions *channel.Registry
	meetings *meeting.Service
	gate     *memorygate.Gate
	logger   *zap.Logger
	config   config.ServerConfig
	metrics  *Metrics
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(sessions *channel.Registry, meetings *meeting.Service, gate *memorygate.Gate, logger *zap.Logger, cfg config.ServerConfig) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session registry cannot be nil")
	}
	if meetings == nil {
		return nil, fmt.Errorf("meeting service cannot be nil")
	}
	if gate == nil {
		return nil, fmt.Errorf("memory gate cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		sessions: sessions,
		meetings: meetings,
		gate:     gate,
		logger:   logger,
		config:   cfg,
		metrics:  NewMetrics(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(50))))
	e.Use(s.requestLogger)

	s.registerRoutes()

	return s, nil
}

// requestLogger logs every request with its duration and records metrics.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start)

		s.metrics.RecordRequest(c.Request().Method, c.Path(), c.Response().Status, duration)
		s.logger.Info("http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", duration),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)

		return err
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	ch := v1.Group("/channel/:user_id")
	ch.GET("", s.handleChannelState)
	ch.POST("/input", s.handleChannelInput)
	ch.POST("/confirm", s.handleChannelConfirm)
	ch.POST("/cancel", s.handleChannelCancel)
	ch.POST("/accept", s.handleChannelAccept)
	ch.POST("/reject", s.handleChannelReject)

	meetings := v1.Group("/meetings")
	meetings.POST("", s.handleMeetingCreate)
	meetings.GET("", s.handleMeetingList)
	meetings.GET("/:id", s.handleMeetingGet)
	meetings.POST("/:id/start", s.handleMeetingStart)
	meetings.POST("/:id/timeline", s.handleMeetingTimeline)
	meetings.POST("/:id/outputs", s.handleMeetingProposeOutput)
	meetings.POST("/:id/close", s.handleMeetingRequestClosure)
	meetings.POST("/:id/outputs/validate", s.handleMeetingValidateOutputs)
	meetings.POST("/:id/complete", s.handleMeetingComplete)
	meetings.POST("/:id/cancel", s.handleMeetingCancel)

	memory := v1.Group("/memory")
	memory.GET("/pending", s.handleMemoryPending)
	memory.POST("/propose", s.handleMemoryPropose)
	memory.POST("/:id/validate", s.handleMemoryValidate)
	memory.POST("/:id/reject", s.handleMemoryReject)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
