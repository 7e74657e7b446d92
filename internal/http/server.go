// Package http provides the HTTP API for carad.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/caralabs/carad/internal/answerstore"
	"github.com/caralabs/carad/internal/coordinator"
	"github.com/caralabs/carad/internal/modules"
)

// Server provides HTTP endpoints for carad.
type Server struct {
	echo   *echo.Echo
	coord  *coordinator.Coordinator
	store  answerstore.Store
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(coord *coordinator.Coordinator, store answerstore.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if coord == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("answer store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8000,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:   e,
		coord:  coord,
		store:  store,
		logger: logger,
		config: cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/chat", s.handleChat)
	v1.GET("/tasks/:id", s.handleTaskStatus)
	v1.GET("/modules", s.handleModules)
	v1.POST("/admin/qa", s.handleAddQA)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleChat submits a query to the coordinator. Answers found in the
// cache or the answer store return 200; fresh generations return 202
// with a task id for polling.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid chat request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := s.coord.Submit(c.Request().Context(), req.Subject, req.Query, req.Module)
	if err != nil {
		switch {
		case errors.Is(err, coordinator.ErrInvalidSubmission):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, coordinator.ErrShuttingDown):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "service is shutting down")
		default:
			s.logger.Error("chat submission failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "error processing request")
		}
	}

	if resp.Pending() {
		return c.JSON(http.StatusAccepted, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// handleTaskStatus reports the state of a background generation task.
// Pending tasks return 200 with a processing indicator; unknown or
// expired ids return 404.
func (s *Server) handleTaskStatus(c echo.Context) error {
	resp, err := s.coord.Poll(c.Param("id"))
	if err != nil {
		if errors.Is(err, coordinator.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		s.logger.Error("task poll failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "error polling task")
	}
	return c.JSON(http.StatusOK, resp)
}

// handleModules lists the compliance assistant catalog.
func (s *Server) handleModules(c echo.Context) error {
	return c.JSON(http.StatusOK, modules.All())
}

// handleAddQA adds a curated QA pair to a module's knowledge collection.
func (s *Server) handleAddQA(c echo.Context) error {
	var req AddQARequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid QA request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Question == "" || req.Answer == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question and answer fields are required")
	}

	if err := s.store.AddQA(c.Request().Context(), req.Module, req.Question, req.Answer, req.Metadata); err != nil {
		if errors.Is(err, answerstore.ErrEmptyDocument) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		s.logger.Error("failed to add QA pair", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "error storing QA pair")
	}

	return c.JSON(http.StatusCreated, StatusResponse{Status: "success", Message: "QA pair added successfully"})
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
