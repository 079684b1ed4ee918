// Package server exposes article generation over HTTP: a submit endpoint
// that returns a task id immediately, and a poll endpoint for the outcome.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wikigen/wikigen/internal/agent/core"
	"github.com/wikigen/wikigen/internal/config"
)

// ArticleGenerator is the pipeline capability the server needs.
type ArticleGenerator interface {
	Run(ctx context.Context, params core.RunParams) core.RunResult
}

// Server is the HTTP front end.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	generator ArticleGenerator
	store     TaskStore
	logger    *log.Logger
}

// New assembles the routes and middleware.
func New(cfg *config.Config, generator ArticleGenerator, store TaskStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.HTTPErrorHandler = jsonErrorHandler(logger)

	s := &Server{echo: e, cfg: cfg, generator: generator, store: store, logger: logger}

	e.GET("/", s.handleRoot)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	api := e.Group("/api")
	api.POST("/generate", s.handleGenerate)
	api.GET("/status/:id", s.handleStatus)
	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	addr := s.cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Printf("[SERVER] listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routes for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": "wikigen",
		"endpoints": []string{
			"POST /api/generate",
			"GET /api/status/{id}",
			"GET /healthz",
			"GET /metrics",
		},
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Topic    string `json:"topic"`
	MinWords int    `json:"min_words"`
	Sections int    `json:"sections"`
}

// handleGenerate accepts a topic and schedules generation in the
// background, answering with the task id right away.
func (s *Server) handleGenerate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic is required")
	}

	now := time.Now()
	rec := TaskRecord{
		ID:        uuid.NewString(),
		Topic:     req.Topic,
		Status:    TaskProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(c.Request().Context(), rec); err != nil {
		return fmt.Errorf("schedule task: %w", err)
	}

	go s.runTask(rec, core.RunParams{
		Topic:    req.Topic,
		MinWords: req.MinWords,
		Sections: req.Sections,
	})

	return c.JSON(http.StatusAccepted, map[string]string{
		"task_id": rec.ID,
		"status":  rec.Status,
	})
}

// runTask drives one generation to completion under the configured
// processing deadline and records the outcome.
func (s *Server) runTask(rec TaskRecord, params core.RunParams) {
	maxTime := s.cfg.General.MaxProcessingTime
	if maxTime == 0 {
		maxTime = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), maxTime)
	defer cancel()

	res := s.generator.Run(ctx, params)
	rec.UpdatedAt = time.Now()
	rec.ProcessingTime = res.ProcessingTime
	switch res.Status {
	case core.StatusSuccess:
		rec.Status = TaskCompleted
		rec.Article = res.Article
		rec.Validated = res.Validated
	default:
		rec.Status = TaskError
		rec.Error = res.Error
	}
	// the run context is expired when the deadline ended the run; the
	// outcome must still be recorded or the task polls as processing forever
	storeCtx, storeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer storeCancel()
	if err := s.store.Put(storeCtx, rec); err != nil {
		s.logger.Printf("[SERVER] task %s: persisting result failed: %v", rec.ID, err)
	}
}

// handleStatus reports a task's progress. The response shape depends on the
// task state.
func (s *Server) handleStatus(c echo.Context) error {
	id := c.Param("id")
	rec, ok, err := s.store.Get(c.Request().Context(), id)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}

	body := map[string]interface{}{
		"task_id":    rec.ID,
		"topic":      rec.Topic,
		"status":     rec.Status,
		"created_at": rec.CreatedAt,
	}
	switch rec.Status {
	case TaskCompleted:
		body["article"] = rec.Article
		body["validated"] = rec.Validated
		body["processing_time"] = rec.ProcessingTime
		body["completed_at"] = rec.UpdatedAt
	case TaskError:
		body["error"] = rec.Error
		body["processing_time"] = rec.ProcessingTime
		body["completed_at"] = rec.UpdatedAt
	}
	return c.JSON(http.StatusOK, body)
}

// jsonErrorHandler renders every error as a uniform JSON envelope.
func jsonErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		message := "internal server error"
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			message = fmt.Sprintf("%v", he.Message)
		} else {
			logger.Printf("[SERVER] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		}
		if c.Response().Committed {
			return
		}
		_ = c.JSON(code, map[string]string{"error": message})
	}
}
