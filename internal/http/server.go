// Package http provides the HTTP API of memberqa.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/answer"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/index"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/logging"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/qa"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/retrieval"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/timestamp"
)

// QA is the question answering service behind the API.
type QA interface {
	Ask(ctx context.Context, question string) (qa.Answer, error)
	Refresh(ctx context.Context, force bool) (qa.RefreshStats, error)
	Status() qa.Status
}

// Server provides HTTP endpoints for memberqa.
type Server struct {
	echo    *echo.Echo
	qa      QA
	logger  *logging.Logger
	config  *Config
	metrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// RequestTimeout bounds question answering requests; 0 disables it.
	RequestTimeout time.Duration
	// AllowOrigins lists CORS origins; empty allows any origin.
	AllowOrigins []string
	// Version is reported by /health.
	Version string
}

// NewServer creates a new HTTP server.
func NewServer(svc QA, logger *logging.Logger, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("qa service cannot be nil")
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

	s := &Server{
		echo:    e,
		qa:      svc,
		logger:  logger,
		config:  cfg,
		metrics: NewHTTPMetrics(logger.Underlying()),
	}

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))
	e.Use(s.requestLogger())
	e.Use(s.metrics.MetricsMiddleware())

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	var timeout []echo.MiddlewareFunc
	if s.config.RequestTimeout > 0 {
		timeout = append(timeout, middleware.ContextTimeout(s.config.RequestTimeout))
	}

	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/ask", s.handleAsk, timeout...)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/ask", s.handleAskDetail, timeout...)
	v1.POST("/reindex", s.handleReindex)
}

// requestLogger logs every request with its request id attached to the
// request context.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			s.logger.Info(ctx, "http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	}
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, RootResponse{Message: WelcomeMessage})
}

// handleHealth reports readiness. It answers 503 until the first refresh
// completes.
func (s *Server) handleHealth(c echo.Context) error {
	st := s.qa.Status()
	resp := HealthResponse{
		Status:   "ok",
		Version:  s.config.Version,
		Members:  st.Members,
		Messages: st.Messages,
	}
	if !st.LastRefresh.IsZero() {
		t := st.LastRefresh.UTC()
		resp.LastRefresh = &t
	}
	if !st.Ready {
		resp.Status = "starting"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// handleAsk serves GET /ask?question=.
func (s *Server) handleAsk(c echo.Context) error {
	ans, err := s.qa.Ask(c.Request().Context(), c.QueryParam("question"))
	if err != nil {
		return s.writeError(c, err)
	}

	used := make([]string, len(ans.Context))
	for i, m := range ans.Context {
		used[i] = m.Text
	}
	return c.JSON(http.StatusOK, AskResponse{
		Question:     ans.Question,
		DetectedUser: optional(ans.DetectedUser),
		Answer:       ans.Answer,
		Confidence:   ans.Confidence,
		ContextUsed:  used,
	})
}

// handleAskDetail serves POST /api/v1/ask with the full supporting context.
func (s *Server) handleAskDetail(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid ask request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: CodeInvalidRequest, Message: "invalid request body"})
	}

	ans, err := s.qa.Ask(c.Request().Context(), req.Question)
	if err != nil {
		return s.writeError(c, err)
	}

	msgs := make([]ContextMessage, len(ans.Context))
	for i, m := range ans.Context {
		msgs[i] = contextMessage(m)
	}
	return c.JSON(http.StatusOK, AskDetailResponse{
		Question:     ans.Question,
		DetectedUser: optional(ans.DetectedUser),
		DetectTier:   ans.DetectTier,
		Answer:       ans.Answer,
		Confidence:   ans.Confidence,
		Context:      msgs,
	})
}

// handleReindex reloads messages and syncs the index. The refresh outlives a
// disconnected client so that a started build is not abandoned.
func (s *Server) handleReindex(c echo.Context) error {
	var req ReindexRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: CodeInvalidRequest, Message: "invalid request body"})
		}
	}

	ctx := context.WithoutCancel(c.Request().Context())
	stats, err := s.qa.Refresh(ctx, req.Force)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, ReindexResponse{
		Messages:   stats.Messages,
		Members:    stats.Members,
		Rebuilt:    stats.Rebuilt,
		DurationMs: float64(stats.Duration.Microseconds()) / 1000,
	})
}

// writeError maps service errors to status codes. Retrieval and generation
// failures are reported as upstream failures, never as an empty answer.
func (s *Server) writeError(c echo.Context, err error) error {
	ctx := c.Request().Context()

	var (
		status int
		code   string
		msg    string
	)
	switch {
	case errors.Is(err, qa.ErrEmptyQuestion), errors.Is(err, qa.ErrQuestionTooLong):
		status, code, msg = http.StatusBadRequest, CodeInvalidRequest, err.Error()
	case errors.Is(err, qa.ErrNotReady):
		status, code, msg = http.StatusServiceUnavailable, CodeNotReady, "index is still loading"
	case errors.Is(err, index.ErrBuildInProgress):
		status, code, msg = http.StatusConflict, CodeReindexBusy, "a reindex is already running"
	case errors.Is(err, retrieval.ErrRetrieval):
		status, code, msg = http.StatusBadGateway, CodeRetrievalFailed, "could not search messages"
	case errors.Is(err, answer.ErrGeneration):
		status, code, msg = http.StatusBadGateway, CodeGenerationFailed, "could not generate an answer"
	case errors.Is(err, context.DeadlineExceeded):
		status, code, msg = http.StatusGatewayTimeout, CodeInternal, "request timed out"
	default:
		status, code, msg = http.StatusInternalServerError, CodeInternal, "internal error"
	}

	if status >= 500 {
		s.logger.Error(ctx, "request failed", zap.Int("status", status), zap.Error(err))
	}
	return c.JSON(status, ErrorResponse{Error: code, Message: msg})
}

func contextMessage(m retrieval.Message) ContextMessage {
	cm := ContextMessage{
		ID:       m.ID,
		Text:     m.Text,
		UserName: m.UserName,
		UserID:   m.UserID,
		Distance: m.Distance,
	}
	if !timestamp.IsMin(m.Timestamp) {
		t := m.Timestamp
		cm.Timestamp = &t
	}
	return cm
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Handler returns the root handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	addr := s.Addr()
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
