// Package api exposes the analytics modules as JSON tools over HTTP.
//
// Every analytics endpoint triggers a fresh pipeline run so that answers
// always reflect the current ledger. The handlers add no behavior of their
// own beyond request binding and error mapping.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/categorizer"
	"fjacquet/fin-insights/internal/goal"
	"fjacquet/fin-insights/internal/insights"
	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/pipeline"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Engine   *categorizer.Engine
	Runner   *pipeline.Runner
	Insights *insights.Service
	// Debts are used by the debt tool when the request carries none.
	Debts []models.Debt
	Goal  goal.Options
	// MinConfidence below which a categorization is flagged for review.
	MinConfidence float64
}

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	Logger         logging.Logger
	// Version is reported by /health.
	Version string
	Now     func() time.Time
}

// Server holds the router and its dependencies.
type Server struct {
	deps    Deps
	logger  logging.Logger
	version string
	now     func() time.Time
	router  *gin.Engine
}

// NewServer builds the router. Call gin.SetMode before it to silence the
// debug banner.
func NewServer(deps Deps, opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		deps:    deps,
		logger:  logging.OrNop(opts.Logger),
		version: opts.Version,
		now:     now,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  opts.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
	router.Use(s.requestLogger())

	router.GET("/health", s.health)
	tools := router.Group("/tools")
	{
		tools.POST("/categorize", s.categorize)
		tools.POST("/feedback", s.feedback)
		tools.GET("/budgets", s.budgets)
		tools.GET("/anomalies", s.anomalies)
		tools.GET("/forecast", s.forecast)
		tools.POST("/goal", s.goal)
		tools.GET("/nudges", s.nudges)
		tools.POST("/ask", s.ask)
		tools.POST("/debt", s.debt)
	}
	s.router = router
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", logging.F("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request served",
			logging.F("method", c.Request.Method),
			logging.F("path", c.Request.URL.Path),
			logging.F(logging.FieldStatus, c.Writer.Status()),
			logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": s.version,
		"time":    s.now().Format(time.RFC3339),
	})
}

// fail maps err onto a status code and writes the error body.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var (
		dataErr    *analyticserror.DataError
		configErr  *analyticserror.ConfigError
		historyErr *analyticserror.InsufficientHistoryError
	)
	switch {
	case errors.As(err, &dataErr):
		status = http.StatusBadRequest
	case errors.As(err, &historyErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &configErr):
		status = http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, insights.ErrNoEngine), errors.Is(err, insights.ErrNoRunner), errors.Is(err, errNotConfigured):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Tool request failed", logging.F("path", c.Request.URL.Path))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
