// Package server serves the MoneyManager page and its JSON API with gin.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guiperry/moneymanager/advisor"
	"github.com/guiperry/moneymanager/utils"
)

//go:embed templates/index.html
var templatesFS embed.FS

// Advisor is the session the server drives.
type Advisor interface {
	ID() string
	Ask(ctx context.Context, topic string) (*advisor.Response, error)
	History() advisor.History
}

// Server serialises advisor runs: one session, one request at a time.
type Server struct {
	advisor Advisor
	mu      sync.Mutex
	logger  utils.Logger
	engine  *gin.Engine
}

func New(a Advisor, logger utils.Logger) (*Server, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	s := &Server{advisor: a, logger: logger}

	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	s.engine = s.newRouter(tmpl)
	return s, nil
}

func (s *Server) newRouter(tmpl *template.Template) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.SetHTMLTemplate(tmpl)

	router.GET("/healthcheck", HealthCheck)
	router.GET("/", s.Index)
	router.POST("/", s.Submit)

	api := router.Group("/api")
	{
		api.POST("/advice", s.Advice)
		api.GET("/history", s.History)
	}
	return router
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving MoneyManager", "addr", addr, "session", s.advisor.ID())
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
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		s.logger.Info("HTTP request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// ask runs the advisor under the session lock.
func (s *Server) ask(ctx context.Context, topic string) (*advisor.Response, advisor.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.advisor.Ask(ctx, topic)
	if err != nil {
		return nil, advisor.History{}, err
	}
	return resp, s.advisor.History(), nil
}
