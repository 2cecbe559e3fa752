// Package server exposes labeling runs over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	labeler "github.com/FrenchMajesty/comment-labeler"
	"github.com/FrenchMajesty/comment-labeler/internal/config"
	"github.com/FrenchMajesty/comment-labeler/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server
type Options struct {
	Config   *config.Config
	Logger   *zap.Logger
	Recorder *metrics.Recorder

	// NewClient overrides client construction for every run
	NewClient labeler.ClientFactory
}

// Server serves the labeling API
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	recorder  *metrics.Recorder
	newClient labeler.ClientFactory
}

// New creates a Server, filling in defaults for unset options
func New(opts Options) *Server {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewRecorder()
	}

	return &Server{
		cfg:       opts.Config,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
		newClient: opts.NewClient,
	}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.recorder.Handler()))

	v1 := r.Group("/v1")
	v1.GET("/prompt/default", s.handleDefaultPrompt)
	v1.POST("/label", s.handleLabel)

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", apiKeyHeader},
		ExposeHeaders: []string{"Content-Disposition", headerRowsTotal, headerRowsFailed, headerRunID},
		MaxAge:        12 * time.Hour,
	}

	origins := s.cfg.Server.AllowedOrigins
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cfg
}

// requestLogger logs one line per request
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Run serves on the configured address until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("labeler server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down labeler server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
