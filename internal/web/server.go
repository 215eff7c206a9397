// Package web serves analyses as a JSON API for the dashboard.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sweepstat/internal/analyzer"
	"sweepstat/internal/config"
	"sweepstat/internal/store"
	"sweepstat/pkg/model"
)

// SeriesLoader loads the candles of one series.
type SeriesLoader interface {
	Load(ctx context.Context, key store.Key, from, to time.Time) ([]model.Candle, error)
}

// SeriesLister lists stored series. Optional.
type SeriesLister interface {
	Series(ctx context.Context) ([]store.Series, error)
}

// Options configures the server.
type Options struct {
	Port           int
	AllowedOrigins []string
	Data           config.DataConfig // default series
	Defaults       analyzer.Params
	Release        bool
}

// Server is the HTTP API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	loader     SeriesLoader
	lister     SeriesLister
	opts       Options
	log        *zap.Logger
	started    time.Time
}

// NewServer creates the server and its routes. lister may be nil.
func NewServer(loader SeriesLoader, lister SeriesLister, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestLogger(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:  router,
		loader:  loader,
		lister:  lister,
		opts:    opts,
		log:     log,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/analyses", s.handleAnalyses)
	api.GET("/series", s.handleSeries)
	api.POST("/analyses/:name", s.handleRun)
	api.POST("/analyses/:name/chart", s.handleChart)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.opts.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("starting HTTP server", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
