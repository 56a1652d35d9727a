package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/config"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/fetcher"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/service"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/storage"
)

// Pinger reports backing-store reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the registration and series-read API. It runs alongside
// the poll loop and shares the same store.
type Server struct {
	cfg     config.ServerConfig
	logger  zerolog.Logger
	engine  *gin.Engine
	clients storage.ClientStore
	query   *service.Query
	stats   fetcher.StatsFetcher
	pinger  Pinger
}

// New constructs the HTTP server and wires its routes.
func New(cfg config.ServerConfig, clients storage.ClientStore, query *service.Query, stats fetcher.StatsFetcher, pinger Pinger, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:     cfg,
		logger:  logger.With().Str("component", "server").Logger(),
		engine:  gin.New(),
		clients: clients,
		query:   query,
		stats:   stats,
		pinger:  pinger,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(corsMiddleware())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.POST("/api/register", s.register)
	s.engine.GET("/api/user/:wallet", s.userSeries)
	s.engine.GET("/api/referrer", s.referrerSeries)
	s.engine.GET("/api/check_client", s.checkClient)
	s.engine.GET("/api/health", s.health)
}

// Handler exposes the gin engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully so
// in-flight requests finish.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
