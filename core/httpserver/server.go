// Package httpserver runs the gin server that receives webhook updates and serves health and metrics.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/m3rciful/loginbot/core/logger"
	"github.com/m3rciful/loginbot/core/metrics"
)

// Health tracks readiness for /readyz.
type Health struct {
	ready atomic.Bool
}

// SetReady flips the readiness flag.
func (h *Health) SetReady(ready bool) { h.ready.Store(ready) }

// IsReady reports the readiness flag.
func (h *Health) IsReady() bool { return h.ready.Load() }

// Options configures New.
type Options struct {
	Listen  string
	Port    int
	Metrics *metrics.Metrics
	Health  *Health
}

// Server wraps a gin engine bound to one listen address.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	health *Health
}

// New builds the engine with request id, logging and recovery middleware plus
// /healthz, /readyz and /metrics routes.
func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	health := opts.Health
	if health == nil {
		health = &Health{}
	}

	engine := gin.New()
	engine.Use(RequestID(), Logger(opts.Metrics), Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if health.IsReady() {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
	})
	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	return &Server{
		engine: engine,
		health: health,
		srv: &http.Server{
			Addr:              net.JoinHostPort(opts.Listen, strconv.Itoa(opts.Port)),
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Engine exposes the router so callers can mount their endpoints.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Health returns the readiness tracker.
func (s *Server) Health() *Health { return s.health }

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, logger.CompHTTP, "http.listen", slog.String("listen", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
