package viewhttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"stockdash/internal/journal"
	"stockdash/internal/logger"
	"stockdash/internal/store"
	"stockdash/internal/strategyparams"

	"github.com/gin-gonic/gin"
)

// Server exposes the stores' state and actions over HTTP on a local address.
type Server struct {
	addr   string
	router *gin.Engine

	// stop is closed on shutdown to end open event streams.
	stop     chan struct{}
	stopOnce sync.Once
}

// HealthChecker is satisfied by *apiclient.Client.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// JournalReader is satisfied by *journal.Journal.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.ActionRecord, error)
}

type ServerConfig struct {
	Addr     string
	Registry *store.Registry
	Health   HealthChecker
	// Params validates strategy params before create and update. Optional.
	Params *strategyparams.Validator
	// Journal serves /api/journal. Optional.
	Journal JournalReader
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("view server requires a store registry")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:5174"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	stop := make(chan struct{})
	r := NewRouter(cfg)
	r.stop = stop
	r.Register(router.Group("/api"))
	return &Server{addr: cfg.Addr, router: router, stop: stop}, nil
}

// Handler returns the underlying gin engine.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.router}
	srv.RegisterOnShutdown(s.closeStreams)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("view server listening on http://%s", ln.Addr())

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) closeStreams() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", c.Request.Method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}
