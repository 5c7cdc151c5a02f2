// Package httpapi exposes the app's operations over a local REST API so the
// menubar frontend and scripts can drive it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"govee-bar/internal/domain"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 10 * time.Second
)

// Service is the set of operations the API serves.
type Service interface {
	Init(ctx context.Context) error
	ShowPanel() error
	ListDevices(ctx context.Context) ([]domain.Device, error)
	GetDeviceState(ctx context.Context, deviceID, sku string) (*domain.DeviceState, error)
	SendControl(ctx context.Context, cmd domain.ControlCommand) error
	ListScenes(ctx context.Context, kind domain.SceneKind, deviceID, sku string) ([]domain.SceneOption, error)
	GetAPIKey() (string, bool)
	SetAPIKey(ctx context.Context, key string) error
}

type Config struct {
	Addr          string
	ControlRate   int
	ControlWindow time.Duration
}

type Server struct {
	cfg     Config
	svc     Service
	logger  *slog.Logger
	limiter *RateLimiter
	handler http.Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
	errs     chan error
}

func New(cfg Config, svc Service, logger *slog.Logger) *Server {
	if cfg.ControlRate <= 0 {
		cfg.ControlRate = 30
	}
	if cfg.ControlWindow <= 0 {
		cfg.ControlWindow = time.Minute
	}

	s := &Server{
		cfg:     cfg,
		svc:     svc,
		logger:  logger,
		limiter: NewRateLimiter(cfg.ControlRate, cfg.ControlWindow),
	}
	s.handler = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/init", s.handleInit)
		r.Post("/panel/show", s.handleShowPanel)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{sku}/{device}", func(r chi.Router) {
				r.Get("/state", s.handleGetState)
				r.With(s.limiter.Middleware).Post("/control", s.handleControl)
				r.Get("/scenes/{kind}", s.handleListScenes)
			})
		})

		r.Route("/settings/api-key", func(r chi.Router) {
			r.Get("/", s.handleGetAPIKey)
			r.Put("/", s.handleSetAPIKey)
		})
	})

	return r
}

// Start binds the listen address and serves in the background. A bind
// failure is returned to the caller.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	s.listener = ln
	s.errs = make(chan error, 1)
	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func(srv *http.Server, errs chan<- error) {
		s.logger.Info("HTTP API starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
			errs <- err
		}
		close(errs)
	}(s.server, s.errs)

	go s.pruneLoop(ctx)

	s.running = true
	return nil
}

// Addr is the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Errors yields a serve failure after a successful Start and is closed when
// the server stops.
func (s *Server) Errors() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ControlWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Prune()
		}
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// fail renders err with its mapped status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func decodeBody(r *http.Request, dst any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
