// Package server exposes the normalizer and the OCR dispatcher over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// Normalizer produces the rectified raster for an uploaded document.
type Normalizer interface {
	Normalize(ctx context.Context, data []byte, mimeType string, width, height int) (*raster.Raster, error)
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	Timeout         time.Duration
	ShutdownTimeout time.Duration
	DefaultEngine   string
	DefaultLang     string
	RateLimit       RateLimitConfig
	Version         string
}

// Server handles the HTTP surface.
type Server struct {
	cfg         Config
	normalizer  Normalizer
	dispatcher  *ocr.Dispatcher
	rateLimiter *RateLimiter
}

// New returns a server over normalizer and dispatcher.
func New(cfg Config, normalizer Normalizer, dispatcher *ocr.Dispatcher) (*Server, error) {
	if normalizer == nil {
		return nil, errors.New("server requires a normalizer")
	}
	if dispatcher == nil {
		return nil, errors.New("server requires a dispatcher")
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 50
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.DefaultEngine == "" {
		cfg.DefaultEngine = ocr.EngineTesseract
	}
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = "en"
	}

	s := &Server{cfg: cfg, normalizer: normalizer, dispatcher: dispatcher}
	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit)
	}
	return s, nil
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestIDMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.metricsMiddleware)

	r.Get("/health", s.healthHandler)
	r.Get("/engines", s.enginesHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		if s.cfg.Timeout > 0 {
			r.Use(middleware.Timeout(s.cfg.Timeout))
		}
		r.Post("/v1/normalize", s.normalizeHandler)
		r.Post("/v1/extract", s.extractHandler)
	})
	r.With(s.rateLimitMiddleware).Get("/ws/extract", s.extractWebSocketHandler)

	return r
}

// Addr is host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr, "engines", s.dispatcher.Registry().Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	slog.Info("Shutting down HTTP server", "timeout", timeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
