// Package httpapi exposes forms, responses and the rule catalog over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formdee/internal/config"
	"github.com/goliatone/go-formdee/pkg/metrics"
	"github.com/goliatone/go-formdee/pkg/renderers/html"
	"github.com/goliatone/go-formdee/pkg/store"
	"github.com/goliatone/go-formdee/pkg/submission"
)

// DefaultMaxBodySize caps JSON bodies and in-memory multipart parts.
const DefaultMaxBodySize int64 = 8 << 20

// Server routes API and HTML requests to the form store.
type Server struct {
	forms    *store.FormStore
	checker  *submission.Checker
	renderer *html.Renderer
	metrics  *metrics.Collectors
	logger   zerolog.Logger
	origins  []string
	maxBody  int64
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithChecker sets the submission checker. Defaults to submission.NewChecker().
func WithChecker(checker *submission.Checker) Option {
	return func(s *Server) {
		if checker != nil {
			s.checker = checker
		}
	}
}

// WithRenderer sets the HTML renderer used by /forms/{id}.
func WithRenderer(renderer *html.Renderer) Option {
	return func(s *Server) {
		if renderer != nil {
			s.renderer = renderer
		}
	}
}

// WithMetrics records request and submission metrics and serves /metrics.
func WithMetrics(collectors *metrics.Collectors) Option {
	return func(s *Server) {
		s.metrics = collectors
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORSOrigins allows cross-origin requests from origins. No origins
// disables CORS handling.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = append([]string(nil), origins...)
	}
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(limit int64) Option {
	return func(s *Server) {
		if limit > 0 {
			s.maxBody = limit
		}
	}
}

// New builds a Server backed by forms.
func New(forms *store.FormStore, options ...Option) (*Server, error) {
	if forms == nil {
		return nil, errors.New("httpapi: form store is nil")
	}
	s := &Server{
		forms:   forms,
		logger:  zerolog.Nop(),
		maxBody: DefaultMaxBodySize,
		mux:     http.NewServeMux(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.checker == nil {
		s.checker = submission.NewChecker(submission.WithLogger(s.logger))
	}
	if s.renderer == nil {
		renderer, err := html.New()
		if err != nil {
			return nil, fmt.Errorf("httpapi: %w", err)
		}
		s.renderer = renderer
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.getHealthz)
	s.mux.HandleFunc("GET /api/rules", s.getRules)
	s.mux.HandleFunc("GET /api/openapi.json", s.getDocument)

	s.mux.HandleFunc("GET /api/forms", s.listForms)
	s.mux.HandleFunc("POST /api/forms", s.createForm)
	s.mux.HandleFunc("GET /api/forms/{id}", s.getForm)
	s.mux.HandleFunc("PUT /api/forms/{id}", s.putForm)
	s.mux.HandleFunc("DELETE /api/forms/{id}", s.deleteForm)
	s.mux.HandleFunc("GET /api/forms/{id}/openapi.json", s.getFormDocument)

	s.mux.HandleFunc("GET /api/forms/{id}/responses", s.listResponses)
	s.mux.HandleFunc("POST /api/forms/{id}/responses", s.submitResponse)

	s.mux.HandleFunc("GET /forms/{id}", s.getFormPage)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns the routed handler wrapped in logging, metrics and CORS
// middleware.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.logRequests(h)
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	if len(s.origins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowedHeaders: []string{
				"Accept",
				"Content-Type",
			},
			MaxAge: 300,
		})
		h = c.Handler(h)
	}
	return h
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg config.HTTPConfig) error {
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", cfg.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("httpapi: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("http server shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
	replyJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
