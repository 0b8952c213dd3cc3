package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/model"
	"github.com/nao1215/deepscan/internal/pipeline"
)

const (
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultHistoryLimit is used when /api/history has no limit parameter.
	DefaultHistoryLimit = 20

	// maxHistoryLimit caps the limit parameter.
	maxHistoryLimit = 500
)

// HistoryReader reads stored analyses. *database.HistoryDB implements it.
type HistoryReader interface {
	GetAnalysisByID(ctx context.Context, id string) (*model.Analysis, error)
	History(ctx context.Context, limit int) (*model.History, error)
}

// Server serves the detection API.
type Server struct {
	analyzer        *pipeline.Analyzer
	decoder         *media.Decoder
	history         HistoryReader
	logger          *slog.Logger
	allowedOrigin   string
	describe        bool
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithDecoder sets the image decoder. The decoder's size limit also bounds
// the request body.
func WithDecoder(d *media.Decoder) Option {
	return func(s *Server) {
		if d != nil {
			s.decoder = d
		}
	}
}

// WithHistory enables the /api/history routes.
func WithHistory(h HistoryReader) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithLogger sets the logger used for access logs and errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAllowedOrigin sets Access-Control-Allow-Origin. Default "*".
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.allowedOrigin = origin
		}
	}
}

// WithDescribe adds the Gemini description to /api/analyze responses.
func WithDescribe(enabled bool) Option {
	return func(s *Server) {
		s.describe = enabled
	}
}

// WithShutdownTimeout sets how long Run waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// New creates a Server around an Analyzer.
func New(analyzer *pipeline.Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer:        analyzer,
		decoder:         media.NewDecoder(),
		logger:          slog.Default(),
		allowedOrigin:   "*",
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/detect", s.handleDetect)
	mux.HandleFunc("POST /api/verify", s.handleVerify)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/describe", s.handleDescribe)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryEntry)
	mux.HandleFunc("GET /health", s.handleHealth)

	return chain(mux,
		s.recoverPanic,
		s.requestID,
		s.accessLog,
		s.cors,
	)
}

// Run listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
