// Package server exposes the gateway's HTTP surface: the device websocket
// endpoint, the JSON admin API, health probes, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/txurtxil/Esc32S3-Groq/internal/config"
	"github.com/txurtxil/Esc32S3-Groq/internal/health"
	"github.com/txurtxil/Esc32S3-Groq/internal/logbuf"
	"github.com/txurtxil/Esc32S3-Groq/internal/observe"
	"github.com/txurtxil/Esc32S3-Groq/internal/pipeline"
	"github.com/txurtxil/Esc32S3-Groq/pkg/audio/opus"
)

const shutdownTimeout = 10 * time.Second

// CodecFactory creates a fresh per-session codec. Sessions own their codec;
// decoder and encoder state never crosses connections.
type CodecFactory func() (opus.Codec, error)

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithLogger sets the server logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogBuffer exposes buf through GET /api/logs.
func WithLogBuffer(buf *logbuf.Buffer) Option {
	return func(s *Server) { s.logs = buf }
}

// WithHealth registers the health handler's probes.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// Server ties the websocket endpoint, admin API, and operational routes to
// one net/http server.
type Server struct {
	addr     string
	store    *config.Store
	pipeline *pipeline.Pipeline
	newCodec CodecFactory

	log     *slog.Logger
	metrics *observe.Metrics
	logs    *logbuf.Buffer
	health  *health.Handler

	httpSrv *http.Server
}

// New creates a Server listening on addr.
func New(addr string, store *config.Store, pl *pipeline.Pipeline, newCodec CodecFactory, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		store:    store,
		pipeline: pl,
		newCodec: newCodec,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New()
	}

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	return s
}

// routes builds the HTTP mux. The websocket endpoint stays outside the
// observability middleware; a span spanning a whole device connection would
// be useless.
func (s *Server) routes() http.Handler {
	wrapped := http.NewServeMux()
	wrapped.HandleFunc("GET /api/config", s.handleGetConfig)
	wrapped.HandleFunc("PUT /api/config", s.handlePutConfig)
	wrapped.HandleFunc("GET /api/logs", s.handleGetLogs)
	s.health.Register(wrapped)
	wrapped.Handle("GET /metrics", promhttp.Handler())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("/", observe.Middleware(s.metrics)(wrapped))
	return mux
}

// Run serves until ctx is cancelled, then drains with a bounded graceful
// shutdown.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("listening", "addr", s.addr)
		if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen on %s: %w", s.addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
