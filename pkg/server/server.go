package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/devicelab-dev/uidriver/pkg/config"
	"github.com/devicelab-dev/uidriver/pkg/core"
	"github.com/devicelab-dev/uidriver/pkg/dispatch"
	"github.com/devicelab-dev/uidriver/pkg/expect"
	"github.com/devicelab-dev/uidriver/pkg/locator"
	"github.com/rs/zerolog"
)

// Server is the HTTP front-end for the automation engine. Every request
// carries the full context it needs; the only state held between
// requests is the retained handle cache.
type Server struct {
	cfg        *config.Config
	log        zerolog.Logger
	adapter    core.Adapter
	launcher   core.Launcher
	resolver   *locator.Resolver
	dispatcher *dispatch.Dispatcher
	expecter   *expect.Engine
	handles    *handleStore
	metrics    *metrics
	httpServer *http.Server
	started    time.Time
}

func New(cfg *config.Config, log zerolog.Logger, adapter core.Adapter, launcher core.Launcher) *Server {
	resolver := locator.New(adapter, cfg.MaxDepth)
	s := &Server{
		cfg:        cfg,
		log:        log,
		adapter:    adapter,
		launcher:   launcher,
		resolver:   resolver,
		dispatcher: dispatch.New(adapter),
		expecter: expect.New(resolver,
			time.Duration(cfg.DefaultTimeoutMs)*time.Millisecond,
			time.Duration(cfg.PollIntervalMs)*time.Millisecond),
		handles: newHandleStore(defaultHandleTTL),
		metrics: newMetrics(),
		started: time.Now(),
	}
	return s
}

// Handler builds the routing table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/application/open", s.route(http.MethodPost, s.handleOpenApplication))
	mux.HandleFunc("/url/open", s.route(http.MethodPost, s.handleOpenURL))
	mux.HandleFunc("/resolve", s.route(http.MethodPost, s.handleResolve))
	mux.HandleFunc("/act", s.route(http.MethodPost, s.handleAct))
	mux.HandleFunc("/expect", s.route(http.MethodPost, s.handleExpect))
	mux.HandleFunc("/health", s.route(http.MethodGet, s.handleHealth))
	mux.Handle("/metrics", s.metrics.handler())
	return s.instrument(mux)
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.handles.Close()
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.handles.Close()
		return err
	}
}

// route enforces the HTTP method before delegating.
func (s *Server) route(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, s.log, core.ErrBadRequest.WithMessage("method %s not allowed on %s", r.Method, r.URL.Path))
			return
		}
		h(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.metrics.inFlight.Inc()
		next.ServeHTTP(rec, r)
		s.metrics.inFlight.Dec()

		elapsed := time.Since(start)
		s.metrics.requests.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
		s.metrics.duration.WithLabelValues(r.URL.Path).Observe(elapsed.Seconds())

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}
