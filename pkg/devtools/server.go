package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rerrors "github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// Options configures a devtools Server.
type Options struct {
	// Addr is the listen address, e.g. "localhost:7070".
	Addr string

	// AllowedOrigins lists extra origins allowed to open /events.
	AllowedOrigins []string

	// Gatherer serves /metrics. nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// QueueSize is the event queue size of the hub. Default: 1024.
	QueueSize int

	// Logger logs requests and lifecycle. Default: slog.Default().
	Logger *slog.Logger
}

// Server is the inspector HTTP server.
//
// Routes:
//   - GET /healthz: liveness
//   - GET /graph: JSON snapshot of the dependency graph
//   - GET /codes: the registered diagnostic codes
//   - GET /metrics: Prometheus metrics, when a Gatherer is configured
//   - GET /events: WebSocket stream of engine events
type Server struct {
	opts   Options
	hub    *Hub
	router chi.Router
	logger *slog.Logger
}

// New creates a Server. Install Hub() as instrumentation to feed /events.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		opts:   opts,
		hub:    NewHub(opts.QueueSize, opts.AllowedOrigins),
		logger: logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/graph", s.handleGraph)
	r.Get("/codes", s.handleCodes)
	if s.opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/events", s.hub.HandleWebSocket)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("devtools request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// GraphResponse is the body of GET /graph.
type GraphResponse struct {
	Stats reactive.GraphStats    `json:"stats"`
	Deps  []reactive.DepSnapshot `json:"deps"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, GraphResponse{
		Stats: reactive.Stats(),
		Deps:  reactive.Snapshot(),
	})
}

// CodeResponse is one entry of GET /codes.
type CodeResponse struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (s *Server) handleCodes(w http.ResponseWriter, r *http.Request) {
	codes := rerrors.GetAllCodes()
	out := make([]CodeResponse, 0, len(codes))
	for _, code := range codes {
		tmpl, _ := rerrors.GetTemplate(code)
		out = append(out, CodeResponse{Code: code, Category: string(tmpl.Category), Message: tmpl.Message})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("devtools listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("devtools: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("devtools: shutdown: %w", err)
	}
	s.logger.Info("devtools stopped")
	return nil
}

func keyString(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return fmt.Sprint(key)
}
