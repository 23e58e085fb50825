package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cpuload-view/internal/view"
)

// Status is the JSON document served at /status.
type Status struct {
	ViewID    string     `json:"view_id"`
	Strategy  string     `json:"strategy"`
	State     string     `json:"state"`
	Cores     int        `json:"cores"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Server exposes the displayed tree, its status and metrics over HTTP.
type Server struct {
	View     *view.LiveLoadView
	Surface  *view.Surface
	gatherer prometheus.Gatherer
	refresh  int
	mux      *http.ServeMux
}

// NewServer creates a Server. gatherer may be nil to disable /metrics.
func NewServer(v *view.LiveLoadView, surface *view.Surface, gatherer prometheus.Gatherer, refresh int) *Server {
	s := &Server{View: v, Surface: surface, gatherer: gatherer, refresh: refresh, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.Surface.Snapshot()
	if !ok {
		tree = view.Tree{Title: view.Title}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.WriteHTML(w, tree, s.refresh); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	strategy, st := s.Surface.State()
	at, cores := s.View.LastRender()
	status := Status{
		ViewID:   s.View.ID(),
		Strategy: strategy,
		State:    st.String(),
		Cores:    cores,
	}
	if !at.IsZero() {
		status.UpdatedAt = &at
	}
	if err := s.Surface.LastError(); err != nil {
		status.LastError = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
