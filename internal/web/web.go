// Package web serves the JSON API, the Prometheus endpoint and the
// printable term grid used for PNG capture.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"schoolcal/internal/calendar"
	"schoolcal/internal/config"
	"schoolcal/internal/filter"
	appLog "schoolcal/internal/log"
	"schoolcal/internal/metrics"
	"schoolcal/internal/view"
)

// maxImportBytes bounds an uploaded import body.
const maxImportBytes = 10 << 20

//go:embed templates/*.html
var templateFS embed.FS

// Server provides the HTTP API over a calendar service.
type Server struct {
	cfg      *config.Config
	svc      *calendar.Service
	metrics  *metrics.Manager
	limiter  *rate.Limiter
	router   *mux.Router
	printTpl *template.Template
}

// NewServer wires routes for svc. m may be nil.
func NewServer(cfg *config.Config, svc *calendar.Service, m *metrics.Manager) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	limit := rate.Inf
	if cfg.ImportRatePerSec > 0 {
		limit = rate.Limit(cfg.ImportRatePerSec)
	}
	burst := cfg.ImportBurst
	if burst <= 0 {
		burst = 1
	}
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		metrics:  m,
		limiter:  rate.NewLimiter(limit, burst),
		router:   mux.NewRouter(),
		printTpl: template.Must(template.New("term.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/term.html")),
	}
	s.registerRoutes()
	return s
}

// Handler returns the router with request metrics applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// StartServer serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(s.metrics.Middleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/view", s.handleView).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleAddEvent).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleClear).Methods(http.MethodDelete)
	api.HandleFunc("/events/{id}", s.handleGetEvent).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}", s.handleDeleteEvent).Methods(http.MethodDelete)
	api.HandleFunc("/import/{source}", s.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/export.json", s.handleExportJSON).Methods(http.MethodGet)
	api.HandleFunc("/export.ics", s.handleExportICS).Methods(http.MethodGet)
	api.HandleFunc("/terms/{term}/letter", s.handleToggleLetter).Methods(http.MethodPost)

	r.HandleFunc("/print/term", s.handlePrintTerm).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// stateFromQuery builds view state from ?date, ?filter, ?year (repeatable
// or comma separated) and ?mode.
func (s *Server) stateFromQuery(r *http.Request) view.State {
	q := r.URL.Query()
	mode := q.Get("mode")
	if mode == "" {
		mode = s.cfg.DefaultView
	}
	st := view.NewState(view.ParseMode(mode))
	if d := q.Get("date"); d != "" {
		st = st.WithDate(d)
	}
	st = st.WithFilter(q.Get("filter"))
	st.Years = filter.ParseYears(q["year"]...)
	return st
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeOutcome replies with the notice of a mutating operation.
func writeOutcome(w http.ResponseWriter, status int, out calendar.Outcome) {
	writeJSON(w, status, out)
}
