// Package server exposes the radar pipeline over HTTP: upload a disclosure
// file, follow enrichment progress and re-gate the result with new thresholds.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"insider-radar/internal/disclosure"
	"insider-radar/internal/logger"
	"insider-radar/internal/metrics"
	"insider-radar/internal/radar"
	"insider-radar/internal/types"
)

const (
	defaultMaxUpload  = 32 << 20
	defaultPollPeriod = 250 * time.Millisecond
)

// SourceHealth reports per quote source state, e.g. circuit breakers
type SourceHealth interface {
	SourceHealth() map[string]string
}

// Config holds server configuration
type Config struct {
	Addr           string
	Scanner        *radar.Scanner
	Metrics        *metrics.Registry // optional
	Sources        SourceHealth      // optional
	SessionTTL     time.Duration
	MaxUploadBytes int64
	TopN           int
	Thresholds     types.Thresholds
	PollPeriod     time.Duration // SSE poll period
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	scanner  *radar.Scanner
	metrics  *metrics.Registry
	sessions *SessionStore
	cfg      Config

	// scans outlive the upload request; cancelled on Shutdown
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.PollPeriod <= 0 {
		cfg.PollPeriod = defaultPollPeriod
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:   chi.NewRouter(),
		scanner:  cfg.Scanner,
		metrics:  cfg.Metrics,
		sessions: NewSessionStore(cfg.SessionTTL),
		cfg:      cfg,
		baseCtx:  ctx,
		cancel:   cancel,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.router,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api/scans", func(r chi.Router) {
		r.Post("/", s.handleCreateScan)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetScan)
			r.Get("/events", s.handleScanEvents)
			r.Get("/partition", s.handlePartition)
		})
	})
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	logger.Info(context.Background(), "Starting HTTP server", "addr", s.cfg.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown cancels running scans and gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "Shutting down HTTP server")
	s.cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// handleHealth reports "degraded" while any quote source breaker is open.
// Scans still run then, falling back to the remaining sources.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	}
	if s.cfg.Sources != nil {
		states := s.cfg.Sources.SourceHealth()
		for _, state := range states {
			if state == "open" {
				body["status"] = "degraded"
			}
		}
		body["sources"] = states
	}
	writeJSON(w, http.StatusOK, body)
}

// handleCreateScan accepts a multipart upload in field "file" and starts the
// pipeline in the background. Optional form fields: top_n, pe_ceiling,
// roe_floor, debt_ceiling.
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing form file \"file\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("could not read upload: %v", err))
		return
	}

	opts := radar.ScanOptions{TopN: s.cfg.TopN, Thresholds: s.cfg.Thresholds}
	if v := r.FormValue("top_n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "top_n must be a non-negative integer")
			return
		}
		opts.TopN = n
	}
	th, err := thresholdsFrom(r.FormValue, opts.Thresholds)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Thresholds = th

	session := s.sessions.Create(header.Filename)
	opts.Progress = session

	src := disclosure.ReaderSource{Name: header.Filename, Reader: bytes.NewReader(data)}
	go s.run(session, src, opts)

	logger.Info(r.Context(), "Scan accepted", "id", session.ID(), "file", header.Filename, "bytes", len(data), "top_n", opts.TopN)
	writeJSON(w, http.StatusAccepted, session.View())
}

func (s *Server) run(session *Session, src disclosure.ReaderSource, opts radar.ScanOptions) {
	if s.metrics != nil {
		s.metrics.ActiveScans.Inc()
		defer s.metrics.ActiveScans.Dec()
	}

	report, err := s.scanner.Scan(s.baseCtx, src, opts)
	if err != nil {
		var mismatch *types.SchemaMismatchError
		if errors.As(err, &mismatch) {
			session.fail(err, mismatch.Missing)
		} else {
			session.fail(err, nil)
		}
		logger.Warn(s.baseCtx, "Scan failed", "id", session.ID(), "error", err.Error())
		return
	}
	session.complete(report)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("scan %s not found", id))
	}
	return sess, ok
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// handlePartition re-gates a finished scan without new lookups
func (s *Server) handlePartition(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	report := sess.Report()
	if report == nil {
		writeError(w, http.StatusConflict, "scan has not completed")
		return
	}

	th, err := thresholdsFrom(r.URL.Query().Get, report.Partition.Thresholds)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := struct {
		types.Partition
		Warning string `json:"warning,omitempty"`
	}{Partition: radar.Partition(report.Candidates, th)}
	if !th.InRange() {
		resp.Warning = "thresholds outside the recommended range"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleScanEvents streams enrichment progress as Server-Sent Events. Each
// Progress is sent as a "progress" event; a final "done" event carries the
// session view.
func (s *Server) handleScanEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(s.cfg.PollPeriod)
	defer ticker.Stop()

	sent := 0
	for {
		events, status := sess.ProgressSince(sent)
		for _, ev := range events {
			if err := writeEvent(w, "progress", ev); err != nil {
				return
			}
		}
		sent += len(events)
		if len(events) > 0 {
			flusher.Flush()
		}

		if status != StatusRunning {
			if err := writeEvent(w, "done", sess.View()); err == nil {
				flusher.Flush()
			}
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writeEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// thresholdsFrom overrides base with any of pe_ceiling, roe_floor and
// debt_ceiling that get returns non-empty
func thresholdsFrom(get func(string) string, base types.Thresholds) (types.Thresholds, error) {
	th := base
	fields := []struct {
		key string
		dst *float64
	}{
		{"pe_ceiling", &th.PECeiling},
		{"roe_floor", &th.ROEFloor},
		{"debt_ceiling", &th.DebtCeiling},
	}
	for _, f := range fields {
		raw := get(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return base, fmt.Errorf("%s must be a number, got %q", f.key, raw)
		}
		*f.dst = v
	}
	return th, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn(context.Background(), "Failed to encode response", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
