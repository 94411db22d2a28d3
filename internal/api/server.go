package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/KaranOps/ContextCut/internal/catalog"
	"github.com/KaranOps/ContextCut/internal/notify"
	"github.com/KaranOps/ContextCut/internal/store"
	"github.com/KaranOps/ContextCut/internal/timeline"
)

// TimelineRunner executes the generation pipeline for one transcript.
type TimelineRunner interface {
	Run(ctx context.Context, segments []timeline.NarrationSegment, cat catalog.Catalog) (timeline.Timeline, error)
}

type Server struct {
	store    store.DataStore
	runner   TimelineRunner
	notifier notify.Publisher
	router   chi.Router
	port     int

	// catalogMu serializes catalog merges so concurrent uploads do not
	// interleave partial updates.
	catalogMu sync.Mutex
	catalog   catalog.Catalog
}

func NewServer(s store.DataStore, runner TimelineRunner, notifier notify.Publisher, cat catalog.Catalog, port int) *Server {
	if cat == nil {
		cat = catalog.Catalog{}
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	srv := &Server{
		store:    s,
		runner:   runner,
		notifier: notifier,
		catalog:  cat,
		port:     port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)
		r.Post("/catalog", srv.handleUploadCatalog)
		r.Get("/catalog", srv.handleGetCatalog)
		r.Post("/timeline", srv.handleGenerateTimeline)
		r.Get("/status/{runID}", srv.handleRunStatus)
		r.Get("/runs", srv.handleListRuns)
		r.Post("/media", srv.handleUpsertMedia)
		r.Get("/media", srv.handleListMedia)
	})

	srv.router = r
	return srv
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("starting HTTP API", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.catalogMu.Lock()
	clips := len(s.catalog)
	s.catalogMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"service":      "contextcut",
		"catalog_size": clips,
	})
}

// handleUploadCatalog merges uploaded clip metadata into the working
// catalog and persists the merged entries.
func (s *Server) handleUploadCatalog(w http.ResponseWriter, r *http.Request) {
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	incoming, err := catalog.Normalize(payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(incoming) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no usable catalog entries"})
		return
	}

	s.catalogMu.Lock()
	for id, entries := range incoming {
		s.catalog[id] = entries
	}
	total := len(s.catalog)
	s.catalogMu.Unlock()

	if err := s.store.UpsertCatalog(r.Context(), incoming); err != nil {
		slog.Error("persist catalog failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"merged_clips": len(incoming),
		"catalog_size": total,
	})
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	s.catalogMu.Lock()
	cp := catalog.Catalog{}
	for id, entries := range s.catalog {
		cp[id] = entries
	}
	s.catalogMu.Unlock()

	writeJSON(w, http.StatusOK, cp)
}

type timelineRequest struct {
	Segments []timeline.NarrationSegment `json:"segments"`
}

// handleGenerateTimeline registers a run and kicks off the pipeline in
// the background. Clients poll /status/{runID} for the result.
func (s *Server) handleGenerateTimeline(w http.ResponseWriter, r *http.Request) {
	var req timelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if len(req.Segments) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "segments are required"})
		return
	}

	runID := uuid.NewString()
	if err := s.store.CreateRun(r.Context(), runID); err != nil {
		slog.Error("create run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	s.catalogMu.Lock()
	cat := catalog.Catalog{}
	for id, entries := range s.catalog {
		cat[id] = entries
	}
	s.catalogMu.Unlock()

	go s.runPipeline(runID, req.Segments, cat)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": store.RunPending,
	})
}

// runPipeline drives one generation run to completion. It owns its own
// context since the originating request finishes immediately.
func (s *Server) runPipeline(runID string, segments []timeline.NarrationSegment, cat catalog.Catalog) {
	ctx := context.Background()

	if err := s.notifier.PublishRunEvent(notify.SubjectRunStarted, runID, map[string]any{
		"segments": len(segments),
	}); err != nil {
		slog.Warn("publish run started failed", "run_id", runID, "error", err)
	}

	if err := s.store.SetRunStep(ctx, runID, "generating_timeline"); err != nil {
		slog.Error("update run step failed", "run_id", runID, "error", err)
	}

	tl, err := s.runner.Run(ctx, segments, cat)
	if err != nil {
		slog.Error("timeline run failed", "run_id", runID, "error", err)
		if serr := s.store.FailRun(ctx, runID, err.Error()); serr != nil {
			slog.Error("record run failure failed", "run_id", runID, "error", serr)
		}
		if nerr := s.notifier.PublishRunEvent(notify.SubjectRunFailed, runID, map[string]any{
			"error": err.Error(),
		}); nerr != nil {
			slog.Warn("publish run failed event failed", "run_id", runID, "error", nerr)
		}
		return
	}

	result, err := json.Marshal(tl)
	if err != nil {
		slog.Error("marshal timeline failed", "run_id", runID, "error", err)
		_ = s.store.FailRun(ctx, runID, "internal error")
		return
	}
	if err := s.store.CompleteRun(ctx, runID, result); err != nil {
		slog.Error("record run completion failed", "run_id", runID, "error", err)
		return
	}

	if err := s.notifier.PublishRunEvent(notify.SubjectRunCompleted, runID, map[string]any{
		"events": len(tl.Events),
	}); err != nil {
		slog.Warn("publish run completed failed", "run_id", runID, "error", err)
	}
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.store.QueryRuns(r.Context(), status, limit)
	if err != nil {
		slog.Error("query runs failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}

	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleUpsertMedia(w http.ResponseWriter, r *http.Request) {
	var m store.Media
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if m.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "filename is required"})
		return
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	if err := s.store.UpsertMedia(r.Context(), m); err != nil {
		slog.Error("upsert media failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": m.ID})
}

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListMedia(r.Context())
	if err != nil {
		slog.Error("list media failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if list == nil {
		list = []store.Media{}
	}

	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
