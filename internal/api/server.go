// Package api exposes the HTTP interface over the harvested roster: search
// and list over the published snapshot, and the refresh trigger that runs a
// crawl. The refresh endpoint also enforces the one-crawl-at-a-time rule the
// crawl core documents but does not enforce itself.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/futdex/futdex/internal/metrics"
	"github.com/futdex/futdex/internal/roster"
)

// Runner executes one crawl run. Satisfied by *crawl.Orchestrator.
type Runner interface {
	Run(ctx context.Context) (roster.Snapshot, error)
}

// SnapshotArchive persists published snapshots and answers queries.
type SnapshotArchive interface {
	Save(ctx context.Context, snap roster.Snapshot) error
	Search(ctx context.Context, q, team string) ([]roster.Player, error)
}

// Server wires HTTP handlers to the crawl runner and the archive.
type Server struct {
	router     chi.Router
	runner     Runner
	archive    SnapshotArchive
	holder     *Holder
	logger     *zap.Logger
	refreshing atomic.Bool
}

// NewServer constructs a Server with routes registered.
func NewServer(runner Runner, archive SnapshotArchive, holder *Holder, logger *zap.Logger) *Server {
	if holder == nil {
		holder = &Holder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner:  runner,
		archive: archive,
		holder:  holder,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/players", s.listPlayers)
		r.Get("/snapshot", s.snapshotMeta)
		r.Post("/refresh", s.refresh)
	})
	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	team := r.URL.Query().Get("team")

	players, err := s.archive.Search(r.Context(), q, team)
	if err != nil {
		s.logger.Error("player search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if players == nil {
		players = []roster.Player{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"players": players,
		"count":   len(players),
	})
}

func (s *Server) snapshotMeta(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.holder.Get()
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshot published yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"player_count": len(snap.Players),
		"page_count":   snap.PageCount,
		"generated_at": snap.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

// refresh kicks off a crawl run in the background. Concurrent refreshes are
// rejected; a second crawl would corrupt checkpoint semantics.
func (s *Server) refresh(w http.ResponseWriter, _ *http.Request) {
	if !s.refreshing.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "a refresh is already running")
		return
	}

	go func() {
		defer s.refreshing.Store(false)
		// Detached from the request: a crawl outlives any single HTTP call.
		snap, err := s.runner.Run(context.Background())
		if err != nil {
			s.logger.Error("refresh crawl interrupted", zap.Error(err))
			return
		}
		if err := s.archive.Save(context.Background(), snap); err != nil {
			s.logger.Error("archive save failed", zap.Error(err))
		}
		s.holder.Publish(snap)
		s.logger.Info("snapshot published",
			zap.Int("players", len(snap.Players)),
			zap.Int("pages", snap.PageCount),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
