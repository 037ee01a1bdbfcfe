// Package api exposes the resolved athlete registry and merged results over
// a read-only REST facade.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/store"
)

// Server serves registry lookups backed by a Store.
type Server struct {
	store store.Store
	log   *zap.Logger
}

// NewServer creates a read-only API server over the given store.
func NewServer(st store.Store) *Server {
	return &Server{
		store: st,
		log:   zap.L().With(zap.String("component", "api")),
	}
}

// Routes builds the HTTP handler tree.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/athletes", s.listAthletes)
		r.Get("/athletes/{id}", s.getAthlete)
		r.Get("/athletes/{id}/results", s.athleteResults)
		r.Get("/resolve", s.resolve)
		r.Get("/events/{id}/results", s.eventResults)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listAthletes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AthleteFilter{
		Name:        q.Get("name"),
		Nationality: q.Get("nationality"),
		Limit:       intParam(q.Get("limit")),
		Offset:      intParam(q.Get("offset")),
	}

	athletes, err := s.store.ListAthletes(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if athletes == nil {
		athletes = []model.UnifiedAthlete{}
	}
	s.respond(w, http.StatusOK, athletes)
}

func (s *Server) getAthlete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid athlete id")
		return
	}

	athlete, err := s.store.GetAthlete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, athlete)
}

func (s *Server) athleteResults(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid athlete id")
		return
	}

	// 404 for unknown athletes rather than an empty result list.
	if _, err := s.store.GetAthlete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	results, err := s.store.ListAthleteResults(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if results == nil {
		results = []model.ResultRow{}
	}
	s.respond(w, http.StatusOK, results)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	sourceID := r.URL.Query().Get("source_id")
	if source == "" || sourceID == "" {
		s.respondError(w, http.StatusBadRequest, "source and source_id are required")
		return
	}

	link, err := s.store.FindLink(r.Context(), model.Source(source), sourceID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	athlete, err := s.store.GetAthlete(r.Context(), link.AthleteID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, athlete)
}

func (s *Server) eventResults(w http.ResponseWriter, r *http.Request) {
	filter := store.ResultFilter{
		EventID:  chi.URLParam(r, "id"),
		Division: r.URL.Query().Get("division"),
		Source:   model.Source(r.URL.Query().Get("source")),
	}

	results, err := s.store.ListResults(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if results == nil {
		results = []model.ResultRow{}
	}
	s.respond(w, http.StatusOK, results)
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	s.respondError(w, http.StatusInternalServerError, "internal error")
}

func intParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
