// Package server exposes the HTTP API: ad-hoc searches, saved-search
// management, background run polling, and usage stats.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/models"
	"github.com/mkowalczk/jobscout/internal/runstatus"
	"github.com/mkowalczk/jobscout/internal/search"
	"github.com/mkowalczk/jobscout/internal/store"
	"github.com/mkowalczk/jobscout/internal/usage"
)

const requestBodyCap = 1 << 20

type Server struct {
	router   chi.Router
	orch     *search.Orchestrator
	searches *store.Store
	runner   *search.Runner
	tracker  *runstatus.Tracker
	usage    *usage.Recorder
	log      zerolog.Logger
}

func New(orch *search.Orchestrator, searches *store.Store, runner *search.Runner, tracker *runstatus.Tracker, usageRec *usage.Recorder, log zerolog.Logger) *Server {
	s := &Server{
		orch:     orch,
		searches: searches,
		runner:   runner,
		tracker:  tracker,
		usage:    usageRec,
		log:      log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs/search", s.handleSearch)

		r.Route("/searches", func(r chi.Router) {
			r.Get("/", s.handleListSearches)
			r.Post("/", s.handleCreateSearch)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSearch)
				r.Delete("/", s.handleDeleteSearch)
				r.Post("/toggle", s.handleToggleSearch)
				r.Post("/run", s.handleRunSearch)
			})
		})

		r.Get("/runs/{token}", s.handleRunStatus)
		r.Get("/usage", s.handleUsage)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var criteria models.SearchCriteria
	if !s.decode(w, r, &criteria) {
		return
	}

	result := s.orch.Search(r.Context(), criteria)
	s.respond(w, http.StatusOK, searchResponse{
		Success: result.Debug.Error == "",
		Count:   len(result.Jobs),
		Jobs:    result.Jobs,
		Debug:   result.Debug,
	})
}

type searchResponse struct {
	Success bool               `json:"success"`
	Count   int                `json:"count"`
	Jobs    []models.Job       `json:"jobs"`
	Debug   models.FilterTrace `json:"debug"`
}

func (s *Server) handleListSearches(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.searches.GetAll())
}

func (s *Server) handleCreateSearch(w http.ResponseWriter, r *http.Request) {
	var saved models.SavedSearch
	if !s.decode(w, r, &saved) {
		return
	}
	if saved.SearchCriteria.JobTitle == "" && len(saved.SearchCriteria.JobTitles) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one job title is required")
		return
	}

	created, err := s.searches.Save(saved)
	if err != nil {
		s.log.Error().Err(err).Msg("save search")
		s.respondError(w, http.StatusInternalServerError, "could not save search")
		return
	}
	s.respond(w, http.StatusCreated, created)
}

func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	saved, err := s.searches.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.notFoundOr500(w, err)
		return
	}
	s.respond(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteSearch(w http.ResponseWriter, r *http.Request) {
	if err := s.searches.Delete(chi.URLParam(r, "id")); err != nil {
		s.notFoundOr500(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleToggleSearch(w http.ResponseWriter, r *http.Request) {
	saved, err := s.searches.Toggle(chi.URLParam(r, "id"))
	if err != nil {
		s.notFoundOr500(w, err)
		return
	}
	s.respond(w, http.StatusOK, saved)
}

func (s *Server) handleRunSearch(w http.ResponseWriter, r *http.Request) {
	token, err := s.runner.StartRun(chi.URLParam(r, "id"))
	if err != nil {
		s.notFoundOr500(w, err)
		return
	}
	s.respond(w, http.StatusAccepted, map[string]string{"statusToken": token})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.tracker.Get(chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, runstatus.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "unknown or expired run token")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	s.respond(w, http.StatusOK, status)
}

func (s *Server) handleUsage(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.usage.Stats())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, requestBodyCap)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("response encode")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, map[string]string{"error": message})
}

func (s *Server) notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "search not found")
		return
	}
	s.log.Error().Err(err).Msg("store operation")
	s.respondError(w, http.StatusInternalServerError, "internal error")
}
