// Package api exposes the stored catalog and the crawl trigger over a
// REST surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chemstalk/internal/config"
	"chemstalk/internal/query"
	"chemstalk/internal/storage"
	"chemstalk/internal/types"
)

// CrawlRunner launches background crawl runs. Launch reserves the
// single run slot, wipes the company's stored rows, and reports how
// many were deleted; a refused launch (types.ErrCrawlRunning,
// types.ErrUnknownCompany) deletes nothing. A nil error means the run
// was launched, nothing more: crawl outcomes are reported through logs
// and stats, not through the trigger response.
type CrawlRunner interface {
	Launch(ctx context.Context, companyName string) (deleted int64, err error)
	Stats() map[string]any
}

// Server provides the REST API over the store and the crawl runner.
type Server struct {
	mux    *http.ServeMux
	srv    *http.Server
	port   int
	logger *slog.Logger

	queries *query.Service
	runner  CrawlRunner
}

// NewServer creates an API server over a store and a crawl runner.
func NewServer(port int, store storage.Store, runner CrawlRunner, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		port:    port,
		logger:  logger.With("component", "api_server"),
		queries: query.NewService(store, logger),
		runner:  runner,
	}

	s.registerRoutes()
	return s
}

// Start starts the API server in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.srv = &http.Server{Addr: addr, Handler: s.mux}
	s.logger.Info("API server starting", "addr", addr)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Catalog queries
	s.mux.HandleFunc("GET /api/chemicals", s.handleChemicals)
	s.mux.HandleFunc("GET /api/chemicals/avg", s.handleAverages)

	// Crawl trigger
	s.mux.HandleFunc("POST /api/run", s.handleRun)

	// Stats
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

// handleChemicals returns every stored record for a CAS number.
func (s *Server) handleChemicals(w http.ResponseWriter, r *http.Request) {
	casNumber := r.URL.Query().Get("numcas")
	if casNumber == "" {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "missing numcas parameter"})
		return
	}

	items, err := s.queries.Lookup(r.Context(), casNumber)
	if err != nil {
		if errors.Is(err, types.ErrNoData) {
			s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "No data"})
			return
		}
		s.logger.Error("chemical lookup failed", "numcas", casNumber, "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}

	s.jsonResponse(w, http.StatusOK, items)
}

// handleAverages returns the unit-normalized average prices for a CAS
// number. A CAS number whose rows all fail to aggregate is reported the
// same way as an unknown one, with a distinct message.
func (s *Server) handleAverages(w http.ResponseWriter, r *http.Request) {
	casNumber := r.URL.Query().Get("numcas")
	if casNumber == "" {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "missing numcas parameter"})
		return
	}

	avg, err := s.queries.AveragePrice(r.Context(), casNumber)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNoData):
			s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "No data"})
		case errors.Is(err, types.ErrNoValidData):
			s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "No valid data"})
		default:
			s.logger.Error("average price failed", "numcas", casNumber, "error", err)
			s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "aggregation failed"})
		}
		return
	}

	s.jsonResponse(w, http.StatusOK, avg)
}

// handleRun wipes a company's stored items and launches a fresh crawl
// for it in the background. The wipe happens inside the runner, after
// the run slot is held, so a refused launch keeps the stored data. The
// response only covers the launch.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	companyName := r.URL.Query().Get("company_name")
	if companyName == "" {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "missing company_name parameter"})
		return
	}

	deleted, err := s.runner.Launch(r.Context(), companyName)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrUnknownCompany):
			s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "unknown company_name"})
		case errors.Is(err, types.ErrCrawlRunning):
			s.jsonResponse(w, http.StatusConflict, map[string]string{"error": "crawl already running"})
		default:
			s.logger.Error("crawl launch failed", "company", companyName, "error", err)
			s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "launch failed"})
		}
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "started",
		"company": companyName,
		"deleted": deleted,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.runner.Stats())
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
