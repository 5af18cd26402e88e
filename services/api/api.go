package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"sjsage522/estatecrawler/internal/crawler"
	"sjsage522/estatecrawler/logger"
	"sjsage522/estatecrawler/services/worker"
)

// Trigger is the part of the worker the API drives
type Trigger interface {
	Trigger(ctx context.Context) error
	LastRun() (*crawler.RunSummary, error)
}

// Handler serves the crawl trigger and status endpoints
type Handler struct {
	trigger Trigger
	// runCtx outlives requests; triggered runs stop when it is canceled
	runCtx context.Context
	log    *logger.Logger
}

// NewHandler creates the API handler
func NewHandler(runCtx context.Context, trigger Trigger) *Handler {
	return &Handler{trigger: trigger, runCtx: runCtx, log: logger.ForAPI()}
}

// Router builds the gorilla/mux router of the API
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/crawl", h.handleCrawl).Methods(http.MethodPost)
	r.HandleFunc("/runs/last", h.handleLastRun).Methods(http.MethodGet)
	r.Use(h.logRequests)
	return r
}

// NewServer wraps the router in an http.Server listening on addr
func NewServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCrawl(w http.ResponseWriter, r *http.Request) {
	err := h.trigger.Trigger(h.runCtx)
	switch {
	case stderrors.Is(err, worker.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		h.log.Error().Err(err).Msg("failed to trigger run")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func (h *Handler) handleLastRun(w http.ResponseWriter, r *http.Request) {
	summary, _ := h.trigger.LastRun()
	if summary == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run has finished yet"})
		return
	}
	// the run's error is already part of the summary
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
