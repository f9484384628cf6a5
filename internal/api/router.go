package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ikbir-singh-unisys/DRM-Worker/internal/metrics"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

// Submitter accepts a job for background processing.
type Submitter interface {
	Submit(desc job.Descriptor) error
}

type ApiManagerCtx struct {
	logger zerolog.Logger
	jobs   Submitter
}

func New(jobs Submitter) *ApiManagerCtx {
	return &ApiManagerCtx{
		logger: log.With().Str("module", "api").Logger(),
		jobs:   jobs,
	}
}

func (a *ApiManagerCtx) Mount(r *chi.Mux) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "Server is Running"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/test-info", a.machineInfo)
	r.Post("/api/run-job", a.runJob)
	r.Handle("/metrics", metrics.Handler())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
