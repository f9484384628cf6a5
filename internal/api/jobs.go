package api

import (
	"errors"
	"net/http"

	"github.com/ikbir-singh-unisys/DRM-Worker/internal/pipeline"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

// max size of a job descriptor body
const maxDescriptorSize = 1 << 20

func (a *ApiManagerCtx) runJob(w http.ResponseWriter, r *http.Request) {
	desc, err := job.Decode(http.MaxBytesReader(w, r.Body, maxDescriptorSize))
	if err != nil {
		a.logger.Warn().Err(err).Msg("rejected job descriptor")
		writeError(w, http.StatusBadRequest, err)
		return
	}

	logger := a.logger.With().Str("job", desc.JobID).Logger()
	logger.Info().Str("mode", desc.Mode()).Str("source", desc.Source).Msg("received job")

	if err := a.jobs.Submit(desc); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrQueueFull) || errors.Is(err, pipeline.ErrPoolClosed) {
			status = http.StatusServiceUnavailable
		}

		logger.Warn().Err(err).Msg("unable to queue job")
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Job received and is being processed"})
}
