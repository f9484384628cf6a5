package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

func TestJobLifecycle(t *testing.T) {
	completed := testutil.ToFloat64(jobsTotal.WithLabelValues("plain", "completed"))
	failed := testutil.ToFloat64(jobsTotal.WithLabelValues("encrypted", "failed"))
	publish := testutil.ToFloat64(jobErrors.WithLabelValues("publish"))
	active := testutil.ToFloat64(activeJobs)

	JobQueued()
	JobStarted()
	assert.Equal(t, active+1, testutil.ToFloat64(activeJobs))
	JobFinished("plain", nil)

	JobQueued()
	JobStarted()
	JobFinished("encrypted", job.Errorf(job.ErrPublish, "upload failed"))

	assert.Equal(t, completed+1, testutil.ToFloat64(jobsTotal.WithLabelValues("plain", "completed")))
	assert.Equal(t, failed+1, testutil.ToFloat64(jobsTotal.WithLabelValues("encrypted", "failed")))
	assert.Equal(t, publish+1, testutil.ToFloat64(jobErrors.WithLabelValues("publish")))
	assert.Equal(t, active, testutil.ToFloat64(activeJobs))
}

func TestHandler(t *testing.T) {
	ObserveStage("fetch", time.Now().Add(-2*time.Second))
	JobRejected()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `drmworker_stage_duration_seconds_count{stage="fetch"}`))
	assert.True(t, strings.Contains(body, "drmworker_rejected_jobs_total"))
}
