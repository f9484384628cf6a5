package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

const DefaultTimeout = 10 * time.Second

// Sink receives job status and progress. Delivery is best effort, failures are
// only logged and never reach the job.
type Sink interface {
	UpdateStatus(ctx context.Context, jobID string, status job.Status)
	UpdateProgress(ctx context.Context, jobID string, percent int, duration *float64)
}

type Config struct {
	// ControllerURL is the base of the controller API. Empty disables reporting.
	ControllerURL string
	Timeout       time.Duration
}

// New returns a sink posting to the controller, or a noop sink when no URL is configured.
func New(config Config) Sink {
	base := strings.TrimRight(strings.TrimSpace(config.ControllerURL), "/")
	if base == "" {
		return Noop{}
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &ControllerCtx{
		logger:  log.With().Str("module", "notify").Logger(),
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
	}
}

// Noop drops every update.
type Noop struct{}

func (Noop) UpdateStatus(ctx context.Context, jobID string, status job.Status) {
}

func (Noop) UpdateProgress(ctx context.Context, jobID string, percent int, duration *float64) {
}

type ControllerCtx struct {
	logger  zerolog.Logger
	baseURL string
	client  *http.Client
}

type statusPayload struct {
	Status job.Status `json:"status"`
}

type progressPayload struct {
	Progress int      `json:"progress"`
	Duration *float64 `json:"duration,omitempty"`
}

func (c *ControllerCtx) UpdateStatus(ctx context.Context, jobID string, status job.Status) {
	c.logger.Info().Str("job", jobID).Str("status", string(status)).Msg("reporting status")

	if err := c.post(ctx, jobID, "status", statusPayload{Status: status}); err != nil {
		c.logger.Warn().Err(err).Str("job", jobID).Msg("failed to send status")
	}
}

func (c *ControllerCtx) UpdateProgress(ctx context.Context, jobID string, percent int, duration *float64) {
	c.logger.Info().Str("job", jobID).Int("progress", percent).Msg("reporting progress")

	if err := c.post(ctx, jobID, "progress", progressPayload{Progress: percent, Duration: duration}); err != nil {
		c.logger.Warn().Err(err).Str("job", jobID).Msg("failed to send progress")
	}
}

func (c *ControllerCtx) post(ctx context.Context, jobID, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	target := c.baseURL + "/queue/" + url.PathEscape(jobID) + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	//nolint
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("controller responded %s", resp.Status)
	}
	return nil
}
