package packager

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/probe"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/subtitle"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/transcode"
)

const (
	ModeEncrypted = "encrypted"
	ModePlain     = "plain"

	KeyFileName        = "drm_keys.txt"
	MasterPlaylistName = "master.m3u8"

	DefaultPlayReadyLAURL = "https://pr.service.expressplay.com/playready/RightsManager.asmx"
)

type Config struct {
	FFmpegBinary      string
	Mp4fragmentBinary string
	Mp4dashBinary     string

	SegmentSeconds int
	PlayReadyLAURL string

	// FixedKeys replaces per-job key generation. Only meant for test fixtures.
	FixedKeys *KeySet
	Rand      io.Reader

	SweepAttempts int
	SweepBackoff  time.Duration
}

func (c Config) withDefaultValues() Config {
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if c.Mp4fragmentBinary == "" {
		c.Mp4fragmentBinary = "mp4fragment"
	}
	if c.Mp4dashBinary == "" {
		c.Mp4dashBinary = "mp4dash"
	}
	if c.SegmentSeconds <= 0 {
		c.SegmentSeconds = 6
	}
	if c.PlayReadyLAURL == "" {
		c.PlayReadyLAURL = DefaultPlayReadyLAURL
	}
	if c.Rand == nil {
		c.Rand = rand.Reader
	}
	if c.SweepAttempts <= 0 {
		c.SweepAttempts = 3
	}
	if c.SweepBackoff <= 0 {
		c.SweepBackoff = time.Second
	}
	return c
}

type MediaProber interface {
	Media(ctx context.Context, path string) (*probe.MediaData, error)
}

// Input is everything a job hands to the packager.
type Input struct {
	// WorkDir is the private job directory, outputs are written below it.
	WorkDir string
	// Videos in ladder order.
	Videos []transcode.Rendition
	// Audios in track order. The first one becomes the main/default track.
	Audios    []transcode.Rendition
	Subtitles []subtitle.Track
	Duration  time.Duration
}

type Output struct {
	Mode string
	// Dir is the folder to publish: dash/ or hls/.
	Dir string
	// KeyFile is set in encrypted mode only.
	KeyFile string
	Master  string
}
