package pipeline

import (
	"context"
	"path/filepath"

	"github.com/ikbir-singh-unisys/DRM-Worker/internal/storage"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/store"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/packager"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/probe"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/subtitle"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/transcode"
)

// Session is a store handle scoped to one job.
type Session interface {
	Credential(id string) (*store.Credential, error)
	AudioTracks(jobID string) ([]job.Track, error)
	SubtitleTracks(jobID string) ([]job.Track, error)
	Close() error
}

type SessionOpener func(ctx context.Context) (Session, error)

type ObjectStore interface {
	Download(ctx context.Context, src, dst string) error
	Upload(ctx context.Context, local string, dest job.Locator) error
}

// ObjectStoreFactory builds a client for one credential set.
type ObjectStoreFactory func(ctx context.Context, creds storage.Credentials) (ObjectStore, error)

type Prober interface {
	Media(ctx context.Context, path string) (*probe.MediaData, error)
}

type Transcoder interface {
	Video(ctx context.Context, input, outDir string) ([]transcode.Rendition, error)
	Passthrough(ctx context.Context, input, outDir string) ([]transcode.Rendition, error)
	Audio(ctx context.Context, input, outDir, language string, fragmentable bool) (transcode.Rendition, error)
}

type Normalizer interface {
	NormalizeAll(sources []subtitle.Source, outDir string) ([]subtitle.Track, error)
}

type Packager interface {
	Package(ctx context.Context, encrypted bool, in packager.Input) (*packager.Output, error)
}

type Config struct {
	// OutputDir holds one job_<id> workspace per job.
	OutputDir string
	// Cleanup removes the workspace after a successful run.
	Cleanup bool
}

func (c Config) withDefaultValues() Config {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	return c
}

// Workspace is the private directory of one job.
type Workspace struct {
	Dir string
}

func NewWorkspace(outputDir, jobID string) Workspace {
	return Workspace{Dir: filepath.Join(outputDir, "job_"+jobID)}
}

func (w Workspace) Input() string {
	return filepath.Join(w.Dir, "input.mp4")
}

func (w Workspace) Subtitles() string {
	return filepath.Join(w.Dir, "subtitles")
}

func (w Workspace) Transcoded() string {
	return filepath.Join(w.Dir, "transcoded")
}

func (w Workspace) Audio() string {
	return filepath.Join(w.Dir, "transcoded", "audio")
}

func (w Workspace) Dash() string {
	return filepath.Join(w.Dir, "dash")
}

func (w Workspace) HLS() string {
	return filepath.Join(w.Dir, "hls")
}

func (w Workspace) KeyFile() string {
	return filepath.Join(w.Dir, packager.KeyFileName)
}

// Track is the download target of an external track: <lang>.wav or <lang>.srt.
func (w Workspace) Track(t job.Track) string {
	ext := ".wav"
	if t.Kind == job.TrackSubtitle {
		ext = ".srt"
	}
	return filepath.Join(w.Dir, t.Language+ext)
}
