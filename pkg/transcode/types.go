package transcode

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/probe"
)

const (
	FrameRate    = 24
	GOPSize      = 48 // 2 seconds at FrameRate
	AudioBitrate = 128
	Level        = "4.0"
)

type Profile struct {
	Name    string `yaml:"name"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Bitrate int    `yaml:"bitrate"` // in kilobits
}

func (p Profile) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

func (p Profile) FileName() string {
	return fmt.Sprintf("output_%s.mp4", p.Name)
}

// DefaultLadder is ordered from the highest rendition down.
var DefaultLadder = []Profile{
	{Name: "1080p", Width: 1920, Height: 1080, Bitrate: 3000},
	{Name: "720p", Width: 1280, Height: 720, Bitrate: 2000},
	{Name: "480p", Width: 854, Height: 480, Bitrate: 1000},
	{Name: "360p", Width: 640, Height: 360, Bitrate: 600},
}

// LoadLadder reads a YAML list of profiles that replaces DefaultLadder.
func LoadLadder(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ladder []Profile
	if err := yaml.Unmarshal(data, &ladder); err != nil {
		return nil, fmt.Errorf("unable to parse ladder %s: %w", path, err)
	}

	if len(ladder) == 0 {
		return nil, fmt.Errorf("ladder %s has no profiles", path)
	}

	seen := map[string]bool{}
	for _, p := range ladder {
		if p.Name == "" || p.Width <= 0 || p.Height <= 0 || p.Bitrate <= 0 {
			return nil, fmt.Errorf("ladder %s: incomplete profile %+v", path, p)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("ladder %s: duplicate profile %s", path, p.Name)
		}
		seen[p.Name] = true
	}

	return ladder, nil
}

type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Rendition is one encoded output, consumed by the packager.
type Rendition struct {
	Kind     Kind
	Name     string
	Language string
	Width    int
	Height   int
	Bitrate  int // in bits per second
	Path     string
}

type Config struct {
	FFmpegBinary string
	Ladder       []Profile
	// Parallelism bounds concurrent rendition encodes.
	Parallelism int
}

func (c Config) withDefaultValues() Config {
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if len(c.Ladder) == 0 {
		c.Ladder = DefaultLadder
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	return c
}

type MediaProber interface {
	Media(ctx context.Context, path string) (*probe.MediaData, error)
}
