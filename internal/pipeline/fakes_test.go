package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ikbir-singh-unisys/DRM-Worker/internal/storage"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/store"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/packager"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/probe"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/subtitle"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/transcode"
)

type event struct {
	Status   job.Status
	Progress int
	Duration *float64
}

type fakeSink struct {
	mu     sync.Mutex
	events []event
}

func (f *fakeSink) UpdateStatus(ctx context.Context, jobID string, status job.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{Status: status})
}

func (f *fakeSink) UpdateProgress(ctx context.Context, jobID string, percent int, duration *float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{Progress: percent, Duration: duration})
}

func (f *fakeSink) statuses() []job.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []job.Status
	for _, e := range f.events {
		if e.Status != "" {
			out = append(out, e.Status)
		}
	}
	return out
}

func (f *fakeSink) progress() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []int
	for _, e := range f.events {
		if e.Status == "" {
			out = append(out, e.Progress)
		}
	}
	return out
}

type fakeSession struct {
	credentials map[string]*store.Credential
	audios      []job.Track
	subtitles   []job.Track
	closeErr    error

	mu     sync.Mutex
	closed int
}

func (f *fakeSession) Credential(id string) (*store.Credential, error) {
	if c, ok := f.credentials[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("credential %s not found", id)
}

func (f *fakeSession) AudioTracks(jobID string) ([]job.Track, error) {
	return f.audios, nil
}

func (f *fakeSession) SubtitleTracks(jobID string) ([]job.Track, error) {
	return f.subtitles, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

func (f *fakeSession) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type upload struct {
	Local     string
	Dest      job.Locator
	AccessKey string
}

// fakeObjects serves downloads from content; a missing entry fails the download.
type fakeObjects struct {
	content   map[string]string
	uploadErr error

	mu        sync.Mutex
	downloads []string
	uploads   []upload
	clients   []string
}

func (f *fakeObjects) factory(ctx context.Context, creds storage.Credentials) (ObjectStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients = append(f.clients, creds.AccessKey)
	return &fakeClient{parent: f, accessKey: creds.AccessKey}, nil
}

type fakeClient struct {
	parent    *fakeObjects
	accessKey string
}

func (c *fakeClient) Download(ctx context.Context, src, dst string) error {
	f := c.parent
	f.mu.Lock()
	f.downloads = append(f.downloads, src)
	f.mu.Unlock()

	data, ok := f.content[src]
	if !ok {
		return errors.New("NoSuchKey: " + src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte(data), 0644)
}

func (c *fakeClient) Upload(ctx context.Context, local string, dest job.Locator) error {
	f := c.parent
	if f.uploadErr != nil {
		return f.uploadErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, upload{Local: local, Dest: dest, AccessKey: c.accessKey})
	return nil
}

type fakeProber struct {
	media *probe.MediaData
	err   error

	mu    sync.Mutex
	calls int
}

func (f *fakeProber) Media(ctx context.Context, path string) (*probe.MediaData, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return f.media, nil
}

func (f *fakeProber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sourceMedia() *probe.MediaData {
	return &probe.MediaData{
		Duration: 20 * time.Second,
		BitRate:  2500000,
		Video: &probe.VideoData{
			CodecName: "h264",
			Profile:   "High",
			PixFmt:    "yuv420p",
			Level:     40,
			Width:     1920,
			Height:    1080,
		},
		Audio: []probe.AudioData{{CodecName: "aac"}},
	}
}

type fakeTranscoder struct {
	err   error
	panic string

	mu          sync.Mutex
	video       int
	passthrough int
	audio       []string
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("data"), 0644)
}

func (f *fakeTranscoder) Video(ctx context.Context, input, outDir string) ([]transcode.Rendition, error) {
	f.mu.Lock()
	f.video++
	f.mu.Unlock()

	if f.panic != "" {
		panic(f.panic)
	}
	if f.err != nil {
		return nil, f.err
	}

	var out []transcode.Rendition
	for _, p := range transcode.DefaultLadder {
		path := filepath.Join(outDir, p.FileName())
		if err := touch(path); err != nil {
			return nil, err
		}
		out = append(out, transcode.Rendition{Kind: transcode.KindVideo, Name: p.Name, Width: p.Width, Height: p.Height, Path: path})
	}
	return out, nil
}

func (f *fakeTranscoder) Passthrough(ctx context.Context, input, outDir string) ([]transcode.Rendition, error) {
	f.mu.Lock()
	f.passthrough++
	f.mu.Unlock()

	path := filepath.Join(outDir, "output_source.mp4")
	if err := touch(path); err != nil {
		return nil, err
	}
	return []transcode.Rendition{{Kind: transcode.KindVideo, Name: transcode.SourceRendition, Path: path}}, nil
}

func (f *fakeTranscoder) Audio(ctx context.Context, input, outDir, language string, fragmentable bool) (transcode.Rendition, error) {
	f.mu.Lock()
	f.audio = append(f.audio, language)
	f.mu.Unlock()

	path := filepath.Join(outDir, language, transcode.AudioFileName(fragmentable))
	if err := touch(path); err != nil {
		return transcode.Rendition{}, err
	}
	return transcode.Rendition{Kind: transcode.KindAudio, Name: language, Language: language, Path: path}, nil
}

type fakeNormalizer struct {
	sources []subtitle.Source
}

func (f *fakeNormalizer) NormalizeAll(sources []subtitle.Source, outDir string) ([]subtitle.Track, error) {
	f.sources = sources

	var out []subtitle.Track
	for _, s := range sources {
		path := filepath.Join(outDir, s.Language+".vtt")
		if err := touch(path); err != nil {
			return nil, err
		}
		out = append(out, subtitle.Track{Language: s.Language, Path: path, Encoding: "utf-8"})
	}
	return out, nil
}

// fakePackager writes the folders the real modes produce unless skipOutput is set.
type fakePackager struct {
	err        error
	skipOutput bool

	in        packager.Input
	encrypted bool
}

func (f *fakePackager) Package(ctx context.Context, encrypted bool, in packager.Input) (*packager.Output, error) {
	f.in, f.encrypted = in, encrypted
	if f.err != nil {
		return nil, f.err
	}

	if encrypted {
		dir := filepath.Join(in.WorkDir, "dash")
		if !f.skipOutput {
			if err := touch(filepath.Join(dir, "manifest.m3u8")); err != nil {
				return nil, err
			}
			if err := touch(filepath.Join(in.WorkDir, packager.KeyFileName)); err != nil {
				return nil, err
			}
		}
		return &packager.Output{Mode: packager.ModeEncrypted, Dir: dir, Master: filepath.Join(dir, "manifest.m3u8")}, nil
	}

	dir := filepath.Join(in.WorkDir, "hls")
	if !f.skipOutput {
		if err := touch(filepath.Join(dir, packager.MasterPlaylistName)); err != nil {
			return nil, err
		}
	}
	return &packager.Output{Mode: packager.ModePlain, Dir: dir, Master: filepath.Join(dir, packager.MasterPlaylistName)}, nil
}
