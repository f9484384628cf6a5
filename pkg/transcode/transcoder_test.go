package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/probe"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/runner"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/runner/runnertest"
)

type fakeProber struct {
	data *probe.MediaData
	err  error
}

func (f fakeProber) Media(ctx context.Context, path string) (*probe.MediaData, error) {
	return f.data, f.err
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func sourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	require.NoError(t, writeFile(path, "video"))
	return path
}

func TestVideoLadder(t *testing.T) {
	fake := &runnertest.Fake{
		Handler: func(cmd runner.Command) ([]byte, error) {
			return nil, runnertest.Touch(runnertest.LastArg(cmd))
		},
	}
	prober := fakeProber{data: &probe.MediaData{
		Video: &probe.VideoData{PixFmt: "yuv422p10le"},
		Audio: []probe.AudioData{{CodecName: "aac"}},
	}}
	outDir := filepath.Join(t.TempDir(), "transcoded")

	tr := New(Config{Parallelism: 2}, fake, prober)
	renditions, err := tr.Video(context.Background(), sourceFile(t), outDir)
	require.NoError(t, err)
	require.Len(t, renditions, 4)

	names := []string{}
	for _, r := range renditions {
		names = append(names, r.Name)
		assert.Equal(t, KindVideo, r.Kind)
		assert.FileExists(t, r.Path)
	}
	assert.Equal(t, []string{"1080p", "720p", "480p", "360p"}, names)
	assert.Equal(t, 3000000, renditions[0].Bitrate)
	assert.Equal(t, filepath.Join(outDir, "output_1080p.mp4"), renditions[0].Path)

	for _, c := range fake.CallsTo("ffmpeg") {
		args := strings.Join(c.Args, " ")
		assert.Contains(t, args, "-profile:v high")
		assert.Contains(t, args, "-map 0:a")
	}
}

func TestVideoFailureAbortsLadder(t *testing.T) {
	fake := &runnertest.Fake{
		Handler: func(cmd runner.Command) ([]byte, error) {
			if strings.HasSuffix(runnertest.LastArg(cmd), "output_480p.mp4") {
				return nil, &runner.Error{Command: cmd, Stderr: "encoder died", Err: errors.New("exit status 1")}
			}
			return nil, runnertest.Touch(runnertest.LastArg(cmd))
		},
	}
	prober := fakeProber{data: &probe.MediaData{Video: &probe.VideoData{PixFmt: "yuv420p"}}}

	renditions, err := New(Config{}, fake, prober).Video(context.Background(), sourceFile(t), t.TempDir())
	assert.Nil(t, renditions)
	assert.ErrorIs(t, err, job.ErrTranscode)
	assert.Contains(t, err.Error(), "encoder died")
}

func TestVideoMissingOutput(t *testing.T) {
	// tool exits cleanly but writes nothing
	fake := &runnertest.Fake{}
	prober := fakeProber{data: &probe.MediaData{Video: &probe.VideoData{}}}

	_, err := New(Config{}, fake, prober).Video(context.Background(), sourceFile(t), t.TempDir())
	assert.ErrorIs(t, err, job.ErrTranscode)
	assert.Len(t, fake.Calls(), 1)
}

func TestVideoWithoutAudio(t *testing.T) {
	fake := &runnertest.Fake{
		Handler: func(cmd runner.Command) ([]byte, error) {
			return nil, runnertest.Touch(runnertest.LastArg(cmd))
		},
	}
	prober := fakeProber{data: &probe.MediaData{Video: &probe.VideoData{PixFmt: "yuv420p"}}}

	_, err := New(Config{}, fake, prober).Video(context.Background(), sourceFile(t), t.TempDir())
	require.NoError(t, err)

	for _, c := range fake.Calls() {
		assert.Contains(t, c.Args, "-an")
		assert.Contains(t, c.Args, "main")
	}
}

func TestVideoUnprobeableInput(t *testing.T) {
	fake := &runnertest.Fake{}
	prober := fakeProber{err: errors.New("invalid data found")}

	_, err := New(Config{}, fake, prober).Video(context.Background(), sourceFile(t), t.TempDir())
	assert.ErrorIs(t, err, job.ErrTranscode)
	assert.Empty(t, fake.Calls())
}

func TestAudio(t *testing.T) {
	fake := &runnertest.Fake{
		Handler: func(cmd runner.Command) ([]byte, error) {
			return nil, runnertest.Touch(runnertest.LastArg(cmd))
		},
	}
	outDir := t.TempDir()
	tr := New(Config{}, fake, fakeProber{})

	r, err := tr.Audio(context.Background(), "en.wav", outDir, "en", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "en", "128k.mp4"), r.Path)
	assert.Equal(t, "en", r.Language)
	assert.Equal(t, KindAudio, r.Kind)

	r, err = tr.Audio(context.Background(), "fr.wav", outDir, "fr", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "fr", "128k.aac"), r.Path)
}

func TestPassthrough(t *testing.T) {
	prober := fakeProber{data: &probe.MediaData{
		BitRate: 2500000,
		Video:   &probe.VideoData{Width: 1280, Height: 720},
	}}
	outDir := t.TempDir()

	renditions, err := New(Config{}, &runnertest.Fake{}, prober).Passthrough(context.Background(), sourceFile(t), outDir)
	require.NoError(t, err)
	require.Len(t, renditions, 1)
	assert.Equal(t, SourceRendition, renditions[0].Name)
	assert.Equal(t, 2500000, renditions[0].Bitrate)
	assert.FileExists(t, filepath.Join(outDir, "output_source.mp4"))
}
