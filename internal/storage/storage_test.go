package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

type fakeUploader struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys == nil {
		f.keys = map[string]string{}
	}
	f.keys[aws.ToString(input.Bucket)+"/"+aws.ToString(input.Key)] = aws.ToString(input.ContentType)
	return &manager.UploadOutput{}, nil
}

type fakeDownloader struct {
	content []byte
	input   *s3.GetObjectInput
}

func (f *fakeDownloader) Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error) {
	f.input = input
	n, err := w.WriteAt(f.content, 0)
	return int64(n), err
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
}

func keys(objects []Object) []string {
	var out []string
	for _, o := range objects {
		out = append(out, o.Key)
	}
	sort.Strings(out)
	return out
}

func TestObjectKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hls", "master.m3u8"))
	writeFile(t, filepath.Join(dir, "hls", "video", "variant_0", "playlist.m3u8"))
	writeFile(t, filepath.Join(dir, "drm_keys.txt"))

	objects, err := ObjectKeys(filepath.Join(dir, "hls"), "movies/42/")
	require.NoError(t, err)
	assert.Equal(t, []string{"movies/42/hls/master.m3u8", "movies/42/hls/video/variant_0/playlist.m3u8"}, keys(objects))

	objects, err = ObjectKeys(filepath.Join(dir, "hls")+string(filepath.Separator), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"hls/master.m3u8", "hls/video/variant_0/playlist.m3u8"}, keys(objects))

	objects, err = ObjectKeys(filepath.Join(dir, "drm_keys.txt"), "movies/42")
	require.NoError(t, err)
	assert.Equal(t, []string{"movies/42/drm_keys.txt"}, keys(objects))

	_, err = ObjectKeys(filepath.Join(dir, "missing"), "x")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"master.m3u8":    "application/vnd.apple.mpegurl",
		"manifest.mpd":   "application/dash+xml",
		"segment_01.ts":  "video/mp2t",
		"seg.M4S":        "video/iso.segment",
		"en.vtt":         "text/vtt",
		"no_extension":   "application/octet-stream",
		"stream.unknown": "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}

func testClient(u uploader, d downloader) *ClientCtx {
	return &ClientCtx{logger: zerolog.Nop(), uploader: u, downloader: d}
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dash", "manifest.m3u8"))
	writeFile(t, filepath.Join(dir, "dash", "video", "seg.m4s"))

	up := &fakeUploader{}
	c := testClient(up, nil)

	require.NoError(t, c.Upload(context.Background(), filepath.Join(dir, "dash"), job.Locator{Bucket: "out", Key: "movies/42"}))
	assert.Equal(t, map[string]string{
		"out/movies/42/dash/manifest.m3u8": "application/vnd.apple.mpegurl",
		"out/movies/42/dash/video/seg.m4s": "video/iso.segment",
	}, up.keys)
}

func TestUploadFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "drm_keys.txt"))

	c := testClient(&fakeUploader{err: errors.New("access denied")}, nil)
	err := c.Upload(context.Background(), filepath.Join(dir, "drm_keys.txt"), job.Locator{Bucket: "out"})
	assert.ErrorContains(t, err, "access denied")
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	down := &fakeDownloader{content: []byte("movie")}
	c := testClient(nil, down)

	dst := filepath.Join(dir, "job_1", "input.mp4")
	require.NoError(t, c.Download(context.Background(), "s3://in/path/movie.mp4", dst))

	assert.Equal(t, "in", aws.ToString(down.input.Bucket))
	assert.Equal(t, "path/movie.mp4", aws.ToString(down.input.Key))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "movie", string(data))

	assert.Error(t, c.Download(context.Background(), "s3://in", dst))
}

func TestDownloadLocal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.wav")
	writeFile(t, src)

	c := testClient(nil, nil)
	dst := filepath.Join(dir, "job_1", "en.wav")
	require.NoError(t, c.Download(context.Background(), src, dst))
	assert.FileExists(t, dst)

	assert.Error(t, c.Download(context.Background(), filepath.Join(dir, "missing.wav"), dst))
}

func TestNew(t *testing.T) {
	c, err := New(context.Background(), Config{Endpoint: "http://127.0.0.1:9000", UsePathStyle: true}, Credentials{AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.NotNil(t, c.uploader)
	assert.NotNil(t, c.downloader)
}
