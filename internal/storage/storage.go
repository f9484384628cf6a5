package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

const DefaultRegion = "us-east-1"

type Credentials struct {
	AccessKey string
	SecretKey string
	Region    string
}

type Config struct {
	// Endpoint overrides the S3 endpoint, for S3 compatible stores.
	Endpoint     string
	UsePathStyle bool

	MaxAttempts    int
	ConnectTimeout time.Duration
	// Concurrency is the number of parts transferred in parallel per object.
	Concurrency int
}

func (c Config) withDefaultValues() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = manager.DefaultUploadConcurrency
	}
	return c
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

type ClientCtx struct {
	logger     zerolog.Logger
	uploader   uploader
	downloader downloader
}

// New builds a client bound to one credential set.
func New(ctx context.Context, conf Config, creds Credentials) (*ClientCtx, error) {
	conf = conf.withDefaultValues()

	region := strings.TrimSpace(creds.Region)
	if region == "" {
		region = DefaultRegion
	}

	httpClient := awshttp.NewBuildableClient().WithDialerOptions(func(d *net.Dialer) {
		d.Timeout = conf.ConnectTimeout
	})

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, "")),
		config.WithRetryMaxAttempts(conf.MaxAttempts),
		config.WithRetryMode(aws.RetryModeStandard),
		config.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
		o.UsePathStyle = conf.UsePathStyle
	})

	return &ClientCtx{
		logger: log.With().Str("module", "storage").Logger(),
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.Concurrency = conf.Concurrency
		}),
		downloader: manager.NewDownloader(client, func(d *manager.Downloader) {
			d.Concurrency = conf.Concurrency
		}),
	}, nil
}

// Download fetches src into dst. src is an s3:// locator or a local path.
func (c *ClientCtx) Download(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	if !job.IsRemote(src) {
		c.logger.Info().Str("src", src).Str("dst", dst).Msg("copying local file")
		return copyFile(src, dst)
	}

	loc, err := job.ParseLocator(src)
	if err != nil {
		return err
	}
	if loc.Key == "" {
		return fmt.Errorf("locator %s has no object key", src)
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}

	c.logger.Info().Str("src", loc.String()).Str("dst", dst).Msg("downloading")
	n, err := c.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("download %s: %w", loc, err)
	}

	c.logger.Info().Str("src", loc.String()).Int64("bytes", n).Msg("downloaded")
	return nil
}

// Upload puts a file or a whole directory under dest. See ObjectKeys for the layout.
func (c *ClientCtx) Upload(ctx context.Context, local string, dest job.Locator) error {
	objects, err := ObjectKeys(local, dest.Key)
	if err != nil {
		return err
	}

	for _, obj := range objects {
		if err := c.put(ctx, obj, dest.Bucket); err != nil {
			return err
		}
	}

	c.logger.Info().Str("path", local).Str("dest", dest.String()).Int("objects", len(objects)).Msg("uploaded")
	return nil
}

func (c *ClientCtx) put(ctx context.Context, obj Object, bucket string) error {
	f, err := os.Open(obj.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	c.logger.Debug().Str("path", obj.Path).Str("key", obj.Key).Msg("uploading file")
	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(obj.Key),
		Body:        f,
		ContentType: aws.String(ContentType(obj.Path)),
	})
	if err != nil {
		return fmt.Errorf("upload %s to s3://%s/%s: %w", obj.Path, bucket, obj.Key, err)
	}
	return nil
}

// Object is a local file and the key it is stored under.
type Object struct {
	Path string
	Key  string
}

// ObjectKeys maps local to object keys below prefix. A file is stored as
// prefix/<name>, a directory as prefix/<dir name>/<relative path> for every file in it.
func ObjectKeys(local, prefix string) ([]Object, error) {
	fi, err := os.Stat(local)
	if err != nil {
		return nil, err
	}

	prefix = strings.Trim(prefix, "/")
	if !fi.IsDir() {
		return []Object{{Path: local, Key: path.Join(prefix, filepath.Base(local))}}, nil
	}

	parent := filepath.Dir(filepath.Clean(local))

	var objects []Object
	err = filepath.Walk(local, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(parent, p)
		if err != nil {
			return err
		}

		objects = append(objects, Object{Path: p, Key: path.Join(prefix, filepath.ToSlash(rel))})
		return nil
	})

	return objects, err
}

var contentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".mpd":  "application/dash+xml",
	".ts":   "video/mp2t",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
	".vtt":  "text/vtt",
}

func ContentType(p string) string {
	ext := strings.ToLower(filepath.Ext(p))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
