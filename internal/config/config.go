package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config interface {
	Init(cmd *cobra.Command) error
	Set()
}

//
// Worker
//

type Worker struct {
	OutputDir string
	Workers   int
	QueueSize int
	Cleanup   bool

	ControllerURL     string
	ControllerTimeout time.Duration
}

func (Worker) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("worker.output-dir", "output", "directory holding the per job workspaces")
	if err := viper.BindPFlag("worker.output-dir", cmd.PersistentFlags().Lookup("worker.output-dir")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("worker.workers", 4, "number of jobs processed in parallel")
	if err := viper.BindPFlag("worker.workers", cmd.PersistentFlags().Lookup("worker.workers")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("worker.queue-size", 64, "number of accepted jobs waiting for a worker")
	if err := viper.BindPFlag("worker.queue-size", cmd.PersistentFlags().Lookup("worker.queue-size")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("worker.cleanup", false, "remove the job workspace after a successful upload")
	if err := viper.BindPFlag("worker.cleanup", cmd.PersistentFlags().Lookup("worker.cleanup")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("worker.controller-url", "", "controller API receiving status and progress updates")
	if err := viper.BindPFlag("worker.controller-url", cmd.PersistentFlags().Lookup("worker.controller-url")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("worker.controller-timeout", 10*time.Second, "timeout of a single controller update")
	if err := viper.BindPFlag("worker.controller-timeout", cmd.PersistentFlags().Lookup("worker.controller-timeout")); err != nil {
		return err
	}

	return nil
}

func (c *Worker) Set() {
	c.OutputDir = viper.GetString("worker.output-dir")
	c.Workers = viper.GetInt("worker.workers")
	c.QueueSize = viper.GetInt("worker.queue-size")
	c.Cleanup = viper.GetBool("worker.cleanup")

	c.ControllerURL = viper.GetString("worker.controller-url")
	c.ControllerTimeout = viper.GetDuration("worker.controller-timeout")
}

//
// Media tools
//

type Media struct {
	FFmpegBinary      string
	FFprobeBinary     string
	Mp4fragmentBinary string
	Mp4dashBinary     string

	// LadderFile replaces the built in rendition ladder.
	LadderFile     string
	Parallelism    int
	SegmentSeconds int
}

func (Media) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("media.ffmpeg-binary", "ffmpeg", "path to the ffmpeg binary")
	if err := viper.BindPFlag("media.ffmpeg-binary", cmd.PersistentFlags().Lookup("media.ffmpeg-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("media.ffprobe-binary", "ffprobe", "path to the ffprobe binary")
	if err := viper.BindPFlag("media.ffprobe-binary", cmd.PersistentFlags().Lookup("media.ffprobe-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("media.mp4fragment-binary", "mp4fragment", "path to the Bento4 mp4fragment binary")
	if err := viper.BindPFlag("media.mp4fragment-binary", cmd.PersistentFlags().Lookup("media.mp4fragment-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("media.mp4dash-binary", "mp4dash", "path to the Bento4 mp4dash binary")
	if err := viper.BindPFlag("media.mp4dash-binary", cmd.PersistentFlags().Lookup("media.mp4dash-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("media.ladder-file", "", "yaml file with the video rendition ladder")
	if err := viper.BindPFlag("media.ladder-file", cmd.PersistentFlags().Lookup("media.ladder-file")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("media.parallelism", 1, "renditions encoded in parallel per job")
	if err := viper.BindPFlag("media.parallelism", cmd.PersistentFlags().Lookup("media.parallelism")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("media.segment-seconds", 6, "hls segment length in seconds")
	if err := viper.BindPFlag("media.segment-seconds", cmd.PersistentFlags().Lookup("media.segment-seconds")); err != nil {
		return err
	}

	return nil
}

func (c *Media) Set() {
	c.FFmpegBinary = viper.GetString("media.ffmpeg-binary")
	c.FFprobeBinary = viper.GetString("media.ffprobe-binary")
	c.Mp4fragmentBinary = viper.GetString("media.mp4fragment-binary")
	c.Mp4dashBinary = viper.GetString("media.mp4dash-binary")

	c.LadderFile = viper.GetString("media.ladder-file")
	c.Parallelism = viper.GetInt("media.parallelism")
	c.SegmentSeconds = viper.GetInt("media.segment-seconds")
}

//
// DRM
//

type DRM struct {
	PlayReadyLAURL string

	// fixed keys are used only when all three are set
	FixedKeyID string
	FixedKey   string
	FixedCEK   string
}

func (DRM) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("drm.playready-la-url", "", "PlayReady license acquisition url")
	if err := viper.BindPFlag("drm.playready-la-url", cmd.PersistentFlags().Lookup("drm.playready-la-url")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("drm.fixed-kid", "", "fixed key id, for test fixtures only")
	if err := viper.BindPFlag("drm.fixed-kid", cmd.PersistentFlags().Lookup("drm.fixed-kid")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("drm.fixed-key", "", "fixed content key, for test fixtures only")
	if err := viper.BindPFlag("drm.fixed-key", cmd.PersistentFlags().Lookup("drm.fixed-key")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("drm.fixed-cek", "", "fixed content encryption key, for test fixtures only")
	if err := viper.BindPFlag("drm.fixed-cek", cmd.PersistentFlags().Lookup("drm.fixed-cek")); err != nil {
		return err
	}

	return nil
}

func (c *DRM) Set() {
	c.PlayReadyLAURL = viper.GetString("drm.playready-la-url")
	c.FixedKeyID = viper.GetString("drm.fixed-kid")
	c.FixedKey = viper.GetString("drm.fixed-key")
	c.FixedCEK = viper.GetString("drm.fixed-cek")
}

func (c *DRM) HasFixedKeys() bool {
	return c.FixedKeyID != "" && c.FixedKey != "" && c.FixedCEK != ""
}

//
// Database
//

type Database struct {
	Driver      string
	DSN         string
	LogLevel    string
	AutoMigrate bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (Database) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("db.driver", "mysql", "database driver: mysql, postgres or sqlite")
	if err := viper.BindPFlag("db.driver", cmd.PersistentFlags().Lookup("db.driver")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("db.dsn", "", "database connection string")
	if err := viper.BindPFlag("db.dsn", cmd.PersistentFlags().Lookup("db.dsn")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("db.log-level", "warn", "sql log level: silent, error, warn or info")
	if err := viper.BindPFlag("db.log-level", cmd.PersistentFlags().Lookup("db.log-level")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("db.auto-migrate", false, "create missing tables on start")
	if err := viper.BindPFlag("db.auto-migrate", cmd.PersistentFlags().Lookup("db.auto-migrate")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("db.max-open-conns", 10, "maximum open database connections")
	if err := viper.BindPFlag("db.max-open-conns", cmd.PersistentFlags().Lookup("db.max-open-conns")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("db.max-idle-conns", 2, "maximum idle database connections")
	if err := viper.BindPFlag("db.max-idle-conns", cmd.PersistentFlags().Lookup("db.max-idle-conns")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("db.conn-max-lifetime", time.Hour, "maximum lifetime of a database connection")
	if err := viper.BindPFlag("db.conn-max-lifetime", cmd.PersistentFlags().Lookup("db.conn-max-lifetime")); err != nil {
		return err
	}

	return nil
}

func (c *Database) Set() {
	c.Driver = viper.GetString("db.driver")
	c.DSN = viper.GetString("db.dsn")
	c.LogLevel = viper.GetString("db.log-level")
	c.AutoMigrate = viper.GetBool("db.auto-migrate")

	c.MaxOpenConns = viper.GetInt("db.max-open-conns")
	c.MaxIdleConns = viper.GetInt("db.max-idle-conns")
	c.ConnMaxLifetime = viper.GetDuration("db.conn-max-lifetime")
}

//
// Object storage
//

type Storage struct {
	Endpoint     string
	UsePathStyle bool
	MaxAttempts  int
	Concurrency  int
}

func (Storage) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("s3.endpoint", "", "custom endpoint for S3 compatible storage")
	if err := viper.BindPFlag("s3.endpoint", cmd.PersistentFlags().Lookup("s3.endpoint")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("s3.path-style", false, "use path style bucket addressing")
	if err := viper.BindPFlag("s3.path-style", cmd.PersistentFlags().Lookup("s3.path-style")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("s3.max-attempts", 5, "attempts per storage request")
	if err := viper.BindPFlag("s3.max-attempts", cmd.PersistentFlags().Lookup("s3.max-attempts")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("s3.concurrency", 5, "parts transferred in parallel per object")
	if err := viper.BindPFlag("s3.concurrency", cmd.PersistentFlags().Lookup("s3.concurrency")); err != nil {
		return err
	}

	return nil
}

func (c *Storage) Set() {
	c.Endpoint = viper.GetString("s3.endpoint")
	c.UsePathStyle = viper.GetBool("s3.path-style")
	c.MaxAttempts = viper.GetInt("s3.max-attempts")
	c.Concurrency = viper.GetInt("s3.concurrency")
}
