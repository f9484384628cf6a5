package drmworker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ikbir-singh-unisys/DRM-Worker/internal/api"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/config"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/notify"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/pipeline"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/server"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/storage"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/store"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/packager"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/probe"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/runner"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/subtitle"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/transcode"
)

var Service *Main

func init() {
	Service = &Main{
		WorkerConfig:   &config.Worker{},
		MediaConfig:    &config.Media{},
		DRMConfig:      &config.DRM{},
		DatabaseConfig: &config.Database{},
		StorageConfig:  &config.Storage{},
		ServerConfig:   &server.Config{},
	}
}

type Main struct {
	WorkerConfig   *config.Worker
	MediaConfig    *config.Media
	DRMConfig      *config.DRM
	DatabaseConfig *config.Database
	StorageConfig  *config.Storage
	ServerConfig   *server.Config

	logger     zerolog.Logger
	store      *store.StoreCtx
	sink       notify.Sink
	pool       *pipeline.PoolCtx
	apiManager *api.ApiManagerCtx
	server     *server.ServerManagerCtx
}

func (main *Main) Preflight() {
	main.logger = log.With().Str("service", "main").Logger()
}

// controller opens the store and assembles the job pipeline.
func (main *Main) controller() (*pipeline.ControllerCtx, error) {
	db := main.DatabaseConfig
	st, err := store.Open(store.Config{
		Driver:          db.Driver,
		DSN:             db.DSN,
		LogLevel:        db.LogLevel,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		AutoMigrate:     db.AutoMigrate,
	})
	if err != nil {
		return nil, err
	}
	main.store = st

	media := main.MediaConfig
	var ladder []transcode.Profile
	if media.LadderFile != "" {
		ladder, err = transcode.LoadLadder(media.LadderFile)
		if err != nil {
			return nil, err
		}
		main.logger.Info().Str("file", media.LadderFile).Int("renditions", len(ladder)).Msg("loaded rendition ladder")
	}

	var fixedKeys *packager.KeySet
	if main.DRMConfig.HasFixedKeys() {
		fixedKeys = &packager.KeySet{
			KeyID: main.DRMConfig.FixedKeyID,
			Key:   main.DRMConfig.FixedKey,
			CEK:   main.DRMConfig.FixedCEK,
		}
		if err := fixedKeys.Validate(); err != nil {
			return nil, fmt.Errorf("invalid fixed drm keys: %w", err)
		}
	}

	exec := runner.New()
	prober := probe.New(media.FFprobeBinary, exec)

	s3 := main.StorageConfig
	storageConfig := storage.Config{
		Endpoint:     s3.Endpoint,
		UsePathStyle: s3.UsePathStyle,
		MaxAttempts:  s3.MaxAttempts,
		Concurrency:  s3.Concurrency,
	}

	main.sink = notify.New(notify.Config{
		ControllerURL: main.WorkerConfig.ControllerURL,
		Timeout:       main.WorkerConfig.ControllerTimeout,
	})

	return pipeline.New(pipeline.Config{
		OutputDir: main.WorkerConfig.OutputDir,
		Cleanup:   main.WorkerConfig.Cleanup,
	}, pipeline.Dependencies{
		Sessions: func(ctx context.Context) (pipeline.Session, error) {
			session, err := st.Session(ctx)
			if err != nil {
				return nil, err
			}
			return session, nil
		},
		Objects: func(ctx context.Context, creds storage.Credentials) (pipeline.ObjectStore, error) {
			client, err := storage.New(ctx, storageConfig, creds)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		Sink:   main.sink,
		Prober: prober,
		Transcoder: transcode.New(transcode.Config{
			FFmpegBinary: media.FFmpegBinary,
			Ladder:       ladder,
			Parallelism:  media.Parallelism,
		}, exec, prober),
		Normalizer: subtitle.New(),
		Packager: packager.New(packager.Config{
			FFmpegBinary:      media.FFmpegBinary,
			Mp4fragmentBinary: media.Mp4fragmentBinary,
			Mp4dashBinary:     media.Mp4dashBinary,
			SegmentSeconds:    media.SegmentSeconds,
			PlayReadyLAURL:    main.DRMConfig.PlayReadyLAURL,
			FixedKeys:         fixedKeys,
		}, exec, prober),
	}), nil
}

func (main *Main) Start() error {
	controller, err := main.controller()
	if err != nil {
		return err
	}

	main.pool = pipeline.NewPool(pipeline.PoolConfig{
		Workers:   main.WorkerConfig.Workers,
		QueueSize: main.WorkerConfig.QueueSize,
	}, controller, main.sink)

	main.apiManager = api.New(main.pool)

	main.server = server.New(main.ServerConfig)
	main.server.Mount(main.apiManager.Mount)
	return main.server.Start()
}

// Shutdown stops accepting jobs and waits for the running ones until ctx ends.
func (main *Main) Shutdown(ctx context.Context) {
	if main.server != nil {
		err := main.server.Shutdown()
		main.logger.Err(err).Msg("http server shutdown")
	}

	if main.pool != nil {
		err := main.pool.Shutdown(ctx)
		main.logger.Err(err).Msg("worker pool shutdown")
	}

	main.closeStore()
}

func (main *Main) closeStore() {
	if main.store == nil {
		return
	}

	err := main.store.Close()
	main.logger.Err(err).Msg("store closed")
}

func (main *Main) ServeCommand(cmd *cobra.Command, args []string) {
	main.logger.Info().Msg("starting main server")
	if err := main.Start(); err != nil {
		main.Shutdown(context.Background())
		main.logger.Panic().Err(err).Msg("unable to start worker")
	}
	main.logger.Info().Msg("main ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	sig := <-quit

	// a second signal abandons the running jobs
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-quit
		main.logger.Warn().Msg("received second signal, not waiting for running jobs")
		cancel()
	}()

	main.logger.Warn().Msgf("received %s, attempting graceful shutdown", sig)
	main.Shutdown(ctx)
	cancel()
	main.logger.Info().Msg("shutdown complete")
}

// RunCommand processes one job descriptor, read from a file or stdin, in the foreground.
func (main *Main) RunCommand(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	desc, err := job.Decode(in)
	if err != nil {
		return err
	}

	controller, err := main.controller()
	if err != nil {
		return err
	}
	defer main.closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	main.logger.Info().Str("job", desc.JobID).Str("mode", desc.Mode()).Msg("running job")
	return controller.Run(ctx, desc)
}
