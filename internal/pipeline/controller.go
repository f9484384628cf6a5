package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ikbir-singh-unisys/DRM-Worker/internal/metrics"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/notify"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/storage"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/packager"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/subtitle"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/transcode"
)

type Dependencies struct {
	Sessions   SessionOpener
	Objects    ObjectStoreFactory
	Sink       notify.Sink
	Prober     Prober
	Transcoder Transcoder
	Normalizer Normalizer
	Packager   Packager
}

type ControllerCtx struct {
	logger zerolog.Logger
	config Config
	deps   Dependencies
}

func New(config Config, deps Dependencies) *ControllerCtx {
	if deps.Sink == nil {
		deps.Sink = notify.Noop{}
	}

	return &ControllerCtx{
		logger: log.With().Str("module", "pipeline").Logger(),
		config: config.withDefaultValues(),
		deps:   deps,
	}
}

// jobRun carries the state of one Run call.
type jobRun struct {
	desc      job.Descriptor
	logger    zerolog.Logger
	progress  *tracker
	workspace Workspace
	session   Session

	stage    string
	duration *float64

	audios    []job.Track
	subtitles []job.Track
}

// Run executes one job to completion. The error returned is the one that failed
// the job, tagged with its kind.
func (c *ControllerCtx) Run(ctx context.Context, desc job.Descriptor) (err error) {
	logger := c.logger.With().
		Str("job", desc.JobID).
		Str("run", uuid.NewString()).
		Str("mode", desc.Mode()).
		Logger()

	r := &jobRun{
		desc:      desc,
		logger:    logger,
		progress:  newTracker(logger, c.deps.Sink, desc.JobID),
		workspace: NewWorkspace(c.config.OutputDir, desc.JobID),
		stage:     "validate",
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked in stage %s: %v", r.stage, p)
		}
		if err != nil {
			logger.Error().Err(err).
				Str("stage", r.stage).
				Str("kind", job.KindName(err)).
				Msg("job failed")
			r.progress.status(ctx, job.StatusFailed)
			return
		}
		logger.Info().Dur("elapsed", time.Since(start)).Msg("job completed")
	}()

	if err := desc.Validate(); err != nil {
		return err
	}

	r.progress.status(ctx, job.StatusProcessing)
	logger.Info().
		Str("source", desc.Source).
		Bool("upload", desc.UploadToS3).
		Bool("already-transcoded", desc.AlreadyTranscoded).
		Msg("job started")

	r.session, err = c.deps.Sessions(ctx)
	if err != nil {
		return job.Wrap(job.ErrFetch, "store", "open session", err)
	}
	defer func() {
		if closeErr := r.session.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close store session")
		}
	}()

	//
	// fetch
	//

	r.progress.checkpoint(ctx, ProgressFetching, nil)
	if err := c.stage(r, "fetch", func() error { return c.fetch(ctx, r) }); err != nil {
		return err
	}
	r.progress.checkpoint(ctx, ProgressFetched, r.duration)

	//
	// normalize + transcode
	//

	var in packager.Input
	if err := c.stage(r, "transcode", func() (err error) {
		in, err = c.transcode(ctx, r)
		return
	}); err != nil {
		return err
	}
	r.progress.checkpoint(ctx, ProgressTranscoded, nil)

	//
	// package
	//

	var out *packager.Output
	if err := c.stage(r, "package", func() (err error) {
		out, err = c.deps.Packager.Package(ctx, desc.IsPaid, in)
		return
	}); err != nil {
		return err
	}

	//
	// publish
	//

	if desc.UploadToS3 {
		if err := c.stage(r, "publish", func() error { return c.publish(ctx, r, out) }); err != nil {
			return err
		}
	} else {
		logger.Info().Str("output", out.Dir).Msg("upload disabled, keeping output locally")
	}

	r.progress.checkpoint(ctx, ProgressPublished, nil)
	r.progress.checkpoint(ctx, ProgressDone, nil)
	r.progress.status(ctx, job.StatusCompleted)

	if c.config.Cleanup && desc.UploadToS3 {
		if err := os.RemoveAll(r.workspace.Dir); err != nil {
			logger.Warn().Err(err).Str("dir", r.workspace.Dir).Msg("failed to remove workspace")
		} else {
			logger.Info().Str("dir", r.workspace.Dir).Msg("removed workspace")
		}
	}

	return nil
}

func (c *ControllerCtx) stage(r *jobRun, name string, fn func() error) error {
	r.stage = name
	start := time.Now()
	r.logger.Info().Str("stage", name).Msg("stage started")

	err := fn()
	metrics.ObserveStage(name, start)
	if err != nil {
		return err
	}

	r.logger.Info().Str("stage", name).Dur("elapsed", time.Since(start)).Msg("stage completed")
	return nil
}

func (c *ControllerCtx) objectStore(ctx context.Context, r *jobRun, credentialID string) (ObjectStore, error) {
	cred, err := r.session.Credential(credentialID)
	if err != nil {
		return nil, err
	}

	return c.deps.Objects(ctx, storage.Credentials{
		AccessKey: cred.AccessKey,
		SecretKey: cred.SecretKey,
		Region:    cred.Region,
	})
}

func (c *ControllerCtx) fetch(ctx context.Context, r *jobRun) error {
	audios, err := r.session.AudioTracks(r.desc.JobID)
	if err != nil {
		return job.Wrap(job.ErrFetch, "fetch", "load audio tracks", err)
	}
	subtitles, err := r.session.SubtitleTracks(r.desc.JobID)
	if err != nil {
		return job.Wrap(job.ErrFetch, "fetch", "load subtitle tracks", err)
	}

	// track descriptors are checked before anything is downloaded or probed
	if err := job.ValidateTracks(audios); err != nil {
		return err
	}
	if err := job.ValidateTracks(subtitles); err != nil {
		return err
	}

	ws := r.workspace
	for _, dir := range []string{ws.Dir, ws.Subtitles(), ws.Transcoded()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return job.Wrap(job.ErrFetch, "fetch", "create workspace", err)
		}
	}

	objects, err := c.objectStore(ctx, r, r.desc.InputCredential)
	if err != nil {
		return job.Wrap(job.ErrFetch, "fetch", "input credential", err)
	}

	r.logger.Info().Str("source", r.desc.Source).Msg("downloading video")
	if err := objects.Download(ctx, r.desc.Source, ws.Input()); err != nil {
		return job.Wrap(job.ErrFetch, "fetch", "download source", err)
	}
	if err := nonEmpty(ws.Input()); err != nil {
		return job.Wrap(job.ErrFetch, "fetch", "downloaded input", err)
	}

	media, err := c.deps.Prober.Media(ctx, ws.Input())
	if err != nil {
		return job.Wrap(job.ErrFetch, "fetch", "probe input", err)
	}
	if media.Duration > 0 {
		seconds := media.Duration.Seconds()
		r.duration = &seconds
	}

	if r.audios, err = c.fetchTracks(ctx, r, objects, audios); err != nil {
		return err
	}
	if len(r.audios) == 0 {
		r.logger.Info().Msg("no external audio tracks, relying on audio in the video")
	}

	if r.subtitles, err = c.fetchTracks(ctx, r, objects, subtitles); err != nil {
		return err
	}
	if len(r.subtitles) == 0 {
		r.logger.Info().Msg("no subtitle tracks for job")
	}

	return nil
}

// fetchTracks downloads tracks in order. A track whose download yields no data is skipped.
func (c *ControllerCtx) fetchTracks(ctx context.Context, r *jobRun, objects ObjectStore, tracks []job.Track) ([]job.Track, error) {
	var fetched []job.Track
	for _, t := range tracks {
		dst := r.workspace.Track(t)
		logger := r.logger.With().Str("kind", string(t.Kind)).Str("language", t.Language).Logger()

		logger.Info().Str("source", t.SourcePath).Msg("downloading track")
		if err := objects.Download(ctx, t.SourcePath, dst); err != nil {
			return nil, job.Wrap(job.ErrFetch, "fetch", fmt.Sprintf("download %s track %s", t.Kind, t.Language), err)
		}

		if err := nonEmpty(dst); err != nil {
			logger.Warn().Err(err).Msg("track missing or empty, skipping")
			continue
		}

		t.SourcePath = dst
		fetched = append(fetched, t)
	}
	return fetched, nil
}

func (c *ControllerCtx) transcode(ctx context.Context, r *jobRun) (packager.Input, error) {
	ws := r.workspace

	sources := make([]subtitle.Source, 0, len(r.subtitles))
	for _, t := range r.subtitles {
		sources = append(sources, subtitle.Source{Language: t.Language, Path: t.SourcePath})
	}

	subs, err := c.deps.Normalizer.NormalizeAll(sources, ws.Subtitles())
	if err != nil {
		return packager.Input{}, job.Wrap(job.ErrTranscode, "normalize", "subtitles", err)
	}

	var videos []transcode.Rendition
	if r.desc.AlreadyTranscoded {
		videos, err = c.deps.Transcoder.Passthrough(ctx, ws.Input(), ws.Transcoded())
	} else {
		videos, err = c.deps.Transcoder.Video(ctx, ws.Input(), ws.Transcoded())
	}
	if err != nil {
		return packager.Input{}, job.Wrap(job.ErrTranscode, "transcode", "video", err)
	}
	if len(videos) == 0 {
		return packager.Input{}, job.Errorf(job.ErrTranscode, "transcode: no video renditions produced")
	}
	for _, v := range videos {
		if err := nonEmpty(v.Path); err != nil {
			return packager.Input{}, job.Wrap(job.ErrTranscode, "transcode", "invalid rendition "+v.Name, err)
		}
	}

	audios := make([]transcode.Rendition, 0, len(r.audios))
	for _, t := range r.audios {
		r.logger.Info().Str("language", t.Language).Msg("transcoding audio")

		a, err := c.deps.Transcoder.Audio(ctx, t.SourcePath, ws.Audio(), t.Language, r.desc.IsPaid)
		if err != nil {
			return packager.Input{}, job.Wrap(job.ErrTranscode, "transcode", "audio "+t.Language, err)
		}
		audios = append(audios, a)
	}

	var duration time.Duration
	if r.duration != nil {
		duration = time.Duration(*r.duration * float64(time.Second))
	}

	return packager.Input{
		WorkDir:   ws.Dir,
		Videos:    videos,
		Audios:    audios,
		Subtitles: subs,
		Duration:  duration,
	}, nil
}

func (c *ControllerCtx) publish(ctx context.Context, r *jobRun, out *packager.Output) error {
	dest, err := job.ParseLocator(r.desc.Destination)
	if err != nil {
		return err
	}

	var paths []string
	if r.desc.IsPaid {
		paths = []string{r.workspace.Dash(), r.workspace.KeyFile()}
	} else {
		paths = []string{r.workspace.HLS()}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return job.Wrap(job.ErrPublish, "publish", "expected output", err)
		}
	}

	objects, err := c.objectStore(ctx, r, r.desc.OutputCredentialID())
	if err != nil {
		return job.Wrap(job.ErrPublish, "publish", "output credential", err)
	}

	for _, p := range paths {
		r.logger.Info().Str("path", p).Str("dest", dest.String()).Msg("uploading output")
		if err := objects.Upload(ctx, p, dest); err != nil {
			return job.Wrap(job.ErrPublish, "publish", "upload", err)
		}
	}

	r.logger.Info().Str("master", out.Master).Str("dest", dest.String()).Msg("output published")
	return nil
}

func nonEmpty(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return errors.New(path + " is a directory")
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}
