package transcode

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/runner"
)

const SourceRendition = "source"

type TranscoderCtx struct {
	logger zerolog.Logger
	config Config
	runner runner.Runner
	prober MediaProber
}

func New(config Config, r runner.Runner, prober MediaProber) *TranscoderCtx {
	return &TranscoderCtx{
		logger: log.With().Str("module", "transcode").Logger(),
		config: config.withDefaultValues(),
		runner: r,
		prober: prober,
	}
}

// Video encodes the full ladder into outDir. Either every rendition is produced or an error is returned.
func (t *TranscoderCtx) Video(ctx context.Context, input, outDir string) ([]Rendition, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, job.Wrap(job.ErrTranscode, "transcode", "create output dir", err)
	}

	if err := nonEmpty(input); err != nil {
		return nil, job.Wrap(job.ErrTranscode, "transcode", "invalid input file", err)
	}

	media, err := t.prober.Media(ctx, input)
	if err != nil {
		return nil, job.Wrap(job.ErrTranscode, "transcode", "invalid input file", err)
	}

	params := SelectParams(media.Video)
	withAudio := media.HasAudio()

	t.logger.Info().
		Str("input", input).
		Bool("audio", withAudio).
		Str("profile", params.Profile).
		Str("pix-fmt", params.PixFmt).
		Msg("selected transcode params")

	renditions := make([]Rendition, len(t.config.Ladder))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.config.Parallelism)

	for i, profile := range t.config.Ladder {
		i, profile := i, profile
		g.Go(func() error {
			// a sibling already failed, no partial ladder is kept
			if gctx.Err() != nil {
				return nil
			}

			output := filepath.Join(outDir, profile.FileName())
			cmd := runner.Command{
				Name: t.config.FFmpegBinary,
				Args: VideoArgs(input, output, profile, params, withAudio),
			}

			if _, err := t.runner.Run(gctx, cmd); err != nil {
				return job.Wrap(job.ErrTranscode, "transcode", "rendition "+profile.Name, err)
			}

			if err := nonEmpty(output); err != nil {
				return job.Wrap(job.ErrTranscode, "transcode", "rendition "+profile.Name, err)
			}

			t.logger.Info().Str("rendition", profile.Name).Str("output", output).Msg("transcoded video")
			renditions[i] = Rendition{
				Kind:    KindVideo,
				Name:    profile.Name,
				Width:   profile.Width,
				Height:  profile.Height,
				Bitrate: profile.Bitrate * 1000,
				Path:    output,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, job.Wrap(job.ErrTranscode, "transcode", "ladder", err)
	}

	return renditions, nil
}

// Passthrough takes an already encoded source as the only video rendition.
func (t *TranscoderCtx) Passthrough(ctx context.Context, input, outDir string) ([]Rendition, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, job.Wrap(job.ErrTranscode, "transcode", "create output dir", err)
	}

	media, err := t.prober.Media(ctx, input)
	if err != nil {
		return nil, job.Wrap(job.ErrTranscode, "transcode", "invalid input file", err)
	}
	if media.Video == nil {
		return nil, job.Errorf(job.ErrTranscode, "transcode: %s has no video stream", input)
	}

	output := filepath.Join(outDir, fmt.Sprintf("output_%s.mp4", SourceRendition))
	if err := copyFile(input, output); err != nil {
		return nil, job.Wrap(job.ErrTranscode, "transcode", "copy source", err)
	}

	t.logger.Info().Str("input", input).Msg("source already transcoded, skipping ladder")
	return []Rendition{{
		Kind:    KindVideo,
		Name:    SourceRendition,
		Width:   media.Video.Width,
		Height:  media.Video.Height,
		Bitrate: int(media.BitRate),
		Path:    output,
	}}, nil
}

// Audio encodes one external track into outDir/<language>/.
func (t *TranscoderCtx) Audio(ctx context.Context, input, outDir, language string, fragmentable bool) (Rendition, error) {
	dir := filepath.Join(outDir, language)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Rendition{}, job.Wrap(job.ErrTranscode, "transcode", "create audio dir", err)
	}

	output := filepath.Join(dir, AudioFileName(fragmentable))
	cmd := runner.Command{
		Name: t.config.FFmpegBinary,
		Args: AudioArgs(input, output, fragmentable),
	}

	if _, err := t.runner.Run(ctx, cmd); err != nil {
		return Rendition{}, job.Wrap(job.ErrTranscode, "transcode", "audio "+language, err)
	}

	if err := nonEmpty(output); err != nil {
		return Rendition{}, job.Wrap(job.ErrTranscode, "transcode", "audio "+language, err)
	}

	t.logger.Info().Str("language", language).Str("output", output).Msg("transcoded audio")
	return Rendition{
		Kind:     KindAudio,
		Name:     language,
		Language: language,
		Bitrate:  AudioBitrate * 1000,
		Path:     output,
	}, nil
}

func nonEmpty(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
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
