package packager

import (
	"context"
	"path/filepath"
	"time"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

func (p *PackagerCtx) packageEncrypted(ctx context.Context, in Input) (*Output, error) {
	videos, audios, err := p.fragment(ctx, in)
	if err != nil {
		return nil, err
	}

	keys, err := p.keySet()
	if err != nil {
		return nil, job.Wrap(job.ErrPackaging, "package", "key provisioning", err)
	}

	keyFile := filepath.Join(in.WorkDir, KeyFileName)
	if err := WriteKeyFile(keyFile, keys); err != nil {
		return nil, job.Wrap(job.ErrPackaging, "package", "write key file", err)
	}
	p.logger.Info().Str("path", keyFile).Str("kid", keys.KeyID).Msg("saved drm keys")

	dashDir := filepath.Join(in.WorkDir, "dash")
	if err := resetDir(dashDir); err != nil {
		return nil, job.Wrap(job.ErrPackaging, "package", "reset dash dir", err)
	}

	specs := BuildTrackSpecs(videos, audios, in.Subtitles)
	args := DashArgs(dashDir, keys, p.config.PlayReadyLAURL, specs)

	p.logger.Info().Int("tracks", len(specs)).Str("output", dashDir).Msg("packaging with drm (dash + hls)")
	if err := p.run(ctx, p.config.Mp4dashBinary, args...); err != nil {
		p.sweepTemp(dashDir)
		return nil, job.Wrap(job.ErrPackaging, "package", "mp4dash", err)
	}

	p.logger.Info().Str("output", dashDir).Msg("drm packaging completed")
	return &Output{
		Mode:    ModeEncrypted,
		Dir:     dashDir,
		KeyFile: keyFile,
		Master:  filepath.Join(dashDir, "manifest.m3u8"),
	}, nil
}

// fragment converts every rendition into a fragmented MP4. Nothing is packaged
// unless all of them succeed.
func (p *PackagerCtx) fragment(ctx context.Context, in Input) ([]string, []Fragment, error) {
	fragDir := filepath.Join(in.WorkDir, "fragmented")
	if err := resetDir(fragDir); err != nil {
		return nil, nil, job.Wrap(job.ErrPackaging, "package", "create fragment dir", err)
	}

	var videos []string
	for _, v := range in.Videos {
		output := filepath.Join(fragDir, "frag_"+filepath.Base(v.Path))
		p.logger.Info().Str("rendition", v.Name).Msg("fragmenting video")

		if err := p.fragmentFile(ctx, v.Path, output); err != nil {
			return nil, nil, job.Wrap(job.ErrPackaging, "package", "fragment "+v.Name, err)
		}
		videos = append(videos, output)
	}

	var audios []Fragment
	for _, a := range in.Audios {
		output := filepath.Join(fragDir, "frag_audio_"+a.Language+".mp4")
		p.logger.Info().Str("language", a.Language).Msg("fragmenting audio")

		if err := p.fragmentFile(ctx, a.Path, output); err != nil {
			return nil, nil, job.Wrap(job.ErrPackaging, "package", "fragment audio "+a.Language, err)
		}
		audios = append(audios, Fragment{Language: a.Language, Path: output})
	}

	if len(videos)+len(audios) == 0 {
		return nil, nil, job.Errorf(job.ErrPackaging, "package: fragmentation produced no files")
	}

	return videos, audios, nil
}

func (p *PackagerCtx) fragmentFile(ctx context.Context, input, output string) error {
	if err := p.run(ctx, p.config.Mp4fragmentBinary, input, output); err != nil {
		return err
	}
	return nonEmpty(output)
}

func (p *PackagerCtx) keySet() (KeySet, error) {
	if p.config.FixedKeys != nil {
		p.logger.Warn().Msg("using fixed drm keys")
		return *p.config.FixedKeys, p.config.FixedKeys.Validate()
	}
	return GenerateKeySet(p.config.Rand)
}

// sweepTemp removes tmp* leftovers of a failed mp4dash run. Handles may still be
// held for a moment, so each removal is retried. Failures are only logged.
func (p *PackagerCtx) sweepTemp(dashDir string) {
	matches, err := filepath.Glob(filepath.Join(dashDir, "tmp*"))
	if err != nil {
		p.logger.Warn().Err(err).Msg("unable to list temporary files")
		return
	}

	for _, path := range matches {
		for attempt := 1; attempt <= p.config.SweepAttempts; attempt++ {
			err := removeAll(path)
			if err == nil {
				p.logger.Debug().Str("path", path).Msg("deleted temporary file")
				break
			}

			p.logger.Warn().Err(err).
				Str("path", path).
				Int("attempt", attempt).
				Int("attempts", p.config.SweepAttempts).
				Msg("cannot delete temporary file")

			if attempt < p.config.SweepAttempts {
				time.Sleep(p.config.SweepBackoff)
			}
		}
	}
}
