package packager

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/runner"
)

type PackagerCtx struct {
	logger zerolog.Logger
	config Config
	runner runner.Runner
	prober MediaProber
}

func New(config Config, r runner.Runner, prober MediaProber) *PackagerCtx {
	return &PackagerCtx{
		logger: log.With().Str("module", "packager").Logger(),
		config: config.withDefaultValues(),
		runner: r,
		prober: prober,
	}
}

// Package runs the encrypted or the plain mode. The two never mix in one job.
func (p *PackagerCtx) Package(ctx context.Context, encrypted bool, in Input) (*Output, error) {
	if in.WorkDir == "" {
		return nil, job.Errorf(job.ErrPackaging, "package: no work dir")
	}
	if len(in.Videos) == 0 {
		return nil, job.Errorf(job.ErrPackaging, "package: no transcoded video renditions")
	}

	if encrypted {
		return p.packageEncrypted(ctx, in)
	}
	return p.packagePlain(ctx, in)
}

func (p *PackagerCtx) run(ctx context.Context, name string, args ...string) error {
	_, err := p.runner.Run(ctx, runner.Command{Name: name, Args: args})
	return err
}

// replaced in tests to simulate handles that are still held
var removeAll = os.RemoveAll

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

// resetDir destroys a previous output so no stale segments survive into a new package.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
