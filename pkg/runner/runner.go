package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ikbir-singh-unisys/DRM-Worker/internal/utils"
)

// Command is a single external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes external tools. Run blocks until the tool exits and returns its stdout.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// Error is returned when a tool exits unsuccessfully. Stderr holds its diagnostic output.
type Error struct {
	Command Command
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Command.Name, e.Err)
	if stderr := tail(e.Stderr, 2048); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

type ExecCtx struct {
	logger zerolog.Logger
}

func New() *ExecCtx {
	return &ExecCtx{
		logger: log.With().Str("module", "runner").Logger(),
	}
}

func (r *ExecCtx) Run(ctx context.Context, c Command) ([]byte, error) {
	logger := r.logger.With().Str("tool", c.Name).Logger()
	logger.Debug().Strs("args", c.Args).Msg("starting")

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.SysProcAttr = ConfigureAsProcessGroup()
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}

	var stdout, stderr bytes.Buffer
	stderrLog := utils.LogWriter(logger, zerolog.DebugLevel)
	cmd.Stdout = &stdout
	cmd.Stderr = io.MultiWriter(&stderr, stderrLog)

	start := time.Now()
	err := cmd.Run()
	stderrLog.Flush()

	if err != nil {
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("failed")
		return stdout.Bytes(), &Error{
			Command: c,
			Stderr:  stderr.String(),
			Err:     err,
		}
	}

	logger.Debug().Dur("elapsed", time.Since(start)).Msg("finished")
	return stdout.Bytes(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
