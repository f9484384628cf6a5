// Package runnertest provides a scripted Runner for tests that must not depend on real binaries.
package runnertest

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/runner"
)

type Fake struct {
	// Handler produces the tool's stdout and error. A nil Handler succeeds with no output.
	Handler func(cmd runner.Command) ([]byte, error)

	mu    sync.Mutex
	calls []runner.Command
}

func (f *Fake) Run(ctx context.Context, cmd runner.Command) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.Handler == nil {
		return nil, nil
	}
	return f.Handler(cmd)
}

func (f *Fake) Calls() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]runner.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded invocations of one tool, in order.
func (f *Fake) CallsTo(name string) []runner.Command {
	var out []runner.Command
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Touch creates path with placeholder content, making parent directories as needed.
func Touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("data"), 0644)
}

// LastArg returns the final argument, which is the output path for most tools.
func LastArg(cmd runner.Command) string {
	if len(cmd.Args) == 0 {
		return ""
	}
	return cmd.Args[len(cmd.Args)-1]
}
