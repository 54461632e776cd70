// Package ffx runs external ffmpeg processes. It resolves the binary once and
// supervises the per-stream transcode processes spawned from it.
package ffx

import (
	"log/slog"
	"os/exec"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrNotFound reports that the configured ffmpeg binary cannot be resolved.
var ErrNotFound = errors.New("ffmpeg binary not found")

// Runner spawns ffmpeg processes from one resolved binary.
type Runner struct {
	bin string
}

// NewRunner resolves bin on PATH (or as an absolute path) and fails fast if
// the binary does not exist, instead of failing on the first stream.
func NewRunner(bin string) (*Runner, error) {
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "%s", bin)
	}
	return &Runner{bin: resolved}, nil
}

// Bin returns the resolved binary path.
func (r *Runner) Bin() string {
	return r.bin
}

// Start launches ffmpeg with args and returns the running process.
func (r *Runner) Start(args ...string) (*Process, error) {
	cmd := exec.Command(r.bin, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "start ffmpeg")
	}
	p := &Process{cmd: cmd, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

// Process is one running ffmpeg invocation.
type Process struct {
	cmd      *exec.Cmd
	done     chan struct{}
	finished atomic.Bool
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.finished.Store(true)
	close(p.done)
	if err != nil {
		slog.Debug("ffmpeg exited", "err", err)
	}
}

// Stop kills the process if it is still running and waits for it to reap.
func (p *Process) Stop() {
	if !p.finished.Load() {
		p.cmd.Process.Kill()
	}
	<-p.done
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}
