package process

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

// stderrTail bounds the stderr kept for error messages.
const stderrTail = 2048

// Stream is a running process. Read its output from Stdout until EOF, then
// call Wait.
type Stream struct {
	Stdout io.Reader

	cmd    *exec.Cmd
	ctx    context.Context
	stderr *tailBuffer

	waitOnce sync.Once
	waitErr  error
}

// Start launches cmd. The process is terminated when ctx is done.
func Start(ctx context.Context, cmd Command) (*Stream, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}
	grace := cmd.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // the command line is user configuration
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace

	s := &Stream{cmd: c, ctx: ctx, stderr: &tailBuffer{max: stderrTail}}
	c.Stderr = s.stderr
	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	}
	s.Stdout = stdout
	return s, nil
}

// Wait waits for the process to exit. Termination through the context is
// not an error. Other failures carry the tail of stderr.
func (s *Stream) Wait() error {
	s.waitOnce.Do(func() {
		err := s.cmd.Wait()
		switch {
		case err == nil, s.ctx.Err() != nil:
		default:
			var exitErr *exec.ExitError
			if stderrors.As(err, &exitErr) {
				err = fmt.Errorf("process: %s exited with code %d", s.cmd.Path, exitErr.ExitCode())
			}
			if tail := strings.TrimSpace(s.stderr.String()); tail != "" {
				err = fmt.Errorf("%w: %s", err, tail)
			}
			s.waitErr = err
		}
	})
	return s.waitErr
}

// Pid returns the process id.
func (s *Stream) Pid() int {
	return s.cmd.Process.Pid
}

func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil
	}
	return append(os.Environ(), extra...)
}

// tailBuffer keeps the last max bytes written.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
