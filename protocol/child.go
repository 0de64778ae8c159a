package protocol

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/fansqz/dapclient/errs"
	"github.com/sirupsen/logrus"
)

// AdapterSpawnOptions configures the external debug adapter process. The
// configuration loader that produces these values is an out-of-scope
// collaborator (spec.md §1) — this engine only defines the shape it expects.
type AdapterSpawnOptions struct {
	Argv []string
	Dir  string
	Env  []string
}

// AdapterProcess owns the spawned adapter's stdin/stdout/stderr pipes and
// its lifecycle. Grounded on the teacher's Compile, which runs a child via
// os/exec and captures Stderr into a bytes.Buffer for error reporting; here
// the same captured-stderr pattern surfaces spawn failures instead of
// compile failures.
type AdapterProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *bytes.Buffer
}

// Spawn starts the adapter process with piped stdio. The caller owns
// reading Stdout/writing Stdin through the returned pipes (typically by
// handing them to NewCodec).
func Spawn(ctx context.Context, opts *AdapterSpawnOptions) (*AdapterProcess, error) {
	if len(opts.Argv) == 0 {
		return nil, fmt.Errorf("spawn adapter: %w: empty argv", errs.ErrProtocolError)
	}
	cmd := exec.CommandContext(ctx, opts.Argv[0], opts.Argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("spawn adapter: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("spawn adapter: stdout pipe: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn adapter %v: %w", opts.Argv, err)
	}
	logrus.Infof("[AdapterProcess] spawned pid=%d argv=%v", cmd.Process.Pid, opts.Argv)

	return &AdapterProcess{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

// Stdin returns the adapter's standard input, to be written with WriteFrame.
func (a *AdapterProcess) Stdin() io.Writer { return a.stdin }

// Stdout returns the adapter's standard output, to be read by the codec's
// frame reader.
func (a *AdapterProcess) Stdout() io.Reader { return a.stdout }

// Pid returns the spawned process id.
func (a *AdapterProcess) Pid() int { return a.cmd.Process.Pid }

// Wait blocks until the adapter process exits and returns its exit code.
func (a *AdapterProcess) Wait() (int, error) {
	err := a.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("wait adapter: %w (stderr: %s)", err, a.stderr.String())
}

// Kill terminates the adapter process immediately. Last resort, used by
// end-session's teardown escalation when the adapter does not respond to a
// terminate/disconnect request.
func (a *AdapterProcess) Kill() error {
	if a.cmd.Process == nil {
		return nil
	}
	return a.cmd.Process.Kill()
}

// StderrSnapshot returns whatever the adapter has written to stderr so far
// (the same buffer Wait includes in its failure message).
func (a *AdapterProcess) StderrSnapshot() string {
	return a.stderr.String()
}
