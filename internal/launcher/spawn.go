package launcher

import (
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"

	hosterrors "github.com/scriptkit/host/internal/errors"
	"github.com/scriptkit/host/internal/proc"
)

// SpawnOptions configures how a script process is started.
type SpawnOptions struct {
	// Dir is the working directory. Empty inherits the host's.
	Dir string
	// Env entries are appended to the host environment.
	Env []string
	// Interactive attaches a PTY instead of pipes. The PTY becomes the
	// child's controlling terminal and carries stdin/stdout; stderr is
	// still a pipe so diagnostics stay separable from protocol traffic.
	Interactive bool
	// GracePeriod and PollInterval configure the kill escalation of the
	// resulting handle. Zero values select the defaults.
	GracePeriod  time.Duration
	PollInterval time.Duration
}

// Process is a started script process with its stdio endpoints and the
// handle controlling its process group.
type Process struct {
	Cmd    *exec.Cmd
	Handle *proc.Handle

	// Stdin/Stdout are pipe endpoints in piped mode, nil in interactive
	// mode (use PTY instead).
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	// Stderr is a pipe in both modes.
	Stderr io.ReadCloser
	// PTY is the controlling terminal in interactive mode, nil otherwise.
	PTY *os.File
}

// Spawn starts bin with args in its own process group.
//
// The child is placed in a fresh group (Setpgid in piped mode, session
// leadership via the PTY in interactive mode) so kill escalation can reach
// everything the script forks. The caller owns registration: pass the
// returned Handle to proc.Manager.Register once it decides to track it.
func Spawn(bin string, args []string, opts SpawnOptions) (*Process, error) {
	cmd := exec.Command(bin, args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), opts.Env...)

	if opts.Interactive {
		return spawnPTY(cmd, opts)
	}
	return spawnPiped(cmd, opts)
}

func spawnPiped(cmd *exec.Cmd, opts SpawnOptions) (*Process, error) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, hosterrors.PipeFailed("stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, hosterrors.PipeFailed("stdout", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, hosterrors.PipeFailed("stderr", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, hosterrors.SpawnFailed(cmd.Path, err)
	}

	return &Process{
		Cmd:    cmd,
		Handle: newHandle(cmd, opts),
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}, nil
}

func spawnPTY(cmd *exec.Cmd, opts SpawnOptions) (*Process, error) {
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, hosterrors.PipeFailed("stderr", err)
	}

	// pty.Start makes the child a session leader with the PTY as its
	// controlling terminal, so the group id equals the child pid just as
	// in piped mode.
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, hosterrors.SpawnFailed(cmd.Path, err)
	}

	return &Process{
		Cmd:    cmd,
		Handle: newHandle(cmd, opts),
		Stderr: stderr,
		PTY:    ptmx,
	}, nil
}

func newHandle(cmd *exec.Cmd, opts SpawnOptions) *proc.Handle {
	return proc.NewHandle(cmd.Process.Pid, proc.HandleOptions{
		GracePeriod:  opts.GracePeriod,
		PollInterval: opts.PollInterval,
	})
}
