// Package proc owns the lifecycle of spawned script processes: graceful
// termination of whole process groups, an on-disk snapshot of live PIDs,
// and cleanup of orphans left behind by a crashed host.
package proc

import (
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/scriptkit/host/internal/config"
	hosterrors "github.com/scriptkit/host/internal/errors"
)

// Signaler delivers signals to processes. The default implementation calls
// unix.Kill; tests substitute a fake to drive the escalation state machine
// without real processes.
type Signaler interface {
	Signal(pid int, sig unix.Signal) error
}

type unixSignaler struct{}

func (unixSignaler) Signal(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

// State describes where a handle is in its termination sequence.
type State string

const (
	// StateRunning means Kill has not been called.
	StateRunning State = "running"
	// StateTermSent means SIGTERM was delivered and the grace period is running.
	StateTermSent State = "term_sent"
	// StateExited means the group died within the grace period.
	StateExited State = "exited"
	// StateEscalated means the grace period lapsed and SIGKILL was sent.
	StateEscalated State = "escalated"
)

// HandleOptions configures a Handle. Zero values select the defaults.
type HandleOptions struct {
	// Signaler overrides signal delivery. Nil uses unix.Kill.
	Signaler Signaler
	// GracePeriod is how long the group gets after SIGTERM before SIGKILL.
	GracePeriod time.Duration
	// PollInterval is how often liveness is probed during the grace period.
	PollInterval time.Duration
}

// Handle controls one spawned process group. The child is started with
// Setpgid, so the group id equals the child's pid and signals delivered to
// -pid reach the child and everything it forked.
//
// Kill is safe to call from multiple goroutines and is idempotent. A
// finalizer delivers a last-resort SIGKILL to the group if a handle is
// garbage collected without Kill ever being called; callers should not
// rely on it, it only narrows the leak window.
type Handle struct {
	pid      int
	signaler Signaler
	grace    time.Duration
	poll     time.Duration

	mu     sync.Mutex
	state  State
	killed bool
}

// NewHandle wraps the given process-group id in a Handle.
func NewHandle(pid int, opts HandleOptions) *Handle {
	h := &Handle{
		pid:      pid,
		signaler: opts.Signaler,
		grace:    opts.GracePeriod,
		poll:     opts.PollInterval,
		state:    StateRunning,
	}
	if h.signaler == nil {
		h.signaler = unixSignaler{}
	}
	if h.grace <= 0 {
		h.grace = config.DefaultGracePeriodMs * time.Millisecond
	}
	if h.poll <= 0 {
		h.poll = config.DefaultPollIntervalMs * time.Millisecond
	}
	runtime.SetFinalizer(h, func(h *Handle) {
		h.mu.Lock()
		killed := h.killed
		h.mu.Unlock()
		if !killed {
			// No grace here: nothing can wait for the group anymore.
			_ = h.signaler.Signal(-h.pid, unix.SIGKILL)
		}
	})
	return h
}

// PID returns the process-group id.
func (h *Handle) PID() int { return h.pid }

// State returns the handle's current termination state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// IsAlive probes whether the child process still exists. Signal 0 performs
// the permission and existence checks without delivering anything.
func (h *Handle) IsAlive() bool {
	err := h.signaler.Signal(h.pid, 0)
	return err == nil || err == unix.EPERM
}

// Kill terminates the process group: SIGTERM first, then a liveness poll
// for the grace period, then SIGKILL if the group is still up. Calling it
// again (or concurrently) after the first call is a no-op returning nil.
//
// A group that is already gone is success, not an error.
func (h *Handle) Kill() error {
	h.mu.Lock()
	if h.killed {
		h.mu.Unlock()
		return nil
	}
	h.killed = true
	h.state = StateTermSent
	h.mu.Unlock()

	// The group will not outlive this call; the safety net is no longer needed.
	runtime.SetFinalizer(h, nil)

	if err := h.signaler.Signal(-h.pid, unix.SIGTERM); err != nil {
		if err == unix.ESRCH {
			h.setState(StateExited)
			return nil
		}
		// TERM could not be delivered; fall through and try KILL anyway.
		if killErr := h.sigkill(); killErr != nil {
			return hosterrors.Wrap(hosterrors.CodeProcessKillFailed, "failed to signal process group", killErr)
		}
		h.setState(StateEscalated)
		return nil
	}

	deadline := time.Now().Add(h.grace)
	for time.Now().Before(deadline) {
		if !h.IsAlive() {
			h.setState(StateExited)
			return nil
		}
		time.Sleep(h.poll)
	}

	if err := h.sigkill(); err != nil {
		return hosterrors.Wrap(hosterrors.CodeProcessKillFailed, "failed to SIGKILL process group", err)
	}
	h.setState(StateEscalated)
	return nil
}

func (h *Handle) sigkill() error {
	err := h.signaler.Signal(-h.pid, unix.SIGKILL)
	if err == nil || err == unix.ESRCH {
		return nil
	}
	return err
}

func (h *Handle) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}
