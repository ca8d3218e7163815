package proc

import (
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

type sigCall struct {
	pid int
	sig unix.Signal
}

// fakeSignaler simulates a process group so the escalation state machine
// can be driven without spawning anything.
type fakeSignaler struct {
	mu        sync.Mutex
	calls     []sigCall
	alive     bool
	dieOnTerm bool
}

func (f *fakeSignaler) Signal(pid int, sig unix.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sigCall{pid: pid, sig: sig})
	switch sig {
	case 0:
		if f.alive {
			return nil
		}
		return unix.ESRCH
	case unix.SIGTERM:
		if !f.alive {
			return unix.ESRCH
		}
		if f.dieOnTerm {
			f.alive = false
		}
		return nil
	case unix.SIGKILL:
		if !f.alive {
			return unix.ESRCH
		}
		f.alive = false
		return nil
	}
	return nil
}

func (f *fakeSignaler) count(sig unix.Signal) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.sig == sig {
			n++
		}
	}
	return n
}

func testHandle(sig *fakeSignaler) *Handle {
	return NewHandle(4242, HandleOptions{
		Signaler:     sig,
		GracePeriod:  50 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})
}

// TestHandle_Kill_GracefulExit verifies a cooperative process group gets
// SIGTERM only.
func TestHandle_Kill_GracefulExit(t *testing.T) {
	sig := &fakeSignaler{alive: true, dieOnTerm: true}
	h := testHandle(sig)

	if err := h.Kill(); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}
	if got := h.State(); got != StateExited {
		t.Errorf("State() = %s, want %s", got, StateExited)
	}
	if sig.count(unix.SIGTERM) != 1 {
		t.Errorf("SIGTERM sent %d times, want 1", sig.count(unix.SIGTERM))
	}
	if sig.count(unix.SIGKILL) != 0 {
		t.Errorf("SIGKILL sent %d times, want 0", sig.count(unix.SIGKILL))
	}

	// TERM must target the whole group.
	sig.mu.Lock()
	first := sig.calls[0]
	sig.mu.Unlock()
	if first.pid != -4242 || first.sig != unix.SIGTERM {
		t.Errorf("first signal = %+v, want SIGTERM to -4242", first)
	}
}

// TestHandle_Kill_Escalates verifies a stubborn group gets SIGKILL after
// the grace period.
func TestHandle_Kill_Escalates(t *testing.T) {
	sig := &fakeSignaler{alive: true, dieOnTerm: false}
	h := testHandle(sig)

	start := time.Now()
	if err := h.Kill(); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}
	elapsed := time.Since(start)

	if got := h.State(); got != StateEscalated {
		t.Errorf("State() = %s, want %s", got, StateEscalated)
	}
	if sig.count(unix.SIGKILL) != 1 {
		t.Errorf("SIGKILL sent %d times, want 1", sig.count(unix.SIGKILL))
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("Kill() returned after %v, should wait out the %v grace period", elapsed, 50*time.Millisecond)
	}
	if sig.alive {
		t.Error("group should be dead after escalation")
	}
}

// TestHandle_Kill_AlreadyGone verifies ESRCH on SIGTERM is success.
func TestHandle_Kill_AlreadyGone(t *testing.T) {
	sig := &fakeSignaler{alive: false}
	h := testHandle(sig)

	if err := h.Kill(); err != nil {
		t.Fatalf("Kill() on a dead group should be nil, got: %v", err)
	}
	if got := h.State(); got != StateExited {
		t.Errorf("State() = %s, want %s", got, StateExited)
	}
	if sig.count(unix.SIGKILL) != 0 {
		t.Errorf("SIGKILL sent %d times, want 0", sig.count(unix.SIGKILL))
	}
}

// TestHandle_Kill_Idempotent verifies repeated and concurrent Kill calls
// deliver signals exactly once.
func TestHandle_Kill_Idempotent(t *testing.T) {
	sig := &fakeSignaler{alive: true, dieOnTerm: true}
	h := testHandle(sig)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.Kill(); err != nil {
				t.Errorf("Kill() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := h.Kill(); err != nil {
		t.Fatalf("Kill() after completion error: %v", err)
	}
	if sig.count(unix.SIGTERM) != 1 {
		t.Errorf("SIGTERM sent %d times, want 1", sig.count(unix.SIGTERM))
	}
}

// TestHandle_IsAlive verifies the signal-0 liveness probe.
func TestHandle_IsAlive(t *testing.T) {
	sig := &fakeSignaler{alive: true}
	h := testHandle(sig)
	if !h.IsAlive() {
		t.Error("IsAlive() = false for a live group")
	}

	sig.mu.Lock()
	sig.alive = false
	sig.mu.Unlock()
	if h.IsAlive() {
		t.Error("IsAlive() = true for a dead group")
	}
}
