package launcher

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/scriptkit/host/internal/config"
	hosterrors "github.com/scriptkit/host/internal/errors"
	"github.com/scriptkit/host/internal/proc"
)

func shortEscalation() SpawnOptions {
	return SpawnOptions{
		GracePeriod:  200 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}
}

// TestSpawn_PipedRoundTrip verifies stdio plumbing with a real child.
func TestSpawn_PipedRoundTrip(t *testing.T) {
	p, err := Spawn("cat", nil, shortEscalation())
	if err != nil {
		t.Fatalf("Spawn(cat) error: %v", err)
	}
	defer func() { _ = p.Handle.Kill() }()

	if p.Handle.PID() <= 0 {
		t.Errorf("PID() = %d, want > 0", p.Handle.PID())
	}

	if _, err := p.Stdin.Write([]byte("hello\n")); err != nil {
		t.Fatalf("writing to child: %v", err)
	}
	line, err := bufio.NewReader(p.Stdout).ReadString('\n')
	if err != nil {
		t.Fatalf("reading from child: %v", err)
	}
	if line != "hello\n" {
		t.Errorf("child echoed %q, want %q", line, "hello\n")
	}

	if err := p.Stdin.Close(); err != nil {
		t.Fatalf("closing stdin: %v", err)
	}
	if err := p.Cmd.Wait(); err != nil {
		t.Errorf("cat should exit cleanly after EOF: %v", err)
	}
}

// TestSpawn_OwnProcessGroup verifies the child leads its own group so
// group signals cannot reach the host.
func TestSpawn_OwnProcessGroup(t *testing.T) {
	p, err := Spawn("sleep", []string{"60"}, shortEscalation())
	if err != nil {
		t.Fatalf("Spawn(sleep) error: %v", err)
	}
	go func() { _ = p.Cmd.Wait() }()

	pgid, err := unix.Getpgid(p.Handle.PID())
	if err != nil {
		t.Fatalf("Getpgid() error: %v", err)
	}
	if pgid != p.Handle.PID() {
		t.Errorf("pgid = %d, want %d (child should lead its own group)", pgid, p.Handle.PID())
	}

	if err := p.Handle.Kill(); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && p.Handle.IsAlive() {
		time.Sleep(10 * time.Millisecond)
	}
	if p.Handle.IsAlive() {
		t.Error("child should be dead after Kill()")
	}
}

// TestSpawn_KillEscalation verifies a TERM-ignoring child is killed within
// the grace period plus slack.
func TestSpawn_KillEscalation(t *testing.T) {
	p, err := Spawn("sh", []string{"-c", "trap '' TERM; sleep 60"}, shortEscalation())
	if err != nil {
		t.Fatalf("Spawn(sh) error: %v", err)
	}
	go func() { _ = p.Cmd.Wait() }()

	start := time.Now()
	if err := p.Handle.Kill(); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Kill() took %v, escalation should finish shortly after the 200ms grace period", elapsed)
	}
	if got := p.Handle.State(); got != proc.StateEscalated {
		t.Errorf("State() = %s, want %s", got, proc.StateEscalated)
	}
}

// TestSpawn_BadBinary verifies the spawn.failed code.
func TestSpawn_BadBinary(t *testing.T) {
	_, err := Spawn("/nonexistent/runtime", nil, SpawnOptions{})
	if !hosterrors.IsCode(err, hosterrors.CodeSpawnFailed) {
		t.Errorf("error code = %s, want %s", hosterrors.GetCode(err), hosterrors.CodeSpawnFailed)
	}
}

// TestExecuteScript_Exhausted verifies the aggregated error when every
// runtime is unavailable.
func TestExecuteScript_Exhausted(t *testing.T) {
	cfg := &config.Config{
		BunPath:  "/nonexistent/bun",
		NodePath: "/nonexistent/node",
	}
	_, err := ExecuteScript(cfg, t.TempDir(), "/scripts/app.js", nil, SpawnOptions{})
	if !hosterrors.IsCode(err, hosterrors.CodeSpawnExhausted) {
		t.Fatalf("error code = %s, want %s", hosterrors.GetCode(err), hosterrors.CodeSpawnExhausted)
	}
	msg := err.Error()
	for _, needle := range []string{"/scripts/app.js", "bun", "node"} {
		if !strings.Contains(msg, needle) {
			t.Errorf("error %q should mention %q", msg, needle)
		}
	}
}

// TestBuildCandidates_Order pins the fallback order and node's JS-only rule.
func TestBuildCandidates_Order(t *testing.T) {
	dir := t.TempDir()
	bun := writeFakeExecutable(t, dir, "bun")
	node := writeFakeExecutable(t, dir, "node")
	cfg := &config.Config{BunPath: bun, NodePath: node}
	stateDir := t.TempDir()

	candidates, errs := buildCandidates(cfg, stateDir, "/s/app.ts", []string{"--flag"})
	if len(errs) != 0 {
		t.Fatalf("unexpected resolution errors: %v", errs)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates for .ts, want 2 (bun+sdk, bun)", len(candidates))
	}
	if candidates[0].name != "bun+sdk" || candidates[1].name != "bun" {
		t.Errorf("candidate order = %s, %s; want bun+sdk, bun", candidates[0].name, candidates[1].name)
	}
	if candidates[0].args[0] != "run" || candidates[0].args[1] != "--preload" {
		t.Errorf("bun+sdk args = %v, want run --preload <sdk> <script>", candidates[0].args)
	}
	last := candidates[0].args[len(candidates[0].args)-1]
	if last != "--flag" {
		t.Errorf("script args should be appended, got %v", candidates[0].args)
	}

	candidates, errs = buildCandidates(cfg, stateDir, "/s/app.js", nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected resolution errors: %v", errs)
	}
	if len(candidates) != 3 || candidates[2].name != "node" {
		t.Fatalf("got %d candidates for .js, want 3 ending in node", len(candidates))
	}
}
