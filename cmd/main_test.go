package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestRun_NoArgs verifies bare invocation prints usage and succeeds.
func TestRun_NoArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"script-kit"}, &stdout, &stderr)
	if code != 0 {
		t.Errorf("run() = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Usage:") {
		t.Error("bare invocation should print usage")
	}
}

// TestRun_Version verifies the version command.
func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"script-kit", "version"}, &stdout, &stderr)
	if code != 0 {
		t.Errorf("run() = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), Version) {
		t.Errorf("version output %q should contain %q", stdout.String(), Version)
	}
}

// TestRun_UnknownCommand verifies unknown commands fail with usage.
func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"script-kit", "frobnicate"}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if !strings.Contains(stdout.String(), "Unknown command") {
		t.Error("unknown command should be reported")
	}
}

// TestRunScript_MissingArgument verifies `run` without a script path fails.
func TestRunScript_MissingArgument(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"script-kit", "run"}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Usage: script-kit run") {
		t.Errorf("stderr = %q, want run usage", stderr.String())
	}
}
