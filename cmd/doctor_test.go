package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func doctorJSON(t *testing.T, configFile string) (DoctorResult, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run([]string{"script-kit", "doctor", "--config", configFile, "--json"}, &stdout, &stderr)
	var result DoctorResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("doctor --json output is not valid JSON: %v\n%s", err, stdout.String())
	}
	return result, code
}

func checkByID(result DoctorResult, id string) *DoctorCheck {
	for i := range result.Checks {
		if result.Checks[i].ID == id {
			return &result.Checks[i]
		}
	}
	return nil
}

// TestDoctor_AllHealthy verifies a fully provisioned environment passes.
func TestDoctor_AllHealthy(t *testing.T) {
	bun := writeFakeBun(t, "exit 0\n")
	configFile, _ := writeTestConfig(t, bun)

	result, code := doctorJSON(t, configFile)
	if code != 0 {
		t.Errorf("doctor = %d, want 0 (result: %+v)", code, result)
	}
	if result.Version != "1" {
		t.Errorf("Version = %q, want \"1\"", result.Version)
	}
	for _, id := range []string{checkIDRuntimeBun, checkIDStateDir, checkIDSDK, checkIDStorage} {
		c := checkByID(result, id)
		if c == nil {
			t.Errorf("check %s missing from output", id)
			continue
		}
		if c.Status != statusPass {
			t.Errorf("check %s = %s (%s), want pass", id, c.Status, c.Message)
		}
	}
	if result.Summary.Fail != 0 {
		t.Errorf("Summary.Fail = %d, want 0", result.Summary.Fail)
	}
}

// TestDoctor_MissingBunFails verifies the primary runtime check is fatal
// and carries remediation.
func TestDoctor_MissingBunFails(t *testing.T) {
	configFile, _ := writeTestConfig(t, "/nonexistent/bun")

	result, code := doctorJSON(t, configFile)
	if code != 1 {
		t.Errorf("doctor = %d, want 1 when bun is missing", code)
	}
	c := checkByID(result, checkIDRuntimeBun)
	if c == nil {
		t.Fatal("runtime.bun check missing")
	}
	if c.Status != statusFail {
		t.Errorf("runtime.bun status = %s, want fail", c.Status)
	}
	if c.NextAction == "" {
		t.Error("failing check should carry a next action")
	}
}

// TestDoctor_HumanOutput verifies the default rendering mentions the
// summary line.
func TestDoctor_HumanOutput(t *testing.T) {
	bun := writeFakeBun(t, "exit 0\n")
	configFile, _ := writeTestConfig(t, bun)

	var stdout, stderr bytes.Buffer
	code := run([]string{"script-kit", "doctor", "--config", configFile}, &stdout, &stderr)
	if code != 0 {
		t.Errorf("doctor = %d, want 0 (stderr: %s)", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "passed") {
		t.Errorf("output %q should contain the summary line", stdout.String())
	}
}
