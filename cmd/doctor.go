// This file implements `script-kit doctor`: preflight checks for runtimes,
// the SDK bootstrap, the state directory, and the run history database,
// with actionable remediation guidance for any issues. It supports both
// human-readable (default) and machine-readable (--json) output.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/scriptkit/host/internal/config"
	"github.com/scriptkit/host/internal/launcher"
	"github.com/scriptkit/host/internal/storage"
)

// DoctorResult is the top-level JSON output for `script-kit doctor --json`.
type DoctorResult struct {
	// Version is the doctor output schema version. Always "1".
	Version string `json:"version"`

	// Checks is the ordered list of diagnostic checks that were evaluated.
	Checks []DoctorCheck `json:"checks"`

	// Summary contains aggregate pass/warn/fail counts derived from Checks.
	Summary DoctorSummary `json:"summary"`
}

// DoctorCheck is one diagnostic check in the doctor output.
type DoctorCheck struct {
	// ID is a stable, machine-readable identifier for the check (e.g., "runtime.bun").
	ID string `json:"id"`

	// Status is the check result: "pass", "warn", or "fail".
	Status string `json:"status"`

	// Message is a human-readable summary of what was found.
	Message string `json:"message"`

	// NextAction is a concrete remediation step the operator should take.
	NextAction string `json:"next_action"`
}

// DoctorSummary holds aggregate counts of check outcomes.
type DoctorSummary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Stable check IDs used by the doctor command.
// These are part of the public CLI contract and must not change.
const (
	checkIDRuntimeBun  = "runtime.bun"
	checkIDRuntimeNode = "runtime.node"
	checkIDSDK         = "sdk.bootstrap"
	checkIDStateDir    = "state.directory"
	checkIDStorage     = "storage.database"
)

// Stable status values for doctor checks.
const (
	statusPass = "pass"
	statusWarn = "warn"
	statusFail = "fail"
)

func runDoctor(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	jsonOut := fs.Bool("json", false, "Emit machine-readable JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %v\n", err)
		return 1
	}

	result := DoctorResult{Version: "1", Checks: doctorChecks(cfg)}
	for _, c := range result.Checks {
		switch c.Status {
		case statusPass:
			result.Summary.Pass++
		case statusWarn:
			result.Summary.Warn++
		case statusFail:
			result.Summary.Fail++
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(stderr, "script-kit: %v\n", err)
			return 1
		}
	} else {
		for _, c := range result.Checks {
			marker := map[string]string{statusPass: "ok", statusWarn: "!!", statusFail: "XX"}[c.Status]
			fmt.Fprintf(stdout, "[%s] %-18s %s\n", marker, c.ID, c.Message)
			if c.Status != statusPass && c.NextAction != "" {
				fmt.Fprintf(stdout, "     -> %s\n", c.NextAction)
			}
		}
		fmt.Fprintf(stdout, "\n%d passed, %d warnings, %d failures\n",
			result.Summary.Pass, result.Summary.Warn, result.Summary.Fail)
	}

	if result.Summary.Fail > 0 {
		return 1
	}
	return 0
}

func doctorChecks(cfg *config.Config) []DoctorCheck {
	var checks []DoctorCheck

	// Primary runtime. Without bun nothing TypeScript can run.
	if path, err := launcher.FindExecutable("bun", cfg.BunPath); err == nil {
		checks = append(checks, DoctorCheck{
			ID: checkIDRuntimeBun, Status: statusPass,
			Message: "bun found at " + path,
		})
	} else {
		checks = append(checks, DoctorCheck{
			ID: checkIDRuntimeBun, Status: statusFail,
			Message:    "bun not found",
			NextAction: "Install bun (https://bun.sh) or set bun_path in the config file",
		})
	}

	// Fallback runtime. Missing node only narrows the fallback chain.
	if path, err := launcher.FindExecutable("node", cfg.NodePath); err == nil {
		checks = append(checks, DoctorCheck{
			ID: checkIDRuntimeNode, Status: statusPass,
			Message: "node found at " + path,
		})
	} else {
		checks = append(checks, DoctorCheck{
			ID: checkIDRuntimeNode, Status: statusWarn,
			Message:    "node not found (JavaScript fallback unavailable)",
			NextAction: "Install node or set node_path in the config file",
		})
	}

	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		checks = append(checks, DoctorCheck{
			ID: checkIDStateDir, Status: statusFail,
			Message:    "cannot resolve state directory: " + err.Error(),
			NextAction: "Set state_dir in the config file",
		})
		return checks
	}

	if err := checkWritable(stateDir); err == nil {
		checks = append(checks, DoctorCheck{
			ID: checkIDStateDir, Status: statusPass,
			Message: "state directory writable: " + stateDir,
		})
	} else {
		checks = append(checks, DoctorCheck{
			ID: checkIDStateDir, Status: statusFail,
			Message:    "state directory not writable: " + err.Error(),
			NextAction: "Fix permissions on " + stateDir + " or set state_dir in the config file",
		})
	}

	if path, err := launcher.FindSDKPath(cfg.SDKPath, stateDir); err == nil {
		checks = append(checks, DoctorCheck{
			ID: checkIDSDK, Status: statusPass,
			Message: "SDK bootstrap at " + path,
		})
	} else {
		checks = append(checks, DoctorCheck{
			ID: checkIDSDK, Status: statusWarn,
			Message:    "SDK bootstrap not found (scripts run without the prompt API preload)",
			NextAction: "Set sdk_path in the config file",
		})
	}

	if dbPath, err := cfg.ResolveDBPath(); err == nil {
		if store, err := storage.Open(dbPath); err == nil {
			_ = store.Close()
			checks = append(checks, DoctorCheck{
				ID: checkIDStorage, Status: statusPass,
				Message: "run history database ready: " + dbPath,
			})
		} else {
			checks = append(checks, DoctorCheck{
				ID: checkIDStorage, Status: statusWarn,
				Message:    "run history database unavailable: " + err.Error(),
				NextAction: "Fix db_path in the config file (runs still execute without history)",
			})
		}
	}

	return checks
}

// checkWritable verifies dir exists (creating it if needed) and accepts writes.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0600); err != nil {
		return err
	}
	return os.Remove(probe)
}
