// This file implements `script-kit ps`: list the script processes recorded
// in the PID snapshot, with a liveness probe per entry.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/scriptkit/host/internal/config"
	"github.com/scriptkit/host/internal/proc"
)

// psEntry is one row of `script-kit ps --json`.
type psEntry struct {
	proc.ProcessInfo
	Alive bool `json:"alive"`
}

func runPS(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ps", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	jsonOut := fs.Bool("json", false, "Emit machine-readable JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	snapshot, code := loadSnapshot(*configPath, stderr)
	if code != 0 {
		return code
	}

	entries := make([]psEntry, 0, len(snapshot))
	for _, info := range snapshot {
		err := unix.Kill(info.PID, 0)
		entries = append(entries, psEntry{
			ProcessInfo: info,
			Alive:       err == nil || err == unix.EPERM,
		})
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			fmt.Fprintf(stderr, "script-kit: %v\n", err)
			return 1
		}
		return 0
	}

	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No script processes recorded.")
		return 0
	}
	fmt.Fprintf(stdout, "%-8s %-8s %-25s %s\n", "PID", "ALIVE", "STARTED", "SCRIPT")
	for _, e := range entries {
		alive := "no"
		if e.Alive {
			alive = "yes"
		}
		fmt.Fprintf(stdout, "%-8d %-8s %-25s %s\n", e.PID, alive, e.StartedAt, e.ScriptPath)
	}
	return 0
}

// loadSnapshot reads the PID snapshot for read-only commands. A missing
// snapshot is an empty list, not an error.
func loadSnapshot(configPath string, stderr io.Writer) ([]proc.ProcessInfo, int) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %v\n", err)
		return nil, 1
	}
	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %v\n", err)
		return nil, 1
	}

	data, err := os.ReadFile(filepath.Join(stateDir, proc.SnapshotFileName))
	if os.IsNotExist(err) {
		return nil, 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: reading snapshot: %v\n", err)
		return nil, 1
	}
	var infos []proc.ProcessInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		fmt.Fprintf(stderr, "script-kit: snapshot is corrupt: %v\n", err)
		return nil, 1
	}
	return infos, 0
}
