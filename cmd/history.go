// This file implements `script-kit runs`: show recent script run history
// from the SQLite store.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/scriptkit/host/internal/config"
	"github.com/scriptkit/host/internal/storage"
)

// runRecord is one row of `script-kit runs --json`.
type runRecord struct {
	ID         string `json:"id"`
	PID        int    `json:"pid"`
	ScriptPath string `json:"script_path"`
	StartedAt  string `json:"started_at"`
	EndedAt    string `json:"ended_at,omitempty"`
	ExitCode   *int   `json:"exit_code,omitempty"`
	Status     string `json:"status"`
}

func runHistory(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	limit := fs.Int("limit", 20, "Maximum number of runs to show")
	jsonOut := fs.Bool("json", false, "Emit machine-readable JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %v\n", err)
		return 1
	}
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %v\n", err)
		return 1
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %v\n", err)
		return 1
	}
	defer store.Close()

	runs, err := store.ListRecent(*limit)
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %v\n", err)
		return 1
	}

	if *jsonOut {
		records := make([]runRecord, 0, len(runs))
		for _, r := range runs {
			rec := runRecord{
				ID:         r.ID,
				PID:        r.PID,
				ScriptPath: r.ScriptPath,
				StartedAt:  r.StartedAt.Format(time.RFC3339),
				ExitCode:   r.ExitCode,
				Status:     r.Status,
			}
			if r.EndedAt != nil {
				rec.EndedAt = r.EndedAt.Format(time.RFC3339)
			}
			records = append(records, rec)
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			fmt.Fprintf(stderr, "script-kit: %v\n", err)
			return 1
		}
		return 0
	}

	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs recorded.")
		return 0
	}
	fmt.Fprintf(stdout, "%-8s %-8s %-6s %-25s %s\n", "PID", "STATUS", "CODE", "STARTED", "SCRIPT")
	for _, r := range runs {
		code := "-"
		if r.ExitCode != nil {
			code = fmt.Sprintf("%d", *r.ExitCode)
		}
		fmt.Fprintf(stdout, "%-8d %-8s %-6s %-25s %s\n",
			r.PID, r.Status, code, r.StartedAt.Format(time.RFC3339), r.ScriptPath)
	}
	return 0
}
