// This file implements `script-kit cleanup`: kill orphaned script
// processes recorded by a previous host run.
package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/scriptkit/host/internal/config"
	hosterrors "github.com/scriptkit/host/internal/errors"
	"github.com/scriptkit/host/internal/proc"
)

func runCleanup(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %v\n", err)
		return 1
	}
	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %v\n", err)
		return 1
	}

	mgr, err := proc.NewManager(stateDir)
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %s\n", hosterrors.GetMessage(err))
		return 1
	}
	killed, err := mgr.CleanupOrphans()
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %s\n", hosterrors.GetMessage(err))
		return 1
	}

	if killed == 0 {
		fmt.Fprintln(stdout, "No orphaned script processes found.")
	} else {
		fmt.Fprintf(stdout, "Killed %d orphaned script process(es).\n", killed)
	}
	return 0
}
