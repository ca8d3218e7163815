package main

import (
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags.
// Example: go build -ldflags="-X main.Version=v0.1.0" ./cmd
var Version = "dev"

const usage = `script-kit - host for prompt-driven automation scripts

Usage:
  script-kit <command> [options]

Commands:
  run <script> [args...]  Run a script and drive its prompts from the terminal
  ps                      List script processes recorded in the PID snapshot
  runs                    Show recent script run history
  cleanup                 Kill orphaned script processes from a previous host
  doctor                  Diagnose runtime and state directory readiness

Run 'script-kit <command> --help' for more information on a command.
`

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprint(stdout, usage)
		return 0
	}

	switch args[1] {
	case "run":
		return runScript(args[2:], stdout, stderr)
	case "ps":
		return runPS(args[2:], stdout, stderr)
	case "runs":
		return runHistory(args[2:], stdout, stderr)
	case "cleanup":
		return runCleanup(args[2:], stdout, stderr)
	case "doctor":
		return runDoctor(args[2:], stdout, stderr)
	case "--help", "-h", "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "script-kit %s\n", Version)
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n", args[1])
		fmt.Fprint(stdout, usage)
		return 1
	}
}
