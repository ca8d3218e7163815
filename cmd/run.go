// This file implements `script-kit run`, the main entry point: spawn a
// script, register it, and drive its prompts from the terminal until it
// exits or is interrupted.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/scriptkit/host/internal/config"
	hosterrors "github.com/scriptkit/host/internal/errors"
	"github.com/scriptkit/host/internal/launcher"
	"github.com/scriptkit/host/internal/proc"
	"github.com/scriptkit/host/internal/protocol"
	"github.com/scriptkit/host/internal/server"
	"github.com/scriptkit/host/internal/session"
	"github.com/scriptkit/host/internal/storage"
)

// promptInput is where prompt answers are read from.
// A function-variable seam so tests can inject scripted answers.
var promptInput io.Reader = os.Stdin

func runScript(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file (default ~/.scriptkit/config.toml)")
	interactive := fs.Bool("interactive", false, "Attach a PTY instead of pipes (for scripts that need a terminal)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: script-kit run <script> [args...]")
		return 1
	}
	scriptPath := fs.Arg(0)
	scriptArgs := fs.Args()[1:]

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
	if err := mgr.WritePIDFile(); err != nil {
		log.Printf("run: %s", hosterrors.GetMessage(err))
	}
	defer func() { _ = mgr.RemovePIDFile() }()

	// A previous host that crashed leaves its processes in the snapshot;
	// reap them before spawning anything new.
	if _, err := mgr.CleanupOrphans(); err != nil {
		log.Printf("run: orphan cleanup: %s", hosterrors.GetMessage(err))
	}

	// Run history is best effort: a broken database must not block script
	// execution.
	var store *storage.Store
	if dbPath, err := cfg.ResolveDBPath(); err == nil {
		if store, err = storage.Open(dbPath); err != nil {
			log.Printf("run: run history disabled: %v", err)
			store = nil
		}
	}
	if store != nil {
		defer store.Close()
		if n, err := store.MarkInterrupted(); err != nil {
			log.Printf("run: marking interrupted runs: %v", err)
		} else if n > 0 {
			log.Printf("run: marked %d interrupted run(s) from a previous host", n)
		}
	}

	if cfg.StatusAddr != "" {
		srv := server.New()
		if err := srv.Start(cfg.StatusAddr); err != nil {
			log.Printf("run: status feed disabled: %v", err)
		} else {
			mgr.SetOnChange(srv.Broadcast)
			defer func() { _ = srv.Stop() }()
		}
	}

	opts := launcher.SpawnOptions{
		Interactive:  *interactive,
		GracePeriod:  cfg.GracePeriod(),
		PollInterval: cfg.PollInterval(),
	}
	p, err := launcher.ExecuteScript(cfg, stateDir, scriptPath, scriptArgs, opts)
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %s\n", hosterrors.GetMessage(err))
		return 1
	}
	if err := mgr.Register(p.Handle, scriptPath); err != nil {
		log.Printf("run: %s", hosterrors.GetMessage(err))
	}

	var runID string
	if store != nil {
		if rec, err := store.RecordStart(p.Handle.PID(), scriptPath); err == nil {
			runID = rec.ID
		} else {
			log.Printf("run: recording start: %v", err)
		}
	}

	sess := session.New(p, mgr, func(issue protocol.ParseIssue) {
		log.Printf("run: skipped %s line from script (type=%q correlation=%s)",
			issue.Kind, issue.MessageType, issue.CorrelationID)
	})
	split, err := sess.Split()
	if err != nil {
		fmt.Fprintf(stderr, "script-kit: %s\n", hosterrors.GetMessage(err))
		_ = sess.Close()
		return 1
	}

	// Script stderr passes through untouched; only stdout speaks protocol.
	if p.Stderr != nil {
		go func() { _, _ = io.Copy(stderr, p.Stderr) }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			log.Printf("run: interrupt received, terminating script")
			_ = mgr.KillAll()
		}
	}()

	answers := bufio.NewScanner(promptInput)
	for {
		msg, err := split.Read.ReceiveGraceful()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("run: reading from script: %v", err)
			}
			break
		}
		if done := dispatch(msg, split, answers, stdout); done {
			_ = split.Kill()
			break
		}
	}

	code, err := split.Wait()
	if err != nil {
		log.Printf("run: waiting for script: %s", hosterrors.GetMessage(err))
	}

	if store != nil && runID != "" {
		status := storage.StatusExited
		if code == -1 {
			status = storage.StatusKilled
		}
		if err := store.RecordExit(runID, code, status); err != nil {
			log.Printf("run: recording exit: %v", err)
		}
	}

	if code < 0 {
		return 1
	}
	return code
}

// dispatch handles one message from the script. Returns true when the
// session should end.
func dispatch(msg protocol.Message, split *session.SplitSession, answers *bufio.Scanner, stdout io.Writer) bool {
	switch m := msg.(type) {
	case *protocol.Exit:
		return true
	case *protocol.Log:
		level := m.Level
		if level == "" {
			level = "info"
		}
		log.Printf("script [%s] %s", level, m.Message)
	case *protocol.Beep:
		fmt.Fprint(stdout, "\a")
	case *protocol.Say:
		fmt.Fprintf(stdout, "[say] %s\n", m.Text)
	case *protocol.Notify:
		if m.Body != "" {
			fmt.Fprintf(stdout, "[notify] %s: %s\n", m.Title, m.Body)
		} else {
			fmt.Fprintf(stdout, "[notify] %s\n", m.Title)
		}
	case *protocol.Toast:
		fmt.Fprintf(stdout, "[toast] %s\n", m.Text)
	case *protocol.SetProgress:
		fmt.Fprintf(stdout, "[progress] %d%%\n", m.Percent)
	default:
		if id, ok := msg.RequestID(); ok {
			answerPrompt(msg, id, split, answers, stdout)
		}
		// Remaining control messages (show/hide/set*) target a GUI
		// surface; terminal mode has nothing to apply them to.
	}
	return false
}

// answerPrompt renders a prompt on the terminal, reads one answer line,
// and submits it back to the script.
func answerPrompt(msg protocol.Message, id string, split *session.SplitSession, answers *bufio.Scanner, stdout io.Writer) {
	fmt.Fprintf(stdout, "? %s ", promptLabel(msg))

	var value string
	if answers.Scan() {
		value = answers.Text()
	}
	if err := split.Write.Send(protocol.NewSubmit(id, value)); err != nil {
		log.Printf("run: submitting answer: %s", hosterrors.GetMessage(err))
	}
}

// promptLabel builds the one-line terminal rendering of a prompt request.
func promptLabel(msg protocol.Message) string {
	switch m := msg.(type) {
	case *protocol.Arg:
		if len(m.Choices) > 0 {
			return fmt.Sprintf("%s [%s]", m.Placeholder, choiceNames(m.Choices))
		}
		return m.Placeholder
	case *protocol.Select:
		return fmt.Sprintf("%s [%s]", m.Placeholder, choiceNames(m.Choices))
	case *protocol.Confirm:
		return m.Question + " (y/n)"
	case *protocol.Env:
		return "value for $" + m.Key
	case *protocol.Editor, *protocol.Textarea:
		return "enter text:"
	case *protocol.Path:
		return "path:"
	case *protocol.Div, *protocol.Form:
		return "(press enter to continue)"
	case *protocol.Drop:
		return "drop (enter a path):"
	case *protocol.Hotkey:
		return "hotkey:"
	case *protocol.Chat:
		return "chat:"
	case *protocol.Term:
		return "command:"
	default:
		return string(msg.Kind()) + ":"
	}
}

func choiceNames(choices []protocol.Choice) string {
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = c.Name
	}
	return strings.Join(names, "/")
}
