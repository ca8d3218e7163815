// Package session provides the full-duplex JSONL exchange with a running
// script: sending messages down stdin, receiving messages from stdout, and
// splitting the two directions into independently owned halves for
// threaded pumps.
package session

import (
	"bufio"
	"io"
	"sync"

	hosterrors "github.com/scriptkit/host/internal/errors"
	"github.com/scriptkit/host/internal/launcher"
	"github.com/scriptkit/host/internal/proc"
	"github.com/scriptkit/host/internal/protocol"
)

// Session is the message-level connection to one script process.
//
// Send and the Receive methods are individually safe for concurrent use,
// and safe against each other: one goroutine may pump Receive while
// another calls Send. Wait, Kill, and Close manage the process itself.
//
// Split consumes the session; afterwards every method returns a
// session.consumed error and the returned halves carry the traffic.
type Session struct {
	process *launcher.Process
	manager *proc.Manager // nil when the caller tracks the process itself

	writeMu sync.Mutex
	writer  *bufio.Writer
	reader  *protocol.Reader

	mu       sync.Mutex
	consumed bool
	closed   bool
}

// New wraps a spawned process in a session. manager may be nil; when set,
// Wait/Kill/Close unregister the process after it is gone. onIssue is the
// graceful-tier issue handler (may be nil).
func New(p *launcher.Process, manager *proc.Manager, onIssue func(protocol.ParseIssue)) *Session {
	var w io.Writer
	var r io.Reader
	if p.PTY != nil {
		w, r = p.PTY, p.PTY
	} else {
		w, r = p.Stdin, p.Stdout
	}
	return &Session{
		process: p,
		manager: manager,
		writer:  bufio.NewWriter(w),
		reader:  protocol.NewReader(r, onIssue),
	}
}

// PID returns the script's process-group id.
func (s *Session) PID() int { return s.process.Handle.PID() }

// Handle returns the process-group handle, for callers that need direct
// lifecycle control.
func (s *Session) Handle() *proc.Handle { return s.process.Handle }

// Send serializes one message and writes it as a single flushed line.
func (s *Session) Send(m protocol.Message) error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.sendLine(m)
}

// sendLine is the shared write path for Session.Send and WriteHalf.Send.
func (s *Session) sendLine(m protocol.Message) error {
	data, err := protocol.Marshal(m)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.writer.Write(data); err != nil {
		return hosterrors.WriteFailed(err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return hosterrors.WriteFailed(err)
	}
	if err := s.writer.Flush(); err != nil {
		return hosterrors.WriteFailed(err)
	}
	return nil
}

// Receive returns the next message, parsed strictly: the first unparseable
// line is an error. Returns io.EOF when the script closes its stdout.
func (s *Session) Receive() (protocol.Message, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	return s.reader.NextStrict()
}

// ReceiveGraceful returns the next well-formed message, skipping lines the
// protocol cannot parse. Returns io.EOF when the script closes its stdout.
func (s *Session) ReceiveGraceful() (protocol.Message, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	return s.reader.Next()
}

// IsRunning probes whether the script process is still alive.
func (s *Session) IsRunning() bool {
	return s.process.Handle.IsAlive()
}

// Wait blocks until the script exits and returns its exit code. A script
// ended by a signal reports -1. The process is unregistered from the
// manager either way.
func (s *Session) Wait() (int, error) {
	err := s.process.Cmd.Wait()
	s.unregister()

	if err == nil {
		return s.process.Cmd.ProcessState.ExitCode(), nil
	}
	if state := s.process.Cmd.ProcessState; state != nil {
		// ExitCode is -1 for signal deaths, which is exactly the
		// convention callers expect.
		return state.ExitCode(), nil
	}
	return -1, hosterrors.Internal("wait failed", err)
}

// Kill terminates the script's process group (TERM, grace, KILL) and
// unregisters it.
func (s *Session) Kill() error {
	err := s.process.Handle.Kill()
	s.unregister()
	return err
}

// Close ends the session: stdin is closed so a well-behaved script sees
// EOF, then the group is killed and unregistered. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.process.Stdin != nil {
		_ = s.process.Stdin.Close()
	}
	if s.process.PTY != nil {
		_ = s.process.PTY.Close()
	}
	return s.Kill()
}

func (s *Session) unregister() {
	if s.manager != nil {
		_ = s.manager.Unregister(s.process.Handle.PID())
	}
}

func (s *Session) usable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumed {
		return hosterrors.SessionConsumed()
	}
	if s.closed {
		return hosterrors.New(hosterrors.CodeSessionClosed, "session is closed")
	}
	return nil
}
