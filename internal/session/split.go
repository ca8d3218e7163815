package session

import (
	hosterrors "github.com/scriptkit/host/internal/errors"
	"github.com/scriptkit/host/internal/proc"
	"github.com/scriptkit/host/internal/protocol"
)

// SplitSession is a session divided into a write half and a read half so a
// send pump and a receive pump can run on separate goroutines without
// sharing the session value. Process lifecycle stays on the SplitSession
// itself.
type SplitSession struct {
	Write *WriteHalf
	Read  *ReadHalf

	inner *Session
}

// WriteHalf owns the session's outgoing direction.
type WriteHalf struct {
	s *Session
}

// ReadHalf owns the session's incoming direction.
type ReadHalf struct {
	s *Session
}

// Split consumes the session and returns its two directions. After Split,
// calling Send or Receive on the original session fails with a
// session.consumed error. Splitting twice fails the same way.
func (s *Session) Split() (*SplitSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumed {
		return nil, hosterrors.SessionConsumed()
	}
	if s.closed {
		return nil, hosterrors.New(hosterrors.CodeSessionClosed, "session is closed")
	}
	s.consumed = true

	return &SplitSession{
		Write: &WriteHalf{s: s},
		Read:  &ReadHalf{s: s},
		inner: s,
	}, nil
}

// Send serializes one message and writes it as a single flushed line.
func (w *WriteHalf) Send(m protocol.Message) error {
	return w.s.sendLine(m)
}

// Receive returns the next message parsed strictly. See Session.Receive.
func (r *ReadHalf) Receive() (protocol.Message, error) {
	return r.s.reader.NextStrict()
}

// ReceiveGraceful returns the next well-formed message, skipping
// unparseable lines. See Session.ReceiveGraceful.
func (r *ReadHalf) ReceiveGraceful() (protocol.Message, error) {
	return r.s.reader.Next()
}

// PID returns the script's process-group id.
func (ss *SplitSession) PID() int { return ss.inner.process.Handle.PID() }

// Handle returns the process-group handle.
func (ss *SplitSession) Handle() *proc.Handle { return ss.inner.process.Handle }

// IsRunning probes whether the script process is still alive.
func (ss *SplitSession) IsRunning() bool { return ss.inner.IsRunning() }

// Wait blocks until the script exits. See Session.Wait.
func (ss *SplitSession) Wait() (int, error) { return ss.inner.Wait() }

// Kill terminates the script's process group and unregisters it.
func (ss *SplitSession) Kill() error { return ss.inner.Kill() }

// Close closes stdin, kills the group, and unregisters it. Idempotent.
func (ss *SplitSession) Close() error { return ss.inner.Close() }
