package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	hosterrors "github.com/scriptkit/host/internal/errors"
)

// Issue-log throttling. A script stuck in a tight loop printing garbage
// must not be able to flood the host log; issues past the budget are still
// delivered to the handler, just not logged.
const (
	issueLogsPerSecond = 5
	issueLogBurst      = 10
)

// maxLineBytes bounds a single protocol line. Longer lines are a script
// bug (or binary output on the wrong stream), not a message; they are
// drained and skipped like any other unparseable line.
const maxLineBytes = 1 << 20

// Reader decodes a JSONL message stream with graceful skipping.
//
// Unparseable and oversized lines never end the stream: each one is
// reported to the issue handler (if any) and reading continues with the
// next line. Only EOF and real I/O errors surface to the caller.
type Reader struct {
	br      *bufio.Reader
	onIssue func(ParseIssue)
	limiter *rate.Limiter
}

// NewReader wraps r in a graceful message reader. onIssue may be nil;
// when set it is invoked once per skipped line, in reading order, from
// the goroutine that calls Next.
func NewReader(r io.Reader, onIssue func(ParseIssue)) *Reader {
	return &Reader{
		br:      bufio.NewReaderSize(r, 64*1024),
		onIssue: onIssue,
		limiter: rate.NewLimiter(rate.Limit(issueLogsPerSecond), issueLogBurst),
	}
}

// readLine returns the next line without its trailing newline, along with
// its full length on the wire. A line beyond maxLineBytes is consumed to
// its newline regardless; overflow is set and the returned bytes are the
// bounded prefix, so the stream position always lands on the next line.
func (rd *Reader) readLine() (line []byte, size int, overflow bool, err error) {
	for {
		chunk, rerr := rd.br.ReadSlice('\n')
		if rerr == nil {
			chunk = chunk[:len(chunk)-1] // the newline is not part of the line
		}
		size += len(chunk)
		if !overflow {
			line = append(line, chunk...)
			if len(line) > maxLineBytes {
				overflow = true
				line = line[:maxLineBytes]
			}
		}
		switch rerr {
		case bufio.ErrBufferFull:
			continue
		case nil:
			return line, size, overflow, nil
		case io.EOF:
			if size == 0 {
				return nil, 0, false, io.EOF
			}
			return line, size, overflow, nil
		default:
			return nil, 0, false, rerr
		}
	}
}

// Next returns the next well-formed message. Blank lines, unparseable
// lines, and lines beyond the length cap are skipped (the latter two
// reported via the issue handler). Returns io.EOF once the stream ends.
//
// A long run of bad lines is handled by this loop, not recursion, so a
// hostile or broken script cannot grow the stack.
func (rd *Reader) Next() (Message, error) {
	for {
		line, size, overflow, err := rd.readLine()
		if err != nil {
			return nil, err
		}
		if overflow {
			rd.report(ParseIssue{
				CorrelationID: uuid.New().String(),
				Kind:          IssueSyntax,
				Err:           fmt.Errorf("line exceeds %d bytes", maxLineBytes),
				RawPreview:    preview(line),
				RawLen:        size,
			})
			continue
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		msg, issue := ParseGraceful(trimmed)
		if msg != nil {
			return msg, nil
		}
		rd.report(*issue)
	}
}

// NextStrict returns the next non-blank line parsed strictly: the first
// unparseable or oversized line surfaces as a proto.* error instead of
// being skipped. Blank lines are still ignored. Returns io.EOF once the
// stream ends.
func (rd *Reader) NextStrict() (Message, error) {
	for {
		line, _, overflow, err := rd.readLine()
		if err != nil {
			return nil, err
		}
		if overflow {
			return nil, hosterrors.New(hosterrors.CodeProtoSyntax,
				fmt.Sprintf("line exceeds %d bytes", maxLineBytes))
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		return Parse(trimmed)
	}
}

func (rd *Reader) report(issue ParseIssue) {
	if rd.onIssue != nil {
		rd.onIssue(issue)
	}
	if rd.limiter.Allow() {
		log.Printf("protocol: skipped unparseable line kind=%s type=%q len=%d correlation=%s",
			issue.Kind, issue.MessageType, issue.RawLen, issue.CorrelationID)
	}
}
