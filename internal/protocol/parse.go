package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	hosterrors "github.com/scriptkit/host/internal/errors"
)

// IssueKind classifies why a line could not be parsed.
type IssueKind string

const (
	// IssueSyntax means the line is not valid JSON.
	IssueSyntax IssueKind = "syntax"
	// IssueMissingType means the object carries no "type" discriminant.
	IssueMissingType IssueKind = "missing_type"
	// IssueUnknownType means the discriminant names no known variant.
	// This is the forward-compatibility case: a newer script spoke a
	// message this host does not implement yet.
	IssueUnknownType IssueKind = "unknown_type"
	// IssueInvalidPayload means the variant is known but the payload is
	// malformed or missing a required field.
	IssueInvalidPayload IssueKind = "invalid_payload"
)

// rawPreviewLimit bounds how much of a bad line an issue retains.
const rawPreviewLimit = 120

// ParseIssue describes one skipped line from the graceful parsing tier.
// CorrelationID lets a log entry on the host be matched to a report sent
// elsewhere (e.g. the status feed) about the same line.
type ParseIssue struct {
	CorrelationID string
	Kind          IssueKind
	// MessageType holds the discriminant when one was present.
	MessageType string
	// Err is the underlying decode or validation error, when there is one.
	Err error
	// RawPreview is a bounded prefix of the offending line.
	RawPreview string
	// RawLen is the full length of the offending line in bytes.
	RawLen int
}

// Parse decodes one JSONL line strictly. Any classification failure is
// returned as a *errors.CodedError with a proto.* code.
func Parse(line []byte) (Message, error) {
	msg, kind, msgType, cause := classify(line)
	if msg != nil {
		return msg, nil
	}
	switch kind {
	case IssueSyntax:
		return nil, hosterrors.Wrap(hosterrors.CodeProtoSyntax, "malformed JSON line", cause)
	case IssueMissingType:
		return nil, hosterrors.New(hosterrors.CodeProtoMissingType, "message has no \"type\" field")
	case IssueUnknownType:
		return nil, hosterrors.New(hosterrors.CodeProtoUnknownType, fmt.Sprintf("unknown message type %q", msgType))
	default:
		return nil, hosterrors.Wrap(hosterrors.CodeProtoInvalidPayload, fmt.Sprintf("invalid %q payload", msgType), cause)
	}
}

// ParseGraceful decodes one JSONL line, classifying failures instead of
// treating them as fatal. Exactly one of the results is non-nil.
func ParseGraceful(line []byte) (Message, *ParseIssue) {
	msg, kind, msgType, cause := classify(line)
	if msg != nil {
		return msg, nil
	}
	return nil, &ParseIssue{
		CorrelationID: uuid.New().String(),
		Kind:          kind,
		MessageType:   msgType,
		Err:           cause,
		RawPreview:    preview(line),
		RawLen:        len(line),
	}
}

// classify is the shared decode pipeline behind Parse and ParseGraceful.
// On success it returns the message; otherwise the issue kind, the
// discriminant if one was read, and the underlying error if any.
func classify(line []byte) (Message, IssueKind, string, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return nil, IssueSyntax, "", err
	}
	if head.Type == nil {
		return nil, IssueMissingType, "", nil
	}

	factory, ok := registry[Kind(*head.Type)]
	if !ok {
		return nil, IssueUnknownType, *head.Type, nil
	}

	msg := factory()
	if err := json.Unmarshal(line, msg); err != nil {
		return nil, IssueInvalidPayload, *head.Type, err
	}
	if v, ok := msg.(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return nil, IssueInvalidPayload, *head.Type, err
		}
	}
	return msg, "", *head.Type, nil
}

// missingField builds the validation error for an absent required field.
func missingField(name string) error {
	return fmt.Errorf("missing required field %q", name)
}

// preview returns a bounded prefix of line, trimmed back to a rune boundary
// so the result is always valid UTF-8.
func preview(line []byte) string {
	if len(line) <= rawPreviewLimit {
		return string(line)
	}
	cut := line[:rawPreviewLimit]
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRune(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return string(cut)
}

// Marshal serializes a message to its single-line wire form: the variant's
// fields plus the "type" discriminant, with no trailing newline.
func Marshal(m Message) ([]byte, error) {
	if m == nil {
		return nil, hosterrors.New(hosterrors.CodeProtoSerialize, "cannot marshal nil message")
	}
	kind := m.Kind()
	if _, ok := registry[kind]; !ok {
		return nil, hosterrors.New(hosterrors.CodeProtoSerialize, fmt.Sprintf("message kind %q is not registered", kind))
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return nil, hosterrors.Wrap(hosterrors.CodeProtoSerialize, fmt.Sprintf("failed to serialize %q message", kind), err)
	}
	if len(payload) < 2 || payload[0] != '{' {
		return nil, hosterrors.New(hosterrors.CodeProtoSerialize, fmt.Sprintf("message kind %q did not serialize to an object", kind))
	}

	// Splice the discriminant in as the first member so the variant structs
	// don't each have to carry (and keep consistent) a type field.
	out := make([]byte, 0, len(payload)+len(kind)+12)
	out = append(out, `{"type":`...)
	out = strconv.AppendQuote(out, string(kind))
	if len(payload) == 2 { // "{}"
		return append(out, '}'), nil
	}
	out = append(out, ',')
	return append(out, payload[1:]...), nil
}
