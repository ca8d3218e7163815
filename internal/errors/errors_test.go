package errors

import (
	"errors"
	"testing"
)

func TestCodedError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *CodedError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CodeSpawnNotFound, "bun not found"),
			expected: "spawn.not_found: bun not found",
		},
		{
			name:     "error with cause",
			err:      Wrap(CodeSessionWriteFailed, "stdin write failed", errors.New("broken pipe")),
			expected: "session.write_failed: stdin write failed (broken pipe)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCodedError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	err := Wrap(CodeInternal, "wrapped", cause)

	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the original cause")
	}

	err2 := New(CodeSessionClosed, "session is closed")
	if err2.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "CodedError",
			err:      New(CodeProtoSyntax, "bad json"),
			expected: CodeProtoSyntax,
		},
		{
			name:     "wrapped CodedError",
			err:      Wrap(CodeSpawnFailed, "failed", errors.New("cause")),
			expected: CodeSpawnFailed,
		},
		{
			name:     "plain error",
			err:      errors.New("some error"),
			expected: CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := ExecutableNotFound("deno")
	if !IsCode(err, CodeSpawnNotFound) {
		t.Error("IsCode() should match the constructor's code")
	}
	if IsCode(err, CodeSpawnFailed) {
		t.Error("IsCode() should not match a different code")
	}
}

func TestErrorsAs_ThroughWrapping(t *testing.T) {
	inner := ExecutableNotFound("bun")
	outer := Wrap(CodeSpawnExhausted, "all runtimes failed", inner)

	var coded *CodedError
	if !errors.As(outer, &coded) {
		t.Fatal("errors.As should find a CodedError")
	}
	if coded.Code != CodeSpawnExhausted {
		t.Errorf("outermost code = %q, want %q", coded.Code, CodeSpawnExhausted)
	}
	if !errors.Is(outer, inner) {
		t.Error("errors.Is should see through to the inner error")
	}
}
