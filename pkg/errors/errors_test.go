package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeMissingLeaf, "no data for %s", "t{o,o;v,v}")

	if err.Code != ErrCodeMissingLeaf {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeMissingLeaf)
	}

	if err.Message != "no data for t{o,o;v,v}" {
		t.Errorf("Message = %v, want %v", err.Message, "no data for t{o,o;v,v}")
	}

	expected := "MISSING_LEAF: no data for t{o,o;v,v}"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeShapeMismatch, cause, "leaf g")

	if err.Code != ErrCodeShapeMismatch {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeShapeMismatch)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeMalformed, "test"),
			code:     ErrCodeMalformed,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeMalformed, "test"),
			code:     ErrCodeDuplicate,
			expected: false,
		},
		{
			name:     "outer code",
			err:      Wrap(ErrCodeInvalidExpression, New(ErrCodeMalformed, "inner"), "outer"),
			code:     ErrCodeInvalidExpression,
			expected: true,
		},
		{
			name:     "inner code",
			err:      Wrap(ErrCodeInvalidExpression, New(ErrCodeMalformed, "inner"), "outer"),
			code:     ErrCodeMalformed,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("evaluate: %w", New(ErrCodeNarrowing, "scalar")),
			code:     ErrCodeNarrowing,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeDuplicate, "test"),
			expected: ErrCodeDuplicate,
		},
		{
			name:     "wrapped keeps outer",
			err:      Wrap(ErrCodeInternal, New(ErrCodeDuplicate, "inner"), "outer"),
			expected: ErrCodeInternal,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}
