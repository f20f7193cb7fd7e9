package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")

	err := New(IndexUnavailable, "index could not be loaded", cause)

	if err.Code != IndexUnavailable {
		t.Errorf("Code = %v, want %v", err.Code, IndexUnavailable)
	}
	if err.Message != "index could not be loaded" {
		t.Errorf("Message = %q, want %q", err.Message, "index could not be loaded")
	}
	if len(err.Hints) == 0 {
		t.Error("New should attach the default hints for the code")
	}
}

func TestNavError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      IndexUnavailable,
			message:   "index not loaded",
			cause:     errors.New("open index.scip: no such file"),
			wantParts: []string{"INDEX_UNAVAILABLE", "index not loaded", "no such file"},
		},
		{
			name:      "without cause",
			code:      RootNotFound,
			message:   "no symbol at main.go:12:4",
			cause:     nil,
			wantParts: []string{"ROOT_NOT_FOUND", "no symbol at main.go:12:4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.cause)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestNavError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through NavError to the cause")
	}

	errNoCause := New(RootNotFound, "nothing there", nil)
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestNavError_WithDetails(t *testing.T) {
	err := New(InvalidDepthOrBudget, "depth must be positive", nil)
	details := map[string]int{"depth": -1, "max": 4}

	result := err.WithDetails(details)

	// Check that it returns the same error (for chaining)
	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestNavError_WithHints(t *testing.T) {
	err := New(OverflowRecordNotFound, "unknown id", nil).WithHints("custom hint")

	if len(err.Hints) != 1 || err.Hints[0] != "custom hint" {
		t.Errorf("Hints = %v, want exactly [custom hint]", err.Hints)
	}
}

func TestHintsFor(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
	}{
		{RootNotFound, false},
		{IndexUnavailable, false},
		{InvalidDepthOrBudget, false},
		{OverflowRecordNotFound, false},
		{InternalError, true}, // No predefined hints
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			hints := HintsFor(tt.code)

			if tt.wantNil && hints != nil {
				t.Errorf("HintsFor(%v) = %v, want nil", tt.code, hints)
			}
			if !tt.wantNil && len(hints) == 0 {
				t.Errorf("HintsFor(%v) returned no hints", tt.code)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	// Ensure all error codes are unique
	codes := []ErrorCode{
		RootNotFound,
		IndexUnavailable,
		InvalidDepthOrBudget,
		OverflowRecordNotFound,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}

func TestErrorHintsMap(t *testing.T) {
	for code, hints := range ErrorHints {
		if len(hints) == 0 {
			t.Errorf("ErrorHints[%v] has no hints", code)
		}
		for i, hint := range hints {
			if hint == "" {
				t.Errorf("ErrorHints[%v][%d] is empty", code, i)
			}
		}
	}
}
