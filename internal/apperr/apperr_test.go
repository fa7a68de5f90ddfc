package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	var v ValidationError
	if v.Err() != nil {
		t.Fatal("empty validation error should be nil")
	}
	v.Add("title", "required")
	v.Add("priority", "must be one of Low, Medium, High")

	err := v.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	var ve *ValidationError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &ve) {
		t.Fatal("expected errors.As to find ValidationError")
	}
	if len(ve.Fields) != 2 {
		t.Errorf("got %d fields", len(ve.Fields))
	}
	if !strings.Contains(err.Error(), "title: required") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestNotFound(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("ticket", "t-1"))
	if !IsNotFound(err) {
		t.Error("expected IsNotFound")
	}
	if IsNotFound(errors.New("boom")) {
		t.Error("plain error is not NotFound")
	}
	if got := NotFound("project", "p-9").Error(); got != `project "p-9" not found` {
		t.Errorf("got %q", got)
	}
}

func TestStoreError(t *testing.T) {
	if Store("op", nil) != nil {
		t.Error("nil error should stay nil")
	}
	cause := errors.New("disk full")
	err := Store("insert ticket", cause)
	if !errors.Is(err, cause) {
		t.Error("expected StoreError to unwrap to cause")
	}
}
