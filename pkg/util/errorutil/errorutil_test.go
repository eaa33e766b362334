package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToDomainErrorPassesThroughWrapped(t *testing.T) {
	base := NewFailedPrecondition("Insufficient balance.", nil)
	wrapped := fmt.Errorf("commit: %w", base)

	got := ToDomainError(wrapped)
	if got.Code != CodeFailedPrecondition {
		t.Fatalf("expected %s, got %s", CodeFailedPrecondition, got.Code)
	}
	if got.HTTPStatus != http.StatusPreconditionFailed {
		t.Fatalf("unexpected status %d", got.HTTPStatus)
	}
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	got := ToDomainError(errors.New("connection reset"))
	if got.Code != CodeInternal || got.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal error, got %+v", got)
	}
	if got.Unwrap() == nil {
		t.Fatalf("expected cause to be preserved")
	}
}

func TestMapErrorKeepsNil(t *testing.T) {
	if MapError(nil) != nil {
		t.Fatalf("expected nil")
	}
}

func TestHasCode(t *testing.T) {
	err := NewPermissionDenied("Not allowed.")
	if !HasCode(err, CodePermissionDenied) {
		t.Fatalf("expected permission-denied")
	}
	if HasCode(err, CodeNotFound) {
		t.Fatalf("did not expect not-found")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestFromHTTPStatus(t *testing.T) {
	cases := map[int]string{
		http.StatusBadRequest:          CodeInvalidArgument,
		http.StatusUnauthorized:        CodeUnauthenticated,
		http.StatusForbidden:           CodePermissionDenied,
		http.StatusNotFound:            CodeNotFound,
		http.StatusPreconditionFailed:  CodeFailedPrecondition,
		http.StatusInternalServerError: CodeInternal,
	}
	for status, code := range cases {
		got := FromHTTPStatus(status, "")
		if got.Code != code {
			t.Fatalf("status %d: expected %s, got %s", status, code, got.Code)
		}
		if got.Message == "" {
			t.Fatalf("status %d: expected default message", status)
		}
	}
}
