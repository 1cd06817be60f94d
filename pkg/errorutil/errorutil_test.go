package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	wrapped := fmt.Errorf("get ticket: %w", NewNotFound("ticket", nil))

	de := ToDomainError(wrapped)
	if de.Code != CodeNotFound {
		t.Fatalf("expected %s, got %s", CodeNotFound, de.Code)
	}
	if de.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", de.HTTPStatus)
	}
	if de.Message != "ticket not found" {
		t.Errorf("unexpected message %q", de.Message)
	}
}

func TestToDomainErrorHidesUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset by peer")

	de := ToDomainError(cause)
	if de.Code != CodeInternal || de.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected opaque internal error, got %+v", de)
	}
	if de.Message != "internal server error" {
		t.Errorf("internal message leaked: %q", de.Message)
	}
	if !errors.Is(de, cause) {
		t.Error("expected cause to stay reachable through Unwrap")
	}
}

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"forbidden", NewForbidden("agents only"), ErrForbidden, true},
		{"conflict", NewConflict("email already registered", nil), ErrConflict, true},
		{"transition", NewInvalidTransition("open", "closed"), ErrInvalidTransition, true},
		{"wrapped validation", fmt.Errorf("create: %w", NewValidationError("title required", nil)), ErrValidation, true},
		{"mismatch", NewForbidden("nope"), ErrNotFound, false},
		{"plain error", errors.New("boom"), ErrInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.sentinel); got != tt.want {
				t.Errorf("errors.Is = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvalidCredentialDoesNotLeakCause(t *testing.T) {
	err := NewInvalidCredential(ErrNotFound)

	de := ToDomainError(err)
	if de.Message != "invalid email or password" {
		t.Errorf("unexpected message %q", de.Message)
	}
	if de.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", de.HTTPStatus)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected not-found cause to be inspectable internally")
	}
}
