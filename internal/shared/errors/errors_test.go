package errors

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

// --- Status Mapping Tests ---

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		code   string
	}{
		{"not found", NotFound("client", "abc"), http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", Unauthorized("authentication required"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", Forbidden("only sales may create clients"), http.StatusForbidden, "FORBIDDEN"},
		{"bad request", BadRequest("invalid request body"), http.StatusBadRequest, "BAD_REQUEST"},
		{"validation", Validation("validation failed", map[string]string{"email": "email is required"}), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, tt.err.HTTPStatus)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, tt.err.Code)
			}
		})
	}
}

func TestValidationDetailsAreFieldKeyed(t *testing.T) {
	err := Validation("validation failed", map[string]string{
		"company_name": "company_name is required",
		"contract":     "contract already has an event",
	})

	if err.Details["contract"] != "contract already has an event" {
		t.Error("Details should be keyed by field name")
	}
}

func TestNotFoundSentinel(t *testing.T) {
	err := NotFound("event", "abc")
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFound should unwrap to ErrNotFound")
	}
}

func TestWrapPreservesAppError(t *testing.T) {
	inner := Forbidden("nope")
	wrapped := Wrap(inner, "update client")

	if wrapped.HTTPStatus != http.StatusForbidden {
		t.Errorf("Wrapping should preserve the HTTP status, got %d", wrapped.HTTPStatus)
	}
	if !strings.HasPrefix(wrapped.Message, "update client: ") {
		t.Errorf("Expected prefixed message, got '%s'", wrapped.Message)
	}
}
