package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Field("movieId", "required"), http.StatusBadRequest},
		{"unauthenticated", Unauthenticated("no session"), http.StatusUnauthorized},
		{"forbidden", Forbidden(), http.StatusForbidden},
		{"not found", NotFound("movie not found"), http.StatusNotFound},
		{"conflict", Conflict("exists"), http.StatusConflict},
		{"external", External("catalog", cause), http.StatusBadGateway},
		{"internal", Internal(cause), http.StatusInternalServerError},
		{"plain error", cause, http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("ctx: %w", NotFound("x")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := Internal(cause)
	if !errors.Is(err, cause) {
		t.Fatal("Internal should wrap its cause")
	}
	if err.Message != "internal server error" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestForbiddenMessage(t *testing.T) {
	if got := Forbidden().Message; got != "not authorized" {
		t.Errorf("Forbidden().Message = %q", got)
	}
	if !Is(Forbidden(), KindForbidden) || Is(nil, KindForbidden) {
		t.Error("Is mismatch")
	}
}
