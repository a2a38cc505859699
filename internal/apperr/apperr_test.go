package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error", cause, KindInternal},
		{"domain error", New(KindConflict, "game exists"), KindConflict},
		{"wrapped domain error", fmt.Errorf("start: %w", New(KindNotFound, "scenario")), KindNotFound},
		{"domain wrapping cause", Wrap(KindExternalCall, "judge", cause), KindExternalCall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("submit: %w", New(KindInconsistentState, "user turn followed by user turn"))
	if !errors.Is(err, ErrInconsistentState) {
		t.Error("errors.Is should match by kind")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Wrap(KindExternalCall, "generate opening", cause)
	if !errors.Is(err, cause) {
		t.Error("Wrap should keep the cause in the chain")
	}
	if err.Error() != "generate opening: timeout" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
		{KindForbidden, http.StatusForbidden},
		{KindServiceUnavailable, http.StatusServiceUnavailable},
		{KindInconsistentState, http.StatusUnprocessableEntity},
		{KindExternalCall, http.StatusBadGateway},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.HTTPStatus(); got != tt.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
