package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsFindsWrappedError(t *testing.T) {
	base := errors.New("message is empty")
	err := fmt.Errorf("handler: %w", New(http.StatusBadRequest, "empty_message", base))

	ae, ok := As(err)
	if !ok {
		t.Fatalf("expected apierr in chain")
	}
	if ae.Status != http.StatusBadRequest || ae.Code != "empty_message" {
		t.Fatalf("unexpected error: %+v", ae)
	}
	if !errors.Is(err, base) {
		t.Fatalf("Unwrap should expose the cause")
	}
	if _, ok := As(base); ok {
		t.Fatalf("plain error is not an apierr")
	}
}

func TestErrorText(t *testing.T) {
	if got := New(409, "reply_pending", nil).Error(); got != "reply_pending" {
		t.Fatalf("Error()=%q", got)
	}
	if got := New(500, "", nil).Error(); got != "api error (500)" {
		t.Fatalf("Error()=%q", got)
	}
}
