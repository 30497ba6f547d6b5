package httpx

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "429", err: &StatusError{Service: "gemini", StatusCode: 429}, want: true},
		{name: "503", err: &StatusError{Service: "gemini", StatusCode: 503}, want: true},
		{name: "400", err: &StatusError{Service: "gemini", StatusCode: 400}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryableError(tc.err); got != tc.want {
				t.Fatalf("IsRetryableError(%v)=%v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryAfterDurationCapped(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"30"}}}
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("RetryAfterDuration=%s, want 10s", got)
	}
	if got := RetryAfterDuration(nil, 2*time.Second, 0); got != 2*time.Second {
		t.Fatalf("RetryAfterDuration(nil)=%s, want 2s", got)
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{MaxRetries: 3, Initial: time.Millisecond, Max: time.Millisecond}, func(ctx context.Context) (*http.Response, error) {
		calls++
		if calls < 3 {
			return nil, &StatusError{Service: "test", StatusCode: 502}
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
}

func TestRetryGivesUpOnPermanentError(t *testing.T) {
	calls := 0
	want := &StatusError{Service: "test", StatusCode: 401}
	err := Retry(context.Background(), RetryPolicy{MaxRetries: 5, Initial: time.Millisecond}, func(ctx context.Context) (*http.Response, error) {
		calls++
		return nil, want
	})
	if !errors.Is(err, want) || calls != 1 {
		t.Fatalf("err=%v calls=%d, want permanent error after 1 call", err, calls)
	}
}
