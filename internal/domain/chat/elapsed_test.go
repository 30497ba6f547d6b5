package chat

import (
	"testing"
	"time"
)

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{999 * time.Millisecond, "00:00"},
		{61 * time.Second, "01:01"},
		{125 * time.Second, "02:05"},
		{100 * time.Minute, "100:00"},
		{-time.Second, "00:00"},
	}
	for _, tc := range cases {
		if got := FormatElapsed(tc.in); got != tc.want {
			t.Fatalf("FormatElapsed(%v)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestElapsedRunsUntilEnd(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Session{StartedAt: start}
	if got := s.ElapsedText(start.Add(61500 * time.Millisecond)); got != "01:01" {
		t.Fatalf("running elapsed=%q", got)
	}
	s.Ended = true
	s.EndedAt = start.Add(5 * time.Second)
	if got := s.ElapsedText(start.Add(time.Hour)); got != "00:05" {
		t.Fatalf("frozen elapsed=%q", got)
	}
}
