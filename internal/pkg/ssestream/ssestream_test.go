package ssestream

import (
	"errors"
	"strings"
	"testing"
)

type event struct{ name, data string }

func collect(t *testing.T, body string) []event {
	t.Helper()
	var got []event
	if err := Read(strings.NewReader(body), func(name, data string) error {
		got = append(got, event{name, data})
		return nil
	}); err != nil {
		t.Fatalf("Read: %v", err)
	}
	return got
}

func TestReadEvents(t *testing.T) {
	body := ": ping ####\n\n" +
		"event:delta\ndata:{\"text\":\"Hel\"}\n\n" +
		"event: delta\ndata: {\"text\":\" lo\"}\n\n" +
		"data: line one\ndata: line two\n\n" +
		"event:done\ndata:{}"
	got := collect(t, body)
	want := []event{
		{"delta", `{"text":"Hel"}`},
		{"delta", `{"text":" lo"}`},
		{"", "line one\nline two"},
		{"done", "{}"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadKeepsInnerLeadingSpace(t *testing.T) {
	got := collect(t, "data:  two spaces\n\n")
	if len(got) != 1 || got[0].data != " two spaces" {
		t.Fatalf("got %+v", got)
	}
}

func TestReadStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := Read(strings.NewReader("data:a\n\ndata:b\n\n"), func(string, string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}
