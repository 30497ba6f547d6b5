package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWritePrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/session/options", "200", 30*time.Millisecond)
	m.ObserveAPI("POST", "/api/session/options", "200", 2*time.Second)
	m.IncSessionAction("select_option", "ok")
	m.ObserveLLMRequest("gemini", "gemini-1.5-pro-latest", "ok", time.Second)
	m.SetSessionsActive(3)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`dudesk_api_requests_total{method="POST",route="/api/session/options",status="200"} 2`,
		`dudesk_api_request_duration_seconds_bucket{method="POST",route="/api/session/options",status="200",le="0.05"} 1`,
		`dudesk_api_request_duration_seconds_bucket{method="POST",route="/api/session/options",status="200",le="+Inf"} 2`,
		`dudesk_session_actions_total{action="select_option",outcome="ok"} 1`,
		`dudesk_llm_requests_total{provider="gemini",model="gemini-1.5-pro-latest",status="ok"} 1`,
		"dudesk_sessions_active 3",
		"# TYPE dudesk_redis_up gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.IncSessionAction("end_chat", "ok")
	m.SSEClientConnected()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString=%s", got)
	}
}
