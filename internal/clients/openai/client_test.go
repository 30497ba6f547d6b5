package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudesk/dudesk-chat/internal/clients/llm"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

func TestStreamChat(t *testing.T) {
	var got responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &got))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: response.output_text.delta\ndata: {\"type\":\"response.output_text.delta\",\"delta\":\"Good \"}\n\n")
		_, _ = io.WriteString(w, "data: {\"type\":\"response.output_text.delta\",\"delta\":\"day\"}\n\n")
		_, _ = io.WriteString(w, "data: {\"type\":\"response.completed\"}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	var deltas []string
	full, err := c.StreamChat(context.Background(), llm.ChatRequest{
		Model:      "gpt-test",
		System:     "sys",
		References: []llm.Reference{{Name: "cuet_data.csv", MimeType: "text/csv", Data: []byte("a,b")}},
		Turns:      []llm.Turn{{Role: llm.RoleAssistant, Text: "Welcome"}, {Role: llm.RoleUser, Text: "hi"}},
	}, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)
	assert.Equal(t, "Good day", full)
	assert.Equal(t, []string{"Good ", "day"}, deltas)

	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, "sys", got.Instructions)
	assert.True(t, got.Stream)
	require.Len(t, got.Input, 3)
	assert.Equal(t, "assistant", got.Input[1].Role)
	assert.Equal(t, "hi", got.Input[2].Content)
}

func TestStreamChatRetriesOpen(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "data: {\"type\":\"response.output_text.delta\",\"delta\":\"ok\"}\n\n")
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 2})
	require.NoError(t, err)
	c.httpClient = srv.Client()
	full, err := c.StreamChat(context.Background(), llm.ChatRequest{Turns: []llm.Turn{{Role: llm.RoleUser, Text: "q"}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", full)
	assert.EqualValues(t, 2, calls.Load())
}

func TestStreamChatStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: {\"type\":\"error\",\"error\":{\"message\":\"bad\"}}\n\n")
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.StreamChat(context.Background(), llm.ChatRequest{Turns: []llm.Turn{{Role: llm.RoleUser, Text: "q"}}}, nil)
	assert.ErrorContains(t, err, "openai stream error")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(logger.Nop(), Config{})
	assert.Error(t, err)
}
