// Package openai streams chat replies from the OpenAI Responses API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dudesk/dudesk-chat/internal/clients/llm"
	"github.com/dudesk/dudesk-chat/internal/pkg/ctxutil"
	"github.com/dudesk/dudesk-chat/internal/pkg/httpx"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/pkg/ssestream"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Client{
		log:        log.With("service", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

type inputItem struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responsesRequest struct {
	Model        string      `json:"model"`
	Instructions string      `json:"instructions,omitempty"`
	Input        []inputItem `json:"input"`
	Stream       bool        `json:"stream,omitempty"`
}

// buildInput inlines reference bytes as text blocks in a leading user
// message since the Responses API has no CSV attachment type.
func buildInput(req llm.ChatRequest) []inputItem {
	items := make([]inputItem, 0, len(req.Turns)+1)
	var refs []map[string]any
	for _, ref := range req.References {
		var text string
		switch {
		case len(ref.Data) > 0:
			text = fmt.Sprintf("File %s (%s):\n%s", ref.Name, ref.MimeType, string(ref.Data))
		case ref.URI != "":
			text = fmt.Sprintf("File %s is available at %s", ref.Name, ref.URI)
		default:
			continue
		}
		refs = append(refs, map[string]any{"type": "input_text", "text": text})
	}
	if len(refs) > 0 {
		items = append(items, inputItem{Role: "user", Content: refs})
	}
	for _, t := range req.Turns {
		role := "user"
		if t.Role == llm.RoleAssistant {
			role = "assistant"
		}
		items = append(items, inputItem{Role: role, Content: t.Text})
	}
	return items
}

// StreamChat streams output_text deltas. Only opening the stream is
// retried; once deltas flow a failure is returned as is.
func (c *Client) StreamChat(ctx context.Context, req llm.ChatRequest, onDelta func(string)) (string, error) {
	ctx = ctxutil.Default(ctx)
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(responsesRequest{
		Model:        model,
		Instructions: strings.TrimSpace(req.System),
		Input:        buildInput(req),
		Stream:       true,
	})
	if err != nil {
		return "", err
	}

	var resp *http.Response
	policy := httpx.RetryPolicy{
		MaxRetries: c.maxRetries,
		Initial:    time.Second,
		Max:        10 * time.Second,
		OnRetry: func(attempt int, sleep time.Duration, err error) {
			c.log.Warn("OpenAI request retrying", "attempt", attempt, "max_retries", c.maxRetries, "sleep", sleep.String(), "error", err.Error())
		},
	}
	err = httpx.Retry(ctx, policy, func(ctx context.Context) (*http.Response, error) {
		r, err := c.open(ctx, body)
		if err != nil {
			return r, err
		}
		resp = r
		return r, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	err = ssestream.Read(resp.Body, func(event string, data string) error {
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			return nil
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			return nil
		}
		evt := strings.TrimSpace(event)
		if t, ok := obj["type"].(string); ok && strings.TrimSpace(t) != "" {
			evt = strings.TrimSpace(t)
		}
		if r, ok := obj["refusal"].(string); ok && strings.TrimSpace(r) != "" {
			return fmt.Errorf("model refused: %s", r)
		}
		if eAny, ok := obj["error"]; ok && eAny != nil {
			b, _ := json.Marshal(eAny)
			return fmt.Errorf("openai stream error: %s", string(b))
		}
		if d, ok := obj["delta"].(string); ok && d != "" && strings.Contains(evt, "output_text.delta") {
			full.WriteString(d)
			if onDelta != nil {
				onDelta(d)
			}
		}
		return nil
	})
	if err != nil {
		return full.String(), err
	}
	if strings.TrimSpace(full.String()) == "" {
		return "", llm.ErrEmptyReply
	}
	return full.String(), nil
}

func (c *Client) open(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return resp, &httpx.StatusError{Service: "openai", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}
