// Package apiclient talks to the chat server's stateless /api/chat stream.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dudesk/dudesk-chat/internal/clients/llm"
	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/http/response"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/pkg/ssestream"
	"github.com/dudesk/dudesk-chat/internal/platform/apierr"
	"github.com/dudesk/dudesk-chat/internal/realtime"
)

// ErrIncompleteStream means the server closed the stream before "done".
var ErrIncompleteStream = errors.New("reply stream ended early")

type Client struct {
	log     *logger.Logger
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. Streams are bounded by the caller's
// context, so hc should not carry a Timeout.
func New(log *logger.Logger, baseURL string, hc *http.Client) (*Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("server url required")
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{log: log.With("service", "APIClient"), baseURL: baseURL, http: hc}, nil
}

// Reply sends history to the server and streams the answer.
func (c *Client) Reply(ctx context.Context, history chat.Transcript, onDelta func(string)) (string, error) {
	return c.StreamChat(ctx, llm.TurnsFromTranscript(history), onDelta)
}

func (c *Client) StreamChat(ctx context.Context, turns []llm.Turn, onDelta func(string)) (string, error) {
	body, err := json.Marshal(map[string]any{"messages": turns})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	var (
		full     string
		done     bool
		streamed error
	)
	err = ssestream.Read(resp.Body, func(event, data string) error {
		switch realtime.SSEEvent(event) {
		case realtime.SSEEventDelta:
			var d struct {
				Delta string `json:"delta"`
			}
			if err := json.Unmarshal([]byte(data), &d); err != nil {
				return fmt.Errorf("decode delta: %w", err)
			}
			if onDelta != nil && d.Delta != "" {
				onDelta(d.Delta)
			}
		case realtime.SSEEventDone:
			var d struct {
				Content string `json:"content"`
			}
			if err := json.Unmarshal([]byte(data), &d); err != nil {
				return fmt.Errorf("decode done: %w", err)
			}
			full, done = d.Content, true
			return io.EOF
		case realtime.SSEEventError:
			var d struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal([]byte(data), &d)
			if d.Message = strings.TrimSpace(d.Message); d.Message == "" {
				d.Message = "reply failed"
			}
			streamed = errors.New(d.Message)
			return io.EOF
		}
		return nil
	})
	switch {
	case err != nil && !errors.Is(err, io.EOF):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("read chat stream: %w", err)
	case streamed != nil:
		return "", streamed
	case !done:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", ErrIncompleteStream
	}
	return full, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env response.ErrorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Message == "" {
		return apierr.New(resp.StatusCode, "http_error", fmt.Errorf("server returned %s", resp.Status))
	}
	return apierr.New(resp.StatusCode, env.Error.Code, errors.New(env.Error.Message))
}
