package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dudesk/dudesk-chat/internal/clients/llm"
	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

const maxProxyTurns = 200

// ChatProxy answers a client-held history without any server-side session.
type ChatProxy struct {
	log      *logger.Logger
	streamer llm.Streamer
	builder  *RequestBuilder
}

func NewChatProxy(log *logger.Logger, streamer llm.Streamer, builder *RequestBuilder) *ChatProxy {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatProxy{log: log.With("service", "ChatProxy"), streamer: streamer, builder: builder}
}

// NormalizeTurns validates roles and drops blank turns.
func NormalizeTurns(in []llm.Turn) ([]llm.Turn, error) {
	if len(in) > maxProxyTurns {
		return nil, fmt.Errorf("too many messages (max %d)", maxProxyTurns)
	}
	out := make([]llm.Turn, 0, len(in))
	for i, t := range in {
		role := llm.Role(strings.ToLower(strings.TrimSpace(string(t.Role))))
		if role != llm.RoleUser && role != llm.RoleAssistant {
			return nil, fmt.Errorf("message %d: unknown role %q", i, t.Role)
		}
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		out = append(out, llm.Turn{Role: role, Text: t.Text})
	}
	if !hasUserTurn(out) {
		return nil, chat.ErrEmptyMessage
	}
	return out, nil
}

// Available reports whether a model provider is configured.
func (p *ChatProxy) Available() bool {
	return p != nil && p.streamer != nil && p.builder != nil
}

func (p *ChatProxy) Stream(ctx context.Context, turns []llm.Turn, onDelta func(string)) (string, error) {
	if !p.Available() {
		return "", ErrReplyUnavailable
	}
	turns, err := NormalizeTurns(turns)
	if err != nil {
		return "", err
	}
	req, err := p.builder.FromTurns(ctx, turns)
	if err != nil {
		return "", err
	}
	return p.streamer.StreamChat(ctx, req, onDelta)
}
