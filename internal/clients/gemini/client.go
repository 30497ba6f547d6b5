// Package gemini streams chat replies from the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/dudesk/dudesk-chat/internal/clients/llm"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

type streamFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

type Client struct {
	log          *logger.Logger
	defaultModel string
	stream       streamFunc
}

type Config struct {
	APIKey string
	// Model is used when a request does not name one.
	Model string
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newClient(log, cfg.Model, gc.Models.GenerateContentStream), nil
}

func newClient(log *logger.Logger, model string, stream streamFunc) *Client {
	return &Client{
		log:          log.With("service", "GeminiClient"),
		defaultModel: strings.TrimSpace(model),
		stream:       stream,
	}
}

func (c *Client) StreamChat(ctx context.Context, req llm.ChatRequest, onDelta func(string)) (string, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return "", fmt.Errorf("gemini: model required")
	}
	contents := BuildContents(req)
	if len(contents) == 0 {
		return "", fmt.Errorf("gemini: empty conversation")
	}
	var cfg *genai.GenerateContentConfig
	if sys := strings.TrimSpace(req.System); sys != "" {
		cfg = &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(sys, genai.RoleUser)}
	}

	var full strings.Builder
	for resp, err := range c.stream(ctx, model, contents, cfg) {
		if err != nil {
			return full.String(), fmt.Errorf("gemini stream: %w", err)
		}
		if resp == nil {
			continue
		}
		d := resp.Text()
		if d == "" {
			continue
		}
		full.WriteString(d)
		if onDelta != nil {
			onDelta(d)
		}
	}
	if err := ctx.Err(); err != nil {
		return full.String(), err
	}
	if strings.TrimSpace(full.String()) == "" {
		return "", llm.ErrEmptyReply
	}
	return full.String(), nil
}

// BuildContents puts the reference files in a leading user turn followed by
// the history. Adjacent turns with the same role share one content since
// the API expects roles to alternate.
func BuildContents(req llm.ChatRequest) []*genai.Content {
	var contents []*genai.Content
	add := func(role genai.Role, parts ...*genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(contents); n > 0 && contents[n-1].Role == string(role) {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			return
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}

	files := make([]*genai.Part, 0, len(req.References))
	for _, ref := range req.References {
		mime := ref.MimeType
		if mime == "" {
			mime = "text/csv"
		}
		switch {
		case len(ref.Data) > 0:
			files = append(files, genai.NewPartFromBytes(ref.Data, mime))
		case ref.URI != "":
			files = append(files, genai.NewPartFromURI(ref.URI, mime))
		}
	}
	add(genai.RoleUser, files...)

	for _, t := range req.Turns {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if t.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		add(role, genai.NewPartFromText(t.Text))
	}
	return contents
}
