package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dudesk/dudesk-chat/internal/clients/llm"
	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/prompt"
)

// FileMode selects how reference files reach the provider.
type FileMode string

const (
	FileModeInline FileMode = "inline"
	FileModeURI    FileMode = "uri"
)

func ParseFileMode(s string) (FileMode, error) {
	switch FileMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FileModeInline:
		return FileModeInline, nil
	case FileModeURI:
		return FileModeURI, nil
	default:
		return "", fmt.Errorf("unknown file mode %q", s)
	}
}

// ReferenceSource returns the bytes of a reference file.
type ReferenceSource interface {
	Fetch(ctx context.Context, ref prompt.FileRef) ([]byte, error)
}

// RequestBuilder turns chat history into a provider request carrying the
// system instruction and reference files.
type RequestBuilder struct {
	log     *logger.Logger
	doc     *prompt.Document
	source  ReferenceSource
	mode    FileMode
	system  string
	modelID string
}

func NewRequestBuilder(log *logger.Logger, doc *prompt.Document, source ReferenceSource, mode FileMode, modelOverride string) (*RequestBuilder, error) {
	if doc == nil {
		return nil, fmt.Errorf("prompt document required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if mode == FileModeInline && source == nil {
		return nil, fmt.Errorf("inline file mode needs a reference source")
	}
	model := strings.TrimSpace(modelOverride)
	if model == "" {
		model = doc.Model
	}
	return &RequestBuilder{
		log:     log.With("service", "RequestBuilder"),
		doc:     doc,
		source:  source,
		mode:    mode,
		system:  doc.SystemInstruction(),
		modelID: model,
	}, nil
}

func (b *RequestBuilder) Model() string { return b.modelID }

func (b *RequestBuilder) FromTranscript(ctx context.Context, history chat.Transcript) (llm.ChatRequest, error) {
	return b.FromTurns(ctx, llm.TurnsFromTranscript(history))
}

func (b *RequestBuilder) FromTurns(ctx context.Context, turns []llm.Turn) (llm.ChatRequest, error) {
	if !hasUserTurn(turns) {
		return llm.ChatRequest{}, chat.ErrEmptyMessage
	}
	refs, err := b.references(ctx)
	if err != nil {
		return llm.ChatRequest{}, err
	}
	return llm.ChatRequest{
		Model:      b.modelID,
		System:     b.system,
		References: refs,
		Turns:      turns,
	}, nil
}

// In inline mode a file that cannot be downloaded is passed by URI so the
// reply still goes out.
func (b *RequestBuilder) references(ctx context.Context) ([]llm.Reference, error) {
	out := make([]llm.Reference, 0, len(b.doc.Files))
	for _, f := range b.doc.Files {
		ref := llm.Reference{Name: f.Name, URI: f.URI, MimeType: f.MimeType}
		if b.mode == FileModeInline {
			data, err := b.source.Fetch(ctx, f)
			switch {
			case err == nil:
				ref.Data = data
			case ctx.Err() != nil:
				return nil, ctx.Err()
			default:
				b.log.Warn("Reference download failed; passing URI", "name", f.Name, "error", err)
			}
		}
		out = append(out, ref)
	}
	return out, nil
}

func hasUserTurn(turns []llm.Turn) bool {
	for _, t := range turns {
		if t.Role == llm.RoleUser && strings.TrimSpace(t.Text) != "" {
			return true
		}
	}
	return false
}
