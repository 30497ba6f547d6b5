package gemini

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dudesk/dudesk-chat/internal/clients/llm"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

func chunk(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
	}
}

type recorded struct {
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

func fakeStream(rec *recorded, chunks []string, failAfter error) streamFunc {
	return func(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
		rec.model, rec.contents, rec.cfg = model, contents, cfg
		return func(yield func(*genai.GenerateContentResponse, error) bool) {
			for _, c := range chunks {
				if !yield(chunk(c), nil) {
					return
				}
			}
			if failAfter != nil {
				yield(nil, failAfter)
			}
		}
	}
}

func TestStreamChatForwardsDeltas(t *testing.T) {
	rec := &recorded{}
	c := newClient(logger.Nop(), "gemini-1.5-pro-latest", fakeStream(rec, []string{"Good ", "day"}, nil))

	var deltas []string
	full, err := c.StreamChat(context.Background(), llm.ChatRequest{
		System: "be brief",
		References: []llm.Reference{
			{Name: "cuet_data.csv", MimeType: "text/csv", Data: []byte("a,b")},
			{Name: "links.csv", URI: "https://example.com/links.csv"},
		},
		Turns: []llm.Turn{
			{Role: llm.RoleAssistant, Text: "Welcome"},
			{Role: llm.RoleUser, Text: "CBSE?"},
		},
	}, func(d string) { deltas = append(deltas, d) })

	require.NoError(t, err)
	assert.Equal(t, "Good day", full)
	assert.Equal(t, []string{"Good ", "day"}, deltas)
	assert.Equal(t, "gemini-1.5-pro-latest", rec.model)
	require.NotNil(t, rec.cfg)
	assert.Equal(t, "be brief", rec.cfg.SystemInstruction.Parts[0].Text)

	require.Len(t, rec.contents, 3)
	files := rec.contents[0]
	assert.Equal(t, genai.RoleUser, files.Role)
	require.Len(t, files.Parts, 2)
	assert.Equal(t, []byte("a,b"), files.Parts[0].InlineData.Data)
	assert.Equal(t, "https://example.com/links.csv", files.Parts[1].FileData.FileURI)
	assert.Equal(t, "text/csv", files.Parts[1].FileData.MIMEType)
	assert.Equal(t, genai.RoleModel, rec.contents[1].Role)
	assert.Equal(t, genai.RoleUser, rec.contents[2].Role)
}

func TestBuildContentsMergesAdjacentRoles(t *testing.T) {
	contents := BuildContents(llm.ChatRequest{
		References: []llm.Reference{{Name: "a", Data: []byte("x")}},
		Turns: []llm.Turn{
			{Role: llm.RoleUser, Text: "first"},
			{Role: llm.RoleUser, Text: "second"},
			{Role: llm.RoleAssistant, Text: ""},
		},
	})
	require.Len(t, contents, 1)
	assert.Len(t, contents[0].Parts, 3)
}

func TestStreamChatErrors(t *testing.T) {
	boom := errors.New("quota")
	rec := &recorded{}
	c := newClient(logger.Nop(), "m", fakeStream(rec, []string{"par"}, boom))
	full, err := c.StreamChat(context.Background(), llm.ChatRequest{Turns: []llm.Turn{{Role: llm.RoleUser, Text: "q"}}}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "par", full)

	empty := newClient(logger.Nop(), "m", fakeStream(rec, nil, nil))
	_, err = empty.StreamChat(context.Background(), llm.ChatRequest{Turns: []llm.Turn{{Role: llm.RoleUser, Text: "q"}}}, nil)
	assert.ErrorIs(t, err, llm.ErrEmptyReply)

	_, err = empty.StreamChat(context.Background(), llm.ChatRequest{}, nil)
	assert.Error(t, err)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), logger.Nop(), Config{})
	assert.Error(t, err)
}
