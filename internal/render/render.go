// Package render prepares transcript messages for display.
package render

import (
	"html"
	"regexp"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/sanitize"
)

// Rendered is a message ready for a client. HTML is safe to inject.
type Rendered struct {
	ID      string    `json:"id"`
	Role    chat.Role `json:"role"`
	Content string    `json:"content"`
	HTML    string    `json:"html"`
}

type Renderer struct {
	sanitizer *sanitize.Sanitizer
	policy    *bluemonday.Policy
}

type Options struct {
	Sanitizer *sanitize.Sanitizer
	// Strict applies the markup allow-list to sanitized assistant output.
	// With Strict off the sanitizer output is trusted as is.
	Strict bool
}

func New(opts Options) *Renderer {
	r := &Renderer{sanitizer: opts.Sanitizer}
	if r.sanitizer == nil {
		r.sanitizer = sanitize.New()
	}
	if opts.Strict {
		r.policy = MarkupPolicy()
	}
	return r
}

var classRE = regexp.MustCompile(`^[a-z0-9: \-]+$`)

// MarkupPolicy allows exactly the markup the sanitizer produces.
func MarkupPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("br", "ol", "li")
	p.AllowAttrs("class").Matching(classRE).OnElements("ol", "a")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowAttrs("rel").Matching(regexp.MustCompile(`^[a-z ]+$`)).OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	return p
}

// Message renders one message. Assistant content is sanitized; user content
// is escaped and never interpreted as markup.
func (r *Renderer) Message(m chat.Message) Rendered {
	out := Rendered{ID: m.ID, Role: m.Role, Content: m.Content}
	if m.Role != chat.RoleAssistant {
		out.HTML = html.EscapeString(m.Content)
		return out
	}
	markup := r.sanitizer.Sanitize(m.Content)
	if r.policy != nil {
		markup = r.policy.Sanitize(markup)
	}
	out.HTML = markup
	return out
}

// Transcript renders every message in order. The opening assistant message
// gets the greeting prefix.
func (r *Renderer) Transcript(t chat.Transcript) []Rendered {
	out := make([]Rendered, 0, len(t))
	for i, m := range t {
		if i == 0 && m.Role == chat.RoleAssistant {
			m.Content = chat.WelcomePrefix + m.Content
		}
		out = append(out, r.Message(m))
	}
	return out
}
