package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
)

func TestTranscriptPrefixesWelcome(t *testing.T) {
	r := New(Options{Strict: true})
	out := r.Transcript(chat.Transcript{
		chat.WelcomeMessage(),
		{ID: "u1", Role: chat.RoleUser, Content: "hi"},
	})
	require.Len(t, out, 2)
	assert.True(t, strings.HasPrefix(out[0].HTML, "Hello. Welcome to DU Desk AI Chat Assistant!"), out[0].HTML)
	assert.Equal(t, "Hello. "+chat.WelcomeText, out[0].Content)
	assert.Equal(t, "hi", out[1].HTML)
}

func TestUserContentIsEscaped(t *testing.T) {
	r := New(Options{Strict: true})
	got := r.Message(chat.Message{ID: "u", Role: chat.RoleUser, Content: `<script>alert(1)</script> **hi**`})
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt; **hi**", got.HTML)
}

func TestStrictPolicyKeepsSanitizerMarkup(t *testing.T) {
	r := New(Options{Strict: true})
	got := r.Message(chat.Message{ID: "a", Role: chat.RoleAssistant, Content: "See [DU Desk](https://dudesk.in)\n* B.Com\n* BA"})
	assert.Contains(t, got.HTML, `href="https://dudesk.in"`)
	assert.Contains(t, got.HTML, `class="list-decimal pl-5"`)
	assert.Contains(t, got.HTML, "<li>1. B.Com</li>")
	assert.Contains(t, got.HTML, "<br/>")
}

func TestStrictPolicyDropsForeignMarkup(t *testing.T) {
	r := New(Options{Strict: true})
	got := r.Message(chat.Message{ID: "a", Role: chat.RoleAssistant, Content: `<img src=x onerror=alert(1)>ok<script>bad()</script>`})
	assert.NotContains(t, got.HTML, "<img")
	assert.NotContains(t, got.HTML, "<script")
	assert.Contains(t, got.HTML, "ok")
}

func TestTrustingModePassesMarkupThrough(t *testing.T) {
	r := New(Options{Strict: false})
	got := r.Message(chat.Message{ID: "a", Role: chat.RoleAssistant, Content: "<b>x</b>"})
	assert.Equal(t, "<b>x</b>", got.HTML)
}

func TestPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"breaks", "one<br />two", "one\ntwo"},
		{"entities", "a &amp; b", "a & b"},
		{"link keeps target", `<a href="https://dudesk.in" class="x">DU Desk</a>`, "DU Desk (https://dudesk.in)"},
		{"bare link", `<a href="https://dudesk.in">https://dudesk.in</a>`, "https://dudesk.in"},
		{"list", `Courses:<ol class="list-decimal pl-5"><li>1. B.Com</li><li>2. BA</li></ol>`, "Courses:\n\n  1. B.Com\n  2. BA"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PlainText(tc.in))
		})
	}
}
