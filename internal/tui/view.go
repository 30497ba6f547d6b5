package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/render"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#2563EB")).Padding(0, 1)
	elapsedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	assistantLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563EB"))
	userLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#16A34A"))
	optionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#1E40AF")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#93C5FD")).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	footerStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
)

// chrome is the number of lines around the viewport: title, options,
// status, input and help.
const chrome = 9

func (m *Model) resize() {
	m.viewport.Width = m.width
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	m.viewport.Height = h
	m.input.Width = m.width - 4
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *Model) refresh() {
	m.viewport.SetContent(m.transcriptText())
	m.viewport.GotoBottom()
}

func (m Model) transcriptText() string {
	var b strings.Builder
	wrap := lipgloss.NewStyle().Width(max(20, m.width-2))
	for _, r := range m.renderer.Transcript(m.session.Transcript) {
		b.WriteString(label(r.Role))
		b.WriteString("\n")
		b.WriteString(wrap.Render(messageText(r)))
		b.WriteString("\n\n")
	}
	if m.session.ReplyPending() {
		b.WriteString(label(chat.RoleAssistant))
		b.WriteString("\n")
		if m.streaming == "" {
			b.WriteString(m.spinner.View() + " thinking...")
		} else {
			partial := m.renderer.Message(chat.Message{Role: chat.RoleAssistant, Content: m.streaming})
			b.WriteString(wrap.Render(render.PlainText(partial.HTML)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func label(role chat.Role) string {
	if role == chat.RoleUser {
		return userLabel.Render("You")
	}
	return assistantLabel.Render("DU Desk")
}

func messageText(r render.Rendered) string {
	if r.Role == chat.RoleUser {
		return r.Content
	}
	return render.PlainText(r.HTML)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	title := titleStyle.Render("DU Desk AI Chat Assistant")
	elapsed := elapsedStyle.Render(m.session.ElapsedText(m.now()))
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(elapsed)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(title + strings.Repeat(" ", gap) + elapsed + "\n")
	b.WriteString(m.viewport.View() + "\n")

	if offer := m.session.Offered(); offer != nil {
		opts := make([]string, 0, len(offer.Choices))
		for i, c := range offer.Choices {
			opts = append(opts, optionStyle.Render(fmt.Sprintf("%d  %s", i+1, c)))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, opts...) + "\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	if m.session.HasUserMessage() {
		b.WriteString(footerStyle.Render(chat.FooterText) + "\n")
	}
	if m.session.Ended {
		b.WriteString(helpStyle.Render("  Chat ended.  ctrl+r: new chat  ctrl+c: quit"))
		return b.String()
	}
	b.WriteString(m.input.View() + "\n")
	b.WriteString(helpStyle.Render("  1-9: pick option  enter: send  ctrl+e: end chat  ctrl+r: reset  ctrl+c: quit"))
	return b.String()
}
