// Package tui is a terminal front end for the guided chat. It runs the
// conversation reducer locally and asks a Replier for free-text answers.
package tui

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/render"
)

// Replier answers the transcript so far, streaming partial text to onDelta.
type Replier interface {
	Reply(ctx context.Context, history chat.Transcript, onDelta func(string)) (string, error)
}

var errNoReplier = errors.New("no reply service configured")

type Options struct {
	Renderer *render.Renderer
	// TickInterval defaults to one second.
	TickInterval time.Duration
	Now          func() time.Time
}

type tickMsg struct{ epoch int }

type replyDeltaMsg struct {
	ch        <-chan tea.Msg
	requestID string
	delta     string
}

type replyDoneMsg struct {
	requestID string
	content   string
	err       error
}

type Model struct {
	ctx      context.Context
	replier  Replier
	renderer *render.Renderer
	interval time.Duration
	now      func() time.Time

	session chat.Session

	// in-flight reply
	cancel    context.CancelFunc
	replyID   string
	streaming string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int
	status   string
	quitting bool
}

// NewModel starts a fresh session. Replies run under ctx.
func NewModel(ctx context.Context, replier Replier, opts Options) Model {
	if opts.Renderer == nil {
		opts.Renderer = render.New(render.Options{Strict: true})
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.CharLimit = 2000
	ti.Focus()

	m := Model{
		ctx:      ctx,
		replier:  replier,
		renderer: opts.Renderer,
		interval: opts.TickInterval,
		now:      opts.Now,
		session:  chat.NewSession(uuid.New(), opts.Now()),
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:    80,
		height:   30,
	}
	m.refresh()
	return m
}

// Session returns the current conversation state.
func (m Model) Session() chat.Session { return m.session }

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.tick(m.session.Epoch))
}

func (m Model) tick(epoch int) tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{epoch: epoch} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()
		return m, nil

	case tickMsg:
		// A tick from before a reset, or after the end, stops its chain.
		if msg.epoch != m.session.Epoch || m.session.Ended {
			return m, nil
		}
		return m, m.tick(msg.epoch)

	case replyDeltaMsg:
		if m.replyID == msg.requestID {
			m.streaming += msg.delta
			m.refresh()
		}
		return m, waitForReply(msg.ch)

	case replyDoneMsg:
		current := m.replyID == msg.requestID
		if current {
			m.clearReply()
		}
		var cmd tea.Cmd
		if msg.err != nil {
			if current {
				m.status = "The assistant could not answer. Please try again."
			}
			cmd = m.apply(chat.ReplyFailed{RequestID: msg.requestID, Err: msg.err})
		} else {
			cmd = m.apply(chat.ReceiveReply{RequestID: msg.requestID, Content: msg.content})
		}
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.clearReply()
		m.quitting = true
		return m, tea.Quit
	case "ctrl+e":
		return m, m.apply(chat.EndChat{})
	case "ctrl+r":
		m.status = ""
		return m, m.apply(chat.ResetChat{})
	case "enter":
		text := m.input.Value()
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		return m, m.apply(chat.SubmitFreeText{Text: text})
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	// Number keys pick an offered option while the input is empty.
	if m.input.Value() == "" {
		if a, ok := m.optionAction(msg.String()); ok {
			return m, m.apply(a)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) optionAction(key string) (chat.Action, bool) {
	offer := m.session.Offered()
	if offer == nil {
		return nil, false
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 1 || n > len(offer.Choices) {
		return nil, false
	}
	choice := offer.Choices[n-1]
	switch offer.Kind {
	case chat.OfferInitial:
		return chat.SelectOption{Name: choice}, true
	case chat.OfferBoard:
		return chat.SelectBoard{Name: choice}, true
	case chat.OfferSubjectCount:
		count, err := strconv.Atoi(choice)
		if err != nil {
			return nil, false
		}
		return chat.SelectSubjectCount{Count: count}, true
	}
	return nil, false
}

// apply runs a through the reducer and turns the effects into commands.
func (m *Model) apply(a chat.Action) tea.Cmd {
	next, effects, err := chat.Reduce(m.session, a, chat.Env{Now: m.now()})
	if err != nil {
		if !chat.IsNoop(err) {
			m.status = err.Error()
		}
		return nil
	}
	m.session = next
	var cmds []tea.Cmd
	for _, e := range effects {
		cmds = append(cmds, m.run(e))
	}
	m.refresh()
	return tea.Batch(cmds...)
}

func (m *Model) run(e chat.Effect) tea.Cmd {
	switch e := e.(type) {
	case chat.StartTimer:
		return m.tick(e.Epoch)
	case chat.RequestReply:
		m.status = ""
		return m.startReply(e)
	case chat.CancelReply:
		if m.replyID == e.RequestID {
			m.clearReply()
		}
	}
	// StopTimer is implied by the tick guard; nothing is archived locally.
	return nil
}

func (m *Model) startReply(req chat.RequestReply) tea.Cmd {
	m.clearReply()
	if m.replier == nil {
		id := req.RequestID
		return func() tea.Msg { return replyDoneMsg{requestID: id, err: errNoReplier} }
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.replyID = req.RequestID

	replier := m.replier
	ch := make(chan tea.Msg, 16)
	go func() {
		defer close(ch)
		send := func(msg tea.Msg) {
			select {
			case ch <- msg:
			case <-ctx.Done():
			}
		}
		full, err := replier.Reply(ctx, req.History, func(d string) {
			send(replyDeltaMsg{ch: ch, requestID: req.RequestID, delta: d})
		})
		send(replyDoneMsg{requestID: req.RequestID, content: full, err: err})
	}()
	return waitForReply(ch)
}

func waitForReply(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) clearReply() {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.replyID = ""
	m.streaming = ""
}
