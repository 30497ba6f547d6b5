package chat

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func envAt(d time.Duration, ids func() string) Env {
	return Env{Now: t0.Add(d), NewID: ids}
}

func mustReduce(t *testing.T, s Session, a Action, env Env) (Session, []Effect) {
	t.Helper()
	next, effects, err := Reduce(s, a, env)
	require.NoError(t, err, "action %s", ActionName(a))
	return next, effects
}

func TestNewSessionSeedsWelcome(t *testing.T) {
	s := NewSession(uuid.New(), t0)
	require.Len(t, s.Transcript, 1)
	assert.Equal(t, RoleAssistant, s.Transcript[0].Role)
	assert.Equal(t, WelcomeMessageID, s.Transcript[0].ID)
	assert.Equal(t, StepInitial, s.Step)
	assert.True(t, s.ShowOptions)
	assert.Equal(t, "00:00", s.ElapsedText(t0))
}

func TestOptionTransitions(t *testing.T) {
	cases := []struct {
		name     string
		path     []Action
		wantUser string
		wantBot  string
		wantStep Step
	}{
		{
			name:     "check eligibility",
			path:     []Action{SelectOption{Name: OptionCheckEligibility}},
			wantUser: "Check Eligibility",
			wantBot:  "From which board have you attempted your 12th exam?",
			wantStep: StepEligibilityBoard,
		},
		{
			name:     "explore colleges",
			path:     []Action{SelectOption{Name: OptionExploreColleges}},
			wantUser: "Explore Colleges",
			wantBot:  "Enter the courses to find the colleges that offer them.",
			wantStep: StepExploreColleges,
		},
		{
			name:     "cbse",
			path:     []Action{SelectOption{Name: OptionCheckEligibility}, SelectBoard{Name: BoardCBSE}},
			wantUser: "CBSE",
			wantBot:  "How many subjects did you study in Class 12? (5 or 6)",
			wantStep: StepEligibilitySubjects,
		},
		{
			name:     "icse",
			path:     []Action{SelectOption{Name: OptionCheckEligibility}, SelectBoard{Name: BoardICSE}},
			wantUser: "ICSE",
			wantBot:  "How many subjects did you study in Class 12? (5 or 6)",
			wantStep: StepEligibilitySubjects,
		},
		{
			name:     "state board",
			path:     []Action{SelectOption{Name: OptionCheckEligibility}, SelectBoard{Name: BoardState}},
			wantUser: "State Board",
			wantBot:  "Which state board do you belong to? Please specify your state board (e.g., Maharashtra State Board, Tamil Nadu State Board, etc.).",
			wantStep: StepStateBoardInquiry,
		},
		{
			name:     "six subjects",
			path:     []Action{SelectOption{Name: OptionCheckEligibility}, SelectBoard{Name: BoardCBSE}, SelectSubjectCount{Count: 6}},
			wantUser: "6",
			wantBot:  "Please enter the subjects you studied in Class 12.",
			wantStep: StepEligibilityCourses,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ids := seqIDs()
			s := NewSession(uuid.New(), t0)
			for i, a := range tc.path {
				before := len(s.Transcript)
				var effects []Effect
				s, effects = mustReduce(t, s, a, envAt(time.Duration(i)*time.Second, ids))
				require.Len(t, s.Transcript, before+2, "each option appends a pair")
				for _, e := range effects {
					_, isReq := e.(RequestReply)
					require.False(t, isReq, "option selections never call the model")
				}
			}
			n := len(s.Transcript)
			user, bot := s.Transcript[n-2], s.Transcript[n-1]
			assert.Equal(t, RoleUser, user.Role)
			assert.Equal(t, tc.wantUser, user.Content)
			assert.Equal(t, RoleAssistant, bot.Role)
			assert.Equal(t, tc.wantBot, bot.Content)
			assert.Equal(t, user.ID+"-response", bot.ID)
			assert.Equal(t, tc.wantStep, s.Step)
			assert.False(t, s.ShowOptions)
		})
	}
}

func TestOptionsOnlyWhileOffered(t *testing.T) {
	s := NewSession(uuid.New(), t0)

	_, _, err := Reduce(s, SelectBoard{Name: BoardCBSE}, Env{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = Reduce(s, SelectSubjectCount{Count: 5}, Env{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = Reduce(s, SelectOption{Name: "Apply Now"}, Env{})
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, _, err = Reduce(s, SelectSubjectCount{Count: 7}, Env{})
	assert.ErrorIs(t, err, ErrUnknownOption)

	s, _ = mustReduce(t, s, SelectOption{Name: OptionExploreColleges}, Env{})
	next, effects, err := Reduce(s, SelectOption{Name: OptionCheckEligibility}, Env{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Nil(t, effects)
	assert.Equal(t, s, next)
	assert.True(t, IsNoop(err))
}

func TestInitialOptionsHiddenAfterFreeText(t *testing.T) {
	s := NewSession(uuid.New(), t0)
	require.NotNil(t, s.Offered())
	s, _ = mustReduce(t, s, SubmitFreeText{Text: "hi"}, Env{})
	assert.Nil(t, s.Offered())
	_, _, err := Reduce(s, SelectOption{Name: OptionCheckEligibility}, Env{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScriptedOptionsNotBlockedByPendingReply(t *testing.T) {
	s := NewSession(uuid.New(), t0)
	s, _ = mustReduce(t, s, SelectOption{Name: OptionCheckEligibility}, Env{})
	s, _ = mustReduce(t, s, SubmitFreeText{Text: "what about CBSE?"}, Env{})
	require.True(t, s.ReplyPending())
	s, _ = mustReduce(t, s, SelectBoard{Name: BoardCBSE}, Env{})
	assert.Equal(t, StepEligibilitySubjects, s.Step)
	assert.True(t, s.ReplyPending())
}

func TestFreeTextRequestsReply(t *testing.T) {
	s := NewSession(uuid.New(), t0)
	s, effects := mustReduce(t, s, SubmitFreeText{Text: "  Physics, Chemistry  "}, Env{NewID: func() string { return "req-1" }})

	last, _ := s.Transcript.Last()
	assert.Equal(t, Message{ID: "req-1", Role: RoleUser, Content: "Physics, Chemistry"}, last)
	assert.Equal(t, StepInitial, s.Step)
	require.Len(t, effects, 1)
	req, ok := effects[0].(RequestReply)
	require.True(t, ok)
	assert.Equal(t, "req-1", req.RequestID)
	assert.Equal(t, s.Transcript, req.History)

	_, _, err := Reduce(s, SubmitFreeText{Text: "again"}, Env{})
	assert.ErrorIs(t, err, ErrReplyPending)

	_, _, err = Reduce(s, ReceiveReply{RequestID: "other", Content: "x"}, Env{})
	assert.ErrorIs(t, err, ErrStaleReply)

	s, _ = mustReduce(t, s, ReceiveReply{RequestID: "req-1", Content: "Good day"}, Env{})
	last, _ = s.Transcript.Last()
	assert.Equal(t, Message{ID: "req-1-reply", Role: RoleAssistant, Content: "Good day"}, last)
	assert.False(t, s.ReplyPending())
}

func TestEmptyFreeTextRejected(t *testing.T) {
	s := NewSession(uuid.New(), t0)
	next, effects, err := Reduce(s, SubmitFreeText{Text: " \n\t"}, Env{})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Nil(t, effects)
	assert.Equal(t, s, next)
}

func TestReplyFailedClearsPending(t *testing.T) {
	s := NewSession(uuid.New(), t0)
	s, _ = mustReduce(t, s, SubmitFreeText{Text: "q"}, Env{NewID: func() string { return "r" }})
	before := len(s.Transcript)
	s, _ = mustReduce(t, s, ReplyFailed{RequestID: "r", Err: errors.New("network")}, Env{})
	assert.False(t, s.ReplyPending())
	assert.Len(t, s.Transcript, before)

	s, _ = mustReduce(t, s, SubmitFreeText{Text: "retry"}, Env{})
	assert.True(t, s.ReplyPending())
}

func TestEndChat(t *testing.T) {
	s := NewSession(uuid.New(), t0)
	s, _ = mustReduce(t, s, SubmitFreeText{Text: "q"}, envAt(time.Second, func() string { return "r" }))
	s, effects := mustReduce(t, s, EndChat{}, envAt(125*time.Second, nil))

	require.True(t, s.Ended)
	last, _ := s.Transcript.Last()
	assert.Equal(t, EndMessageID, last.ID)
	assert.Equal(t, "Thank you for using DU Desk AI Chat Assistant! Your chat duration was 02:05. Go Back to the Home Page https://dudesk.in", last.Content)
	assert.Nil(t, s.Pending)

	require.Len(t, effects, 3)
	assert.Equal(t, StopTimer{}, effects[0])
	assert.Equal(t, CancelReply{RequestID: "r"}, effects[1])
	arch, ok := effects[2].(ArchiveTranscript)
	require.True(t, ok)
	assert.Equal(t, 125*time.Second, arch.Duration)
	assert.Equal(t, s.Transcript, arch.Transcript)

	// elapsed stays frozen
	assert.Equal(t, "02:05", s.ElapsedText(t0.Add(time.Hour)))
}

func TestActionsAfterEndAreNoops(t *testing.T) {
	s := NewSession(uuid.New(), t0)
	s, _ = mustReduce(t, s, SelectOption{Name: OptionCheckEligibility}, Env{})
	s, _ = mustReduce(t, s, EndChat{}, Env{Now: t0})

	for _, a := range []Action{
		SelectOption{Name: OptionCheckEligibility},
		SelectBoard{Name: BoardCBSE},
		SelectSubjectCount{Count: 5},
		SubmitFreeText{Text: "hello"},
		EndChat{},
	} {
		next, effects, err := Reduce(s, a, Env{})
		assert.ErrorIs(t, err, ErrChatEnded, ActionName(a))
		assert.Nil(t, effects)
		assert.Equal(t, s.Transcript, next.Transcript)
		assert.Equal(t, s.Step, next.Step)
	}
}

func TestResetChat(t *testing.T) {
	id := uuid.New()
	s := NewSession(id, t0)
	s, _ = mustReduce(t, s, SelectOption{Name: OptionCheckEligibility}, Env{})
	s, _ = mustReduce(t, s, SubmitFreeText{Text: "q"}, Env{NewID: func() string { return "r" }})
	s, _ = mustReduce(t, s, EndChat{}, envAt(30*time.Second, nil))

	reset := t0.Add(40 * time.Second)
	s, effects := mustReduce(t, s, ResetChat{}, Env{Now: reset})

	assert.Equal(t, id, s.ID)
	assert.Equal(t, Transcript{WelcomeMessage()}, s.Transcript)
	assert.Equal(t, StepInitial, s.Step)
	assert.Equal(t, "00:00", s.ElapsedText(reset))
	assert.False(t, s.Ended)
	assert.True(t, s.ShowOptions)
	assert.Equal(t, 1, s.Epoch)
	assert.Equal(t, []Effect{StopTimer{}, StartTimer{Epoch: 1}}, effects)
}

func TestResetCancelsPendingAndDropsLateReply(t *testing.T) {
	s := NewSession(uuid.New(), t0)
	s, _ = mustReduce(t, s, SubmitFreeText{Text: "q"}, Env{NewID: func() string { return "r" }})
	s, effects := mustReduce(t, s, ResetChat{}, Env{})
	require.Equal(t, CancelReply{RequestID: "r"}, effects[0])

	next, _, err := Reduce(s, ReceiveReply{RequestID: "r", Content: "late"}, Env{})
	assert.ErrorIs(t, err, ErrStaleReply)
	assert.Equal(t, Transcript{WelcomeMessage()}, next.Transcript)
}

func TestFirstMessageIsAlwaysAssistant(t *testing.T) {
	ids := seqIDs()
	s := NewSession(uuid.New(), t0)
	steps := []Action{
		SubmitFreeText{Text: "a"},
		ReceiveReply{RequestID: "id-1", Content: "b"},
		ResetChat{},
		SelectOption{Name: OptionCheckEligibility},
		EndChat{},
		ResetChat{},
	}
	for _, a := range steps {
		var err error
		s, _, err = Reduce(s, a, Env{NewID: ids})
		require.NoError(t, err, ActionName(a))
		require.NotEmpty(t, s.Transcript)
		require.Equal(t, RoleAssistant, s.Transcript[0].Role)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := NewSession(uuid.New(), t0)
	orig := s.Clone()
	_, _ = mustReduce(t, s, SelectOption{Name: OptionCheckEligibility}, Env{})
	assert.Equal(t, orig, s)
}
