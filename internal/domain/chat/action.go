package chat

// Action is a user intent or an asynchronous completion fed to Reduce.
type Action interface {
	actionName() string
}

type SelectOption struct{ Name string }

type SelectBoard struct{ Name string }

type SelectSubjectCount struct{ Count int }

type SubmitFreeText struct{ Text string }

type EndChat struct{}

type ResetChat struct{}

// ReceiveReply delivers the model's answer for RequestID.
type ReceiveReply struct {
	RequestID string
	Content   string
}

type ReplyFailed struct {
	RequestID string
	Err       error
}

func (SelectOption) actionName() string       { return "select_option" }
func (SelectBoard) actionName() string        { return "select_board" }
func (SelectSubjectCount) actionName() string { return "select_subject_count" }
func (SubmitFreeText) actionName() string     { return "submit_free_text" }
func (EndChat) actionName() string            { return "end_chat" }
func (ResetChat) actionName() string          { return "reset_chat" }
func (ReceiveReply) actionName() string       { return "receive_reply" }
func (ReplyFailed) actionName() string        { return "reply_failed" }

// ActionName is a stable label for logs and metrics.
func ActionName(a Action) string {
	if a == nil {
		return "unknown"
	}
	return a.actionName()
}
