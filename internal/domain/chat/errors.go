package chat

import "errors"

var (
	// ErrChatEnded and ErrInvalidTransition are silent no-ops for the UI.
	ErrChatEnded         = errors.New("chat has ended")
	ErrInvalidTransition = errors.New("option not offered at this step")

	ErrUnknownOption = errors.New("unknown option")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrReplyPending  = errors.New("a reply is already pending")
	ErrStaleReply    = errors.New("reply does not match the pending request")
)

// IsNoop reports whether err should leave the UI untouched without
// surfacing anything to the user.
func IsNoop(err error) bool {
	return errors.Is(err, ErrChatEnded) || errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrStaleReply)
}
