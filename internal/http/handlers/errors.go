package handlers

import (
	"errors"
	"net/http"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	pkgerrors "github.com/dudesk/dudesk-chat/internal/pkg/errors"
	"github.com/dudesk/dudesk-chat/internal/platform/apierr"
	"github.com/dudesk/dudesk-chat/internal/services"
)

// actionError maps a rejected action to the error envelope. Silent no-ops
// are handled before this is called.
func actionError(err error) *apierr.Error {
	switch {
	case errors.Is(err, chat.ErrUnknownOption):
		return apierr.New(http.StatusBadRequest, "unknown_option", err)
	case errors.Is(err, chat.ErrEmptyMessage):
		return apierr.New(http.StatusBadRequest, "empty_message", chat.ErrEmptyMessage)
	case errors.Is(err, chat.ErrReplyPending):
		return apierr.New(http.StatusConflict, "reply_pending", chat.ErrReplyPending)
	case errors.Is(err, pkgerrors.ErrNotFound):
		return apierr.New(http.StatusNotFound, "session_not_found", errors.New("session not found or expired"))
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("invalid session"))
	case errors.Is(err, services.ErrReplyUnavailable):
		return apierr.New(http.StatusServiceUnavailable, "provider_unavailable", services.ErrReplyUnavailable)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}
