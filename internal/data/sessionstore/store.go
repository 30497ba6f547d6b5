// Package sessionstore keeps live chat sessions for their idle TTL.
package sessionstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
)

// UpdateFunc derives the next session. Returning an error aborts the
// update and nothing is written.
type UpdateFunc func(cur chat.Session) (chat.Session, error)

// Store serializes writes per session. Missing sessions are reported as
// pkg/errors.ErrNotFound.
type Store interface {
	Create(ctx context.Context, s chat.Session) error
	// Get reads a session and extends its idle TTL.
	Get(ctx context.Context, id uuid.UUID) (chat.Session, error)
	// Peek reads a session without touching its TTL. Background readers
	// use it so they never keep an abandoned session alive.
	Peek(ctx context.Context, id uuid.UUID) (chat.Session, error)
	// Update returns the written session, or the current one with fn's error.
	Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (chat.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}
