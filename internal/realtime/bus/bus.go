// Package bus fans hub messages out across instances.
package bus

import (
	"context"

	"github.com/dudesk/dudesk-chat/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
