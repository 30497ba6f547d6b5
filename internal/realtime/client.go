package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

const outboundBuffer = 64

type SSEClient struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Channels  map[string]bool
	Outbound  chan SSEMessage
	done      chan struct{}
	closeOnce sync.Once
	Logger    *logger.Logger
}

// Done is closed when the hub drops the client.
func (c *SSEClient) Done() <-chan struct{} { return c.done }
