package realtime

import (
	"context"

	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

// Publisher delivers messages to subscribers of a channel.
type Publisher interface {
	Publish(ctx context.Context, msg SSEMessage)
}

// RemotePublisher is the publishing half of a cross-instance bus.
type RemotePublisher interface {
	Publish(ctx context.Context, msg SSEMessage) error
}

type hubPublisher struct {
	hub    *SSEHub
	remote RemotePublisher
	log    *logger.Logger
}

// NewPublisher broadcasts on hub directly, or through remote when set. With
// a remote bus the local hub is fed by the bus forwarder, so messages are
// not broadcast twice.
func NewPublisher(log *logger.Logger, hub *SSEHub, remote RemotePublisher) Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &hubPublisher{hub: hub, remote: remote, log: log.With("component", "SSEPublisher")}
}

func (p *hubPublisher) Publish(ctx context.Context, msg SSEMessage) {
	if p.remote != nil {
		err := p.remote.Publish(ctx, msg)
		if err == nil {
			return
		}
		p.log.Warn("bus publish failed; delivering locally", "event", msg.Event, "error", err)
	}
	if p.hub != nil {
		p.hub.Broadcast(msg)
	}
}
