package services

import (
	"context"
	"fmt"

	"github.com/dudesk/dudesk-chat/internal/data/repos/archive"
	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/observability"
	"github.com/dudesk/dudesk-chat/internal/pkg/dbctx"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

// Archiver records ended chats. Failures never reach the chat.
type Archiver interface {
	Archive(ctx context.Context, e chat.ArchiveTranscript) error
}

type repoArchiver struct {
	repo    archive.ChatArchiveRepo
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewArchiver(repo archive.ChatArchiveRepo, log *logger.Logger) Archiver {
	if log == nil {
		log = logger.Nop()
	}
	return &repoArchiver{repo: repo, log: log.With("service", "Archiver"), metrics: observability.Current()}
}

func (a *repoArchiver) Archive(ctx context.Context, e chat.ArchiveTranscript) error {
	row, err := chat.NewArchive(e)
	if err != nil {
		a.metrics.IncArchiveWrite("error")
		return fmt.Errorf("build archive row: %w", err)
	}
	if err := a.repo.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		a.metrics.IncArchiveWrite("error")
		return fmt.Errorf("write archive: %w", err)
	}
	a.metrics.IncArchiveWrite("ok")
	a.log.Info("Chat archived", "session_id", e.SessionID, "messages", row.MessageCount, "duration_seconds", row.DurationSeconds)
	return nil
}
