package archive

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/pkg/dbctx"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

type ChatArchiveRepo interface {
	Create(dbc dbctx.Context, row *chat.ChatArchive) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*chat.ChatArchive, error)
	Count(dbc dbctx.Context) (int64, error)
}

type chatArchiveRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatArchiveRepo(db *gorm.DB, log *logger.Logger) ChatArchiveRepo {
	if log == nil {
		log = logger.Nop()
	}
	return &chatArchiveRepo{db: db, log: log.With("repo", "ChatArchiveRepo")}
}

func (r *chatArchiveRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbctx.Ctx(dbc))
}

func (r *chatArchiveRepo) Create(dbc dbctx.Context, row *chat.ChatArchive) error {
	if row == nil {
		return fmt.Errorf("missing archive row")
	}
	if row.SessionID == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.tx(dbc).Create(row).Error
}

func (r *chatArchiveRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*chat.ChatArchive, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*chat.ChatArchive
	if err := r.tx(dbc).
		Model(&chat.ChatArchive{}).
		Where("session_id = ?", sessionID).
		Order("ended_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatArchiveRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := r.tx(dbc).Model(&chat.ChatArchive{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
