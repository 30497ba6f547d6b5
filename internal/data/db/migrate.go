package db

import (
	"gorm.io/gorm"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&chat.ChatArchive{},
	)
}
