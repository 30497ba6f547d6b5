package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatArchive is the write-once record of an ended chat.
type ChatArchive struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`

	Transcript      datatypes.JSON `gorm:"type:jsonb;column:transcript;not null" json:"transcript"`
	MessageCount    int            `gorm:"column:message_count;not null;default:0" json:"message_count"`
	DurationSeconds int64          `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`

	EndedAt   time.Time `gorm:"not null;index" json:"ended_at"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ChatArchive) TableName() string { return "chat_archive" }

func NewArchive(e ArchiveTranscript) (*ChatArchive, error) {
	raw, err := json.Marshal(e.Transcript)
	if err != nil {
		return nil, err
	}
	return &ChatArchive{
		ID:              uuid.New(),
		SessionID:       e.SessionID,
		Transcript:      datatypes.JSON(raw),
		MessageCount:    len(e.Transcript),
		DurationSeconds: int64(e.Duration / time.Second),
		EndedAt:         e.EndedAt,
	}, nil
}
