package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ContestStatusOpen   = "open"
	ContestStatusClosed = "closed"
)

// Contest is an admin-curated competition; entries reference tasting notes.
type Contest struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Description string         `gorm:"type:text" json:"description" validate:"max=2000"`
	Status      string         `gorm:"type:varchar(20);not null;default:'open'" json:"status" validate:"oneof=open closed"`
	StartsAt    time.Time      `gorm:"type:timestamp;not null" json:"starts_at"`
	EndsAt      time.Time      `gorm:"type:timestamp;not null" json:"ends_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// ContestEntry submits a tasting note into a contest.
type ContestEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ContestID uint      `gorm:"not null;uniqueIndex:ux_contest_entries_contest_note" json:"contest_id"`
	NoteID    uint      `gorm:"not null;uniqueIndex:ux_contest_entries_contest_note" json:"note_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Contest) Validate() error {
	return validator.New().Struct(c)
}
