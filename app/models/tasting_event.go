package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// TastingEvent is a scheduled tasting session, optionally hosted by a team.
type TastingEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Description string         `gorm:"type:text" json:"description" validate:"max=2000"`
	Location    string         `gorm:"type:varchar(255)" json:"location" validate:"max=255"`
	HostID      uint           `gorm:"not null;index" json:"host_id"`
	TeamID      *uint          `gorm:"default:null;index" json:"team_id,omitempty"`
	StartsAt    time.Time      `gorm:"type:timestamp;not null" json:"starts_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Attendees []EventAttendee `gorm:"foreignKey:EventID" json:"attendees,omitempty"`
}

// EventAttendee links a user to a tasting event.
type EventAttendee struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;uniqueIndex:ux_event_attendees_event_user" json:"event_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_event_attendees_event_user;index" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (e *TastingEvent) Validate() error {
	return validator.New().Struct(e)
}
