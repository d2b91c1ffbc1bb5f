package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// TastingNote captures a single wine impression, optionally tied to an event
// and illustrated by an uploaded label photo.
type TastingNote struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	EventID      *uint          `gorm:"default:null;index" json:"event_id,omitempty"`
	WineName     string         `gorm:"type:varchar(200);not null" json:"wine_name" validate:"required,min=2,max=200"`
	Winery       string         `gorm:"type:varchar(200)" json:"winery" validate:"max=200"`
	Vintage      int            `gorm:"default:0" json:"vintage" validate:"omitempty,min=1800,max=2100"`
	GrapeVariety string         `gorm:"type:varchar(150)" json:"grape_variety" validate:"max=150"`
	Region       string         `gorm:"type:varchar(150)" json:"region" validate:"max=150"`
	Rating       int            `gorm:"not null;default:0" json:"rating" validate:"min=0,max=100"`
	Aroma        string         `gorm:"type:text" json:"aroma" validate:"max=2000"`
	Palate       string         `gorm:"type:text" json:"palate" validate:"max=2000"`
	Finish       string         `gorm:"type:text" json:"finish" validate:"max=2000"`
	LabelPhoto   string         `gorm:"type:varchar(255)" json:"label_photo"`
	PhotoTakenAt *time.Time     `gorm:"type:timestamp;default:null" json:"photo_taken_at,omitempty"`
	IsPublic     bool           `gorm:"default:true" json:"is_public"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (n *TastingNote) Validate() error {
	return validator.New().Struct(n)
}
