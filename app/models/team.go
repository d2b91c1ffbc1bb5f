package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Team is a group of tasters that can host shared tasting events.
type Team struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	Description string         `gorm:"type:text" json:"description" validate:"max=1000"`
	OwnerID     uint           `gorm:"not null;index" json:"owner_id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// TeamMember links a user to a team.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"not null;uniqueIndex:ux_team_members_team_user" json:"team_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_team_members_team_user;index" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (t *Team) Validate() error {
	return validator.New().Struct(t)
}
