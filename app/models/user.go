package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email             string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password          string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role              string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status            string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	Bio               string         `gorm:"type:text;default:null" json:"bio" validate:"max=1000"`
	AvatarURL         string         `gorm:"type:varchar(255);default:null" json:"avatar_url" validate:"max=255"`
	Address           string         `gorm:"type:varchar(255);default:null" json:"address" validate:"max=255"`
	Phone             string         `gorm:"type:varchar(40);default:null" json:"phone" validate:"max=40"`
	BillingRef        string         `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	BillingCustomerID int64          `gorm:"default:0;index" json:"-"`
	LastLoginAt       *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a validated user with a hashed password and a fresh
// billing reference used to link the account to the payment provider.
func CreateUser(name string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:       name,
		Email:      email,
		Password:   pw,
		Role:       ROLE_USER,
		Status:     STATUS_ACTIVE,
		BillingRef: uuid.NewString(),
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	return string(bytes), err
}

func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// SplitName splits the display name into first and last name for provider
// customer records. A placeholder is used when no surname can be separated.
func (u *User) SplitName() (string, string) {
	parts := strings.Fields(strings.TrimSpace(u.Name))
	if len(parts) == 0 {
		return "Member", "Unknown"
	}
	if len(parts) == 1 {
		return parts[0], "Unknown"
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}
