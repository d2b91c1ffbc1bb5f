package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Unlimited marks a voucher usage limit or validity that never runs out.
const VoucherUnlimited = -1

// Voucher grants a local subscription plan without contacting the billing
// provider. Codes are stored normalized (upper case, trimmed).
type Voucher struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Code            string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"code" validate:"required,min=4,max=64"`
	PlanKey         string    `gorm:"type:varchar(50);not null" json:"plan_key" validate:"required"`
	UsageLimit      int       `gorm:"not null;default:-1" json:"usage_limit"`
	ValidDays       int       `gorm:"not null;default:-1" json:"valid_days"`
	RedemptionCount int       `gorm:"not null;default:0" json:"redemption_count"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v *Voucher) Validate() error {
	return validator.New().Struct(v)
}

// NormalizeVoucherCode canonicalizes user-entered voucher codes.
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsExhausted reports whether the usage limit has been reached.
func (v *Voucher) IsExhausted() bool {
	return v.UsageLimit != VoucherUnlimited && v.RedemptionCount >= v.UsageLimit
}

// IsExpired reports whether the redemption window has closed at now.
func (v *Voucher) IsExpired(now time.Time) bool {
	if v.ValidDays == VoucherUnlimited {
		return false
	}
	return now.After(v.CreatedAt.AddDate(0, 0, v.ValidDays))
}
