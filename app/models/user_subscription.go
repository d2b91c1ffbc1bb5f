package models

import (
	"strings"
	"time"
)

// Subscription status values. The provider may report states beyond this
// list; they are stored verbatim.
const (
	SubscriptionStatusNew            = "new"
	SubscriptionStatusActive         = "active"
	SubscriptionStatusTrialing       = "trialing"
	SubscriptionStatusCanceled       = "canceled"
	SubscriptionStatusExpired        = "expired"
	SubscriptionStatusSuspended      = "suspended"
	SubscriptionStatusTrialEnded     = "trial_ended"
	SubscriptionStatusDelayedCancel  = "delayed_cancel"
	SubscriptionStatusPaymentSuccess = "payment_success"
	SubscriptionStatusPaymentFailure = "payment_failure"
)

// UserSubscription is the local record of a provider subscription, or of a
// voucher-granted plan that never touches the provider (nil remote id).
// Rows are mutated in place on reconciliation and never deleted; cancellation
// is a status value.
type UserSubscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;index" json:"user_id"`
	RemoteSubscriptionID *string    `gorm:"type:varchar(191);uniqueIndex" json:"remote_subscription_id,omitempty"`
	PlanKey              string     `gorm:"type:varchar(50);not null;index" json:"plan_key"`
	Status               string     `gorm:"type:varchar(32);not null;default:'new';index" json:"status"`
	StartDate            time.Time  `gorm:"type:timestamp;not null" json:"start_date"`
	EndDate              *time.Time `gorm:"type:timestamp;default:null" json:"end_date,omitempty"`
	VoucherID            *uint      `gorm:"default:null;index" json:"voucher_id,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEndOfLifeStatus reports whether status is terminal: a row in such a
// status is no longer the user's current subscription.
func IsEndOfLifeStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case SubscriptionStatusCanceled, SubscriptionStatusExpired,
		SubscriptionStatusSuspended, SubscriptionStatusTrialEnded:
		return true
	default:
		return false
	}
}

// IsCurrent reports whether the row counts toward the single-current
// invariant.
func (s *UserSubscription) IsCurrent() bool {
	return !IsEndOfLifeStatus(s.Status)
}

// IsPaid reports whether the subscription is backed by a provider record
// (as opposed to a voucher-only local plan).
func (s *UserSubscription) IsPaid() bool {
	return s.RemoteSubscriptionID != nil && strings.TrimSpace(*s.RemoteSubscriptionID) != ""
}
