package models

import "time"

// SubscriptionPlan is seeded reference data mapping a provider product handle
// to a locally known plan. Rows are immutable after seeding.
type SubscriptionPlan struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Key                   string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"key"`
	ProviderProductHandle string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_product_handle"`
	Name                  string    `gorm:"type:varchar(150);not null" json:"name"`
	Description           string    `gorm:"type:text" json:"description"`
	PriceCents            int       `gorm:"not null;default:0" json:"price_cents"`
	Currency              string    `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
