package models

import "time"

// WebhookEvent is the append-only ledger of provider notifications. The
// unique index on WebhookID is the storage-level idempotency key for
// at-least-once webhook delivery.
type WebhookEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	WebhookID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_webhook_id" json:"webhook_id"`
	EventType string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	RawBody   string    `gorm:"type:longtext;not null" json:"raw_body"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
