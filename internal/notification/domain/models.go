// Package domain contains persistence models and contracts for in-app alerts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Type classifies a notification for display.
type Type string

const (
	TypeLatePayment Type = "PAIEMENT_RETARD"
	TypeInfo        Type = "INFO"
	TypeWarning     Type = "AVERTISSEMENT"
)

// Notification is the durable in-app alert. The (source_id, source_type,
// user_id) triple and the (link, user_id) pair are the dedup keys; the
// deduplicator, not the storage layer, enforces at-most-one per key.
type Notification struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID  snowflake.ID `gorm:"not null;index" json:"utilisateurId"`
	Title   string       `gorm:"type:text;not null" json:"titre"`
	Message string       `gorm:"type:text;not null" json:"message"`
	Type    Type         `gorm:"type:text;not null" json:"type"`
	Link    string       `gorm:"type:text;index" json:"lien,omitempty"`

	SourceID   *snowflake.ID `gorm:"index:idx_notifications_source" json:"sourceId,omitempty"`
	SourceType string        `gorm:"type:text;index:idx_notifications_source" json:"sourceType,omitempty"`

	Read      bool      `gorm:"column:is_read;not null;default:false;index" json:"lu"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Notification) TableName() string { return "notifications" }

// SourceTypePayment keys alerts generated from a concrete payment record.
const SourceTypePayment = "PAYMENT"
