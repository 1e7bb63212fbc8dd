// Package domain contains persistence models and contracts for subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kekeligroup/backoffice/internal/billing/period"
	"gorm.io/datatypes"
)

// Status represents lifecycle states for a subscription.
type Status string

const (
	StatusActive    Status = "ACTIF"
	StatusSuspended Status = "SUSPENDU"
	StatusLate      Status = "EN_RETARD"
	StatusCanceled  Status = "ANNULE"
	StatusCompleted Status = "TERMINE"
)

// Terminal reports whether the status admits no further transitions.
// Canceled and completed subscriptions are never billed or reconciled again.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusCompleted
}

// Subscription is a client's recurring billing agreement.
type Subscription struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClientID    snowflake.ID      `gorm:"not null;index" json:"clientId"`
	Name        string            `gorm:"type:text;not null" json:"nom"`
	Description string            `gorm:"type:text" json:"description"`
	Amount      float64           `gorm:"not null" json:"montant"`
	Frequency   period.Frequency  `gorm:"type:text;not null" json:"frequence"`
	Status      Status            `gorm:"type:text;not null;index" json:"statut"`
	StartAt     time.Time         `gorm:"not null" json:"dateDebut"`
	EndAt       *time.Time        `json:"dateFin"`
	// NextBillingAt only ever moves forward, by exactly one period per
	// invoiced cycle.
	NextBillingAt time.Time         `gorm:"not null;index" json:"prochaineFacturation"`
	PaymentCount  int               `gorm:"not null;default:0" json:"nombrePaiements"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Subscription) TableName() string { return "subscriptions" }
