// Package domain contains persistence models and contracts for invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status represents lifecycle states for an invoice.
type Status string

const (
	StatusPending       Status = "EN_ATTENTE"
	StatusPartiallyPaid Status = "PARTIELLEMENT_PAYEE"
	StatusPaid          Status = "PAYEE"
	StatusCanceled      Status = "ANNULEE"
	StatusDraft         Status = "BROUILLON"
)

// Invoice is a bill issued to a client, either from a recurring subscription
// cycle or ad hoc against a project. At most one source is set, never both.
type Invoice struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	Number string       `gorm:"type:text;not null;uniqueIndex" json:"numero"`

	SubscriptionID *snowflake.ID `gorm:"index" json:"abonnementId,omitempty"`
	ProjectID      *snowflake.ID `gorm:"index" json:"projetId,omitempty"`
	ClientID       snowflake.ID  `gorm:"not null;index" json:"clientId"`

	Amount      float64 `gorm:"not null" json:"montant"`
	TaxRate     float64 `gorm:"not null" json:"tauxTVA"`
	TotalAmount float64 `gorm:"not null" json:"montantTotal"`

	IssuedAt time.Time `gorm:"not null" json:"dateEmission"`
	// DueAt, once set, is the canonical due date for delinquency detection.
	DueAt  *time.Time `gorm:"index" json:"dateEcheance"`
	Status Status     `gorm:"type:text;not null;index" json:"statut"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Invoice) TableName() string { return "invoices" }
