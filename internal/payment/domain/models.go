// Package domain contains persistence models for payments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status represents lifecycle states for a payment.
type Status string

const (
	StatusPending   Status = "EN_ATTENTE"
	StatusConfirmed Status = "CONFIRME"
	StatusRefused   Status = "REFUSE"
	StatusRefunded  Status = "REMBOURSE"
)

// Payment is an expected or received settlement. Only pending payments are
// ever evaluated for delinquency.
type Payment struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceID *snowflake.ID `gorm:"index" json:"factureId,omitempty"`
	ProjectID *snowflake.ID `gorm:"index" json:"projetId,omitempty"`
	ClientID  *snowflake.ID `gorm:"index" json:"clientId,omitempty"`
	Amount    float64       `gorm:"not null" json:"montant"`
	Status    Status        `gorm:"type:text;not null;index" json:"statut"`
	PaidAt    time.Time     `gorm:"not null" json:"datePaiement"`
	Method    string        `gorm:"type:text" json:"methode"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Payment) TableName() string { return "payments" }
