// Package domain contains persistence models for projects.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kekeligroup/backoffice/internal/billing/period"
)

// ProjectStatus represents lifecycle states for a project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "EN_COURS"
	ProjectStatusDone      ProjectStatus = "TERMINE"
	ProjectStatusSuspended ProjectStatus = "SUSPENDU"
)

// Project is an ad-hoc engagement that can carry its own billing frequency.
// Payments without an invoice resolve their due date from this frequency.
type Project struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClientID         snowflake.ID      `gorm:"not null;index" json:"clientId"`
	Name             string            `gorm:"type:text;not null" json:"nom"`
	Status           ProjectStatus     `gorm:"type:text;not null" json:"statut"`
	Budget           float64           `gorm:"not null;default:0" json:"budget"`
	BillingFrequency *period.Frequency `gorm:"type:text" json:"frequenceFacturation"`
	StartAt          time.Time         `gorm:"not null" json:"dateDebut"`
	EndAt            *time.Time        `json:"dateFin"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }
