// Package domain contains persistence models for clients.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client is a billed customer of the agency.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"nom"`
	Email     string       `gorm:"type:text;index" json:"email"`
	Phone     string       `gorm:"type:text" json:"telephone"`
	Address   string       `gorm:"type:text" json:"adresse"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Client) TableName() string { return "clients" }
