// Package domain contains persistence models for back-office users.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role gates who receives late-payment alerts and who may fire manual triggers.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYE"
)

// IsObserver reports whether the role receives delinquency alerts.
func (r Role) IsObserver() bool {
	return r == RoleAdmin || r == RoleManager
}

// User is a back-office operator.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Email     string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	FirstName string       `gorm:"type:text" json:"prenom"`
	LastName  string       `gorm:"type:text" json:"nom"`
	Role      Role         `gorm:"type:text;not null" json:"role"`
	Active    bool         `gorm:"not null;default:true" json:"actif"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
