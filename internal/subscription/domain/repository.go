package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// OverdueSubscription pairs a non-terminal subscription with its oldest
// pending invoice due date.
type OverdueSubscription struct {
	SubscriptionID snowflake.ID `gorm:"column:subscription_id"`
	Name           string       `gorm:"column:name"`
	Status         Status       `gorm:"column:status"`
	OldestDueAt    time.Time    `gorm:"column:oldest_due_at"`
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindOverdue(ctx context.Context, db *gorm.DB, now time.Time) ([]OverdueSubscription, error)
	MarkLate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
}
