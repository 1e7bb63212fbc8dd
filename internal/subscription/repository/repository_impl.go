// Package repository implements the subscription persistence contract with
// raw SQL so the reconciler controls its own locking.
package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/kekeligroup/backoffice/internal/invoice/domain"
	subscriptiondomain "github.com/kekeligroup/backoffice/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

const subscriptionColumns = `id, client_id, name, description, amount, frequency, status,
 start_at, end_at, next_billing_at, payment_count, metadata, created_at, updated_at`

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`,
		id,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ? FOR UPDATE`,
		id,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindOverdue(ctx context.Context, db *gorm.DB, now time.Time) ([]subscriptiondomain.OverdueSubscription, error) {
	var overdue []subscriptiondomain.OverdueSubscription
	err := db.WithContext(ctx).Raw(
		`SELECT s.id AS subscription_id, s.name AS name, s.status AS status, MIN(i.due_at) AS oldest_due_at
		 FROM subscriptions s
		 JOIN invoices i ON i.subscription_id = s.id
		 WHERE s.status NOT IN (?, ?)
		   AND i.status = ?
		   AND i.due_at IS NOT NULL
		   AND i.due_at < ?
		 GROUP BY s.id, s.name, s.status
		 ORDER BY oldest_due_at ASC`,
		subscriptiondomain.StatusCanceled,
		subscriptiondomain.StatusCompleted,
		invoicedomain.StatusPending,
		now,
	).Scan(&overdue).Error
	if err != nil {
		return nil, err
	}
	return overdue, nil
}

func (r *repo) MarkLate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	// The status guard keeps terminal subscriptions untouched even if one
	// slips into the overdue scan between reads.
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET status = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		subscriptiondomain.StatusLate,
		now,
		id,
		subscriptiondomain.StatusCanceled,
		subscriptiondomain.StatusCompleted,
	).Error
}
