// Package service implements the billing cycle engine: one invoice per due
// subscription per cycle, with the advance committed in the same transaction.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/kekeligroup/backoffice/internal/billing/domain"
	"github.com/kekeligroup/backoffice/internal/billing/period"
	"github.com/kekeligroup/backoffice/internal/config"
	invoicedomain "github.com/kekeligroup/backoffice/internal/invoice/domain"
	obsmetrics "github.com/kekeligroup/backoffice/internal/observability/metrics"
	subscriptiondomain "github.com/kekeligroup/backoffice/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultClaimLimit = 500

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	billingCfg *config.BillingConfigHolder
	subsRepo   subscriptiondomain.Repository

	claimLimit int
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	BillingCfg *config.BillingConfigHolder
	SubsRepo   subscriptiondomain.Repository
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("billing.service"),
		genID:      p.GenID,
		billingCfg: p.BillingCfg,
		subsRepo:   p.SubsRepo,
		claimLimit: defaultClaimLimit,
	}
}

// GenerateDueInvoices selects active subscriptions with next_billing_at <= now
// and not past their end date, then for each one creates the cycle invoice and
// advances the subscription inside a single transaction. A failure on one
// subscription never aborts the rest; the result reports both sides.
//
// Idempotency holds through the <= predicate plus the in-place advance: once a
// subscription's next-billing-date moves past now, re-running with the same now
// selects nothing further for it.
func (s *Service) GenerateDueInvoices(ctx context.Context, now time.Time) (billingdomain.BatchResult, error) {
	ids, err := s.claimDue(ctx, now)
	if err != nil {
		return billingdomain.BatchResult{}, fmt.Errorf("claim due subscriptions: %w", err)
	}

	result := billingdomain.BatchResult{Selected: len(ids)}
	for _, id := range ids {
		created, err := s.invoiceOne(ctx, id, now)
		if err != nil {
			s.log.Error("invoice generation failed",
				zap.String("subscription_id", id.String()),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, billingdomain.SubscriptionError{
				SubscriptionID: id.String(),
				Reason:         err.Error(),
			})
			continue
		}
		if created != nil {
			result.Created = append(result.Created, *created)
		}
	}

	s.log.Info("invoice generation pass complete",
		zap.Time("now", now),
		zap.Int("selected", result.Selected),
		zap.Int("created", len(result.Created)),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s *Service) claimDue(ctx context.Context, now time.Time) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	lockStart := time.Now()
	err := s.db.WithContext(ctx).Raw(
		`SELECT id FROM subscriptions
		 WHERE status = ?
		   AND next_billing_at <= ?
		   AND (end_at IS NULL OR end_at >= ?)
		 ORDER BY id
		 LIMIT ?`,
		subscriptiondomain.StatusActive,
		now,
		now,
		s.claimLimit,
	).Scan(&ids).Error
	obsmetrics.Scheduler().ObserveDBLockWait(obsmetrics.LockResourceSubscriptionsDue, time.Since(lockStart))
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// invoiceOne runs the invoice-then-advance unit for a single subscription.
// The row lock plus predicate re-check inside the transaction keeps two
// overlapping runs from double-invoicing the same cycle.
func (s *Service) invoiceOne(ctx context.Context, id snowflake.ID, now time.Time) (*billingdomain.InvoiceCreated, error) {
	var created *billingdomain.InvoiceCreated
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subscription, err := s.subsRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if subscription == nil {
			return nil
		}
		if !dueNow(subscription, now) {
			// Advanced by a concurrent run between claim and lock.
			return nil
		}

		taxRate := s.billingCfg.Get().TaxRate
		invoice := invoicedomain.Invoice{
			ID:             s.genID.Generate(),
			Number:         s.invoiceNumber(now),
			SubscriptionID: &subscription.ID,
			ClientID:       subscription.ClientID,
			Amount:         subscription.Amount,
			TaxRate:        taxRate,
			TotalAmount:    subscription.Amount * (1 + taxRate),
			IssuedAt:       now,
			Status:         invoicedomain.StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		// The grace window is one full cycle, not the fallback offset.
		dueAt := period.Next(now, subscription.Frequency)
		invoice.DueAt = &dueAt

		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		// Advance from the previous next-billing-date, never from now, so a
		// late run does not shift the billing anchor.
		nextBillingAt := period.Next(subscription.NextBillingAt, subscription.Frequency)
		if err := tx.Exec(
			`UPDATE subscriptions
			 SET next_billing_at = ?, payment_count = payment_count + 1, updated_at = ?
			 WHERE id = ?`,
			nextBillingAt,
			now,
			subscription.ID,
		).Error; err != nil {
			return fmt.Errorf("advance subscription: %w", err)
		}

		created = &billingdomain.InvoiceCreated{
			SubscriptionID: subscription.ID.String(),
			InvoiceID:      invoice.ID.String(),
			Number:         invoice.Number,
			Amount:         invoice.Amount,
			TotalAmount:    invoice.TotalAmount,
			DueAt:          dueAt,
			NextBillingAt:  nextBillingAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) UpcomingInvoices(ctx context.Context, now time.Time) ([]billingdomain.UpcomingInvoice, error) {
	horizon := now.AddDate(0, 0, s.billingCfg.Get().UpcomingHorizonDays)

	var rows []struct {
		ID            snowflake.ID
		ClientID      snowflake.ID
		Name          string
		Amount        float64
		NextBillingAt time.Time
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, client_id, name, amount, next_billing_at
		 FROM subscriptions
		 WHERE status = ?
		   AND next_billing_at > ?
		   AND next_billing_at <= ?
		   AND (end_at IS NULL OR end_at >= ?)
		 ORDER BY next_billing_at ASC`,
		subscriptiondomain.StatusActive,
		now,
		horizon,
		now,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	upcoming := make([]billingdomain.UpcomingInvoice, 0, len(rows))
	for _, row := range rows {
		upcoming = append(upcoming, billingdomain.UpcomingInvoice{
			SubscriptionID: row.ID.String(),
			Name:           row.Name,
			ClientID:       row.ClientID.String(),
			Amount:         row.Amount,
			BillingAt:      row.NextBillingAt,
		})
	}
	return upcoming, nil
}

func (s *Service) invoiceNumber(now time.Time) string {
	return fmt.Sprintf("FAC-%d-%s", now.Year(), s.genID.Generate())
}

func dueNow(subscription *subscriptiondomain.Subscription, now time.Time) bool {
	if subscription.Status != subscriptiondomain.StatusActive {
		return false
	}
	if subscription.NextBillingAt.After(now) {
		return false
	}
	if subscription.EndAt != nil && subscription.EndAt.Before(now) {
		return false
	}
	return true
}
