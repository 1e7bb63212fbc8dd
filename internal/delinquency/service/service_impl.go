package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kekeligroup/backoffice/internal/billing/period"
	"github.com/kekeligroup/backoffice/internal/config"
	delinquencydomain "github.com/kekeligroup/backoffice/internal/delinquency/domain"
	notificationdomain "github.com/kekeligroup/backoffice/internal/notification/domain"
	paymentdomain "github.com/kekeligroup/backoffice/internal/payment/domain"
	userdomain "github.com/kekeligroup/backoffice/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	billingCfg *config.BillingConfigHolder
	notifier   notificationdomain.Service
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	BillingCfg *config.BillingConfigHolder
	Notifier   notificationdomain.Service
}

func NewService(p ServiceParam) delinquencydomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("delinquency.service"),
		billingCfg: p.BillingCfg,
		notifier:   p.Notifier,
	}
}

// pendingPaymentRow carries one pending payment with the joined context
// needed to resolve its due date.
type pendingPaymentRow struct {
	PaymentID        snowflake.ID      `gorm:"column:payment_id"`
	Amount           float64           `gorm:"column:amount"`
	PaidAt           time.Time         `gorm:"column:paid_at"`
	InvoiceID        *snowflake.ID     `gorm:"column:invoice_id"`
	InvoiceNumber    *string           `gorm:"column:invoice_number"`
	InvoiceDueAt     *time.Time        `gorm:"column:invoice_due_at"`
	ProjectID        *snowflake.ID     `gorm:"column:project_id"`
	ProjectFrequency *period.Frequency `gorm:"column:project_frequency"`
	ClientID         *snowflake.ID     `gorm:"column:client_id"`
	ClientName       *string           `gorm:"column:client_name"`
}

const pendingPaymentsQuery = `
SELECT
  p.id AS payment_id,
  p.amount,
  p.paid_at,
  p.invoice_id,
  i.number AS invoice_number,
  i.due_at AS invoice_due_at,
  p.project_id,
  pr.billing_frequency AS project_frequency,
  p.client_id,
  c.name AS client_name
FROM payments p
LEFT JOIN invoices i ON i.id = p.invoice_id
LEFT JOIN projects pr ON pr.id = p.project_id
LEFT JOIN clients c ON c.id = p.client_id
WHERE p.status = ?
`

func (s *Service) FindLatePayments(ctx context.Context, now time.Time) ([]delinquencydomain.LatePayment, error) {
	var rows []pendingPaymentRow
	err := s.db.WithContext(ctx).
		Raw(pendingPaymentsQuery, paymentdomain.StatusPending).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("scan pending payments: %w", err)
	}

	cfg := s.billingCfg.Get()
	late := make([]delinquencydomain.LatePayment, 0, len(rows))
	for _, row := range rows {
		due := s.resolveDueDate(row, cfg)
		if !now.After(due) {
			continue
		}
		lp := delinquencydomain.LatePayment{
			PaymentID: row.PaymentID.String(),
			Amount:    row.Amount,
			DueAt:     due,
			DaysLate:  ceilDays(now.Sub(due)),
		}
		if row.InvoiceID != nil {
			lp.InvoiceID = row.InvoiceID.String()
		}
		if row.InvoiceNumber != nil {
			lp.InvoiceNumber = *row.InvoiceNumber
		}
		if row.ProjectID != nil {
			lp.ProjectID = row.ProjectID.String()
		}
		if row.ClientID != nil {
			lp.ClientID = row.ClientID.String()
		}
		if row.ClientName != nil {
			lp.ClientName = *row.ClientName
		}
		late = append(late, lp)
	}

	sort.Slice(late, func(i, j int) bool {
		if late[i].DaysLate != late[j].DaysLate {
			return late[i].DaysLate > late[j].DaysLate
		}
		return late[i].PaymentID < late[j].PaymentID
	})

	return late, nil
}

// resolveDueDate picks the most specific due date available: the invoice due
// date when the payment is invoiced, otherwise the payment date pushed out by
// the project's billing cycle, otherwise the short ad hoc window.
func (s *Service) resolveDueDate(row pendingPaymentRow, cfg config.BillingConfig) time.Time {
	if row.InvoiceDueAt != nil {
		return *row.InvoiceDueAt
	}
	if row.ProjectFrequency != nil && row.ProjectFrequency.Valid() {
		return row.PaidAt.AddDate(0, 0, period.FallbackDueOffsetDays(*row.ProjectFrequency))
	}
	return row.PaidAt.AddDate(0, 0, cfg.AdHocDueDays)
}

// ceilDays rounds up to whole days so one hour late already counts as one day.
func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

func (s *Service) CheckAndNotify(ctx context.Context, now time.Time) (delinquencydomain.CheckResult, error) {
	var result delinquencydomain.CheckResult

	late, err := s.FindLatePayments(ctx, now)
	if err != nil {
		return result, err
	}
	result.Late = len(late)
	if len(late) == 0 {
		return result, nil
	}

	var observers []userdomain.User
	err = s.db.WithContext(ctx).
		Where("role IN ? AND active = ?", []userdomain.Role{userdomain.RoleAdmin, userdomain.RoleManager}, true).
		Find(&observers).Error
	if err != nil {
		return result, fmt.Errorf("load observers: %w", err)
	}
	result.Observers = len(observers)

	var errs []error
	for _, lp := range late {
		paymentID, err := snowflake.ParseString(lp.PaymentID)
		if err != nil {
			errs = append(errs, fmt.Errorf("payment %s: %w", lp.PaymentID, err))
			continue
		}
		for _, observer := range observers {
			res, err := s.notifier.Notify(ctx, notificationdomain.NotifyInput{
				UserID:     observer.ID,
				UserEmail:  observer.Email,
				Title:      "Paiement en retard",
				Message:    latePaymentMessage(lp),
				Type:       notificationdomain.TypeLatePayment,
				Link:       "/paiements/retard",
				SourceID:   &paymentID,
				SourceType: notificationdomain.SourceTypePayment,
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("notify user %s for payment %s: %w", observer.ID, lp.PaymentID, err))
				continue
			}
			if res.Suppressed {
				result.Suppressed++
				continue
			}
			result.Notified++
			if res.EmailError != "" {
				result.EmailFailures++
			}
		}
	}

	s.log.Info("late payment check completed",
		zap.Int("late", result.Late),
		zap.Int("observers", result.Observers),
		zap.Int("notified", result.Notified),
		zap.Int("suppressed", result.Suppressed),
	)

	return result, errors.Join(errs...)
}

func latePaymentMessage(lp delinquencydomain.LatePayment) string {
	if lp.InvoiceNumber != "" {
		return fmt.Sprintf("Le paiement de %.0f FCFA pour la facture %s est en retard de %d jour(s).", lp.Amount, lp.InvoiceNumber, lp.DaysLate)
	}
	return fmt.Sprintf("Le paiement de %.0f FCFA est en retard de %d jour(s).", lp.Amount, lp.DaysLate)
}
