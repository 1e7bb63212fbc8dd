// Package scheduler drives the recurring billing jobs: invoice generation,
// late payment alerts and subscription status reconciliation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	billingdomain "github.com/kekeligroup/backoffice/internal/billing/domain"
	"github.com/kekeligroup/backoffice/internal/clock"
	delinquencydomain "github.com/kekeligroup/backoffice/internal/delinquency/domain"
	obsmetrics "github.com/kekeligroup/backoffice/internal/observability/metrics"
	subscriptiondomain "github.com/kekeligroup/backoffice/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

const (
	JobGenerateInvoices  = "generate_invoices"
	JobCheckLatePayments = "check_late_payments"
	JobReconcileStatus   = "reconcile_status"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	BillingSvc      billingdomain.Service
	DelinquencySvc  delinquencydomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Config          Config `optional:"true"`
}

type Scheduler struct {
	db              *gorm.DB
	log             *zap.Logger
	cfg             Config
	clock           clock.Clock
	billingSvc      billingdomain.Service
	delinquencySvc  delinquencydomain.Service
	subscriptionSvc subscriptiondomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.BillingSvc == nil || p.DelinquencySvc == nil || p.SubscriptionSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:              p.DB,
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		clock:           p.Clock,
		billingSvc:      p.BillingSvc,
		delinquencySvc:  p.DelinquencySvc,
		subscriptionSvc: p.SubscriptionSvc,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	// A deadline hit is a soft timeout: the next tick picks up where this
	// run left off.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobGenerateInvoices, s.isJobEnabled(JobGenerateInvoices), func(ctx context.Context) error {
			return s.runJob(ctx, JobGenerateInvoices, s.cfg.JobTimeout, s.GenerateInvoicesJob)
		}},
		{JobCheckLatePayments, s.isJobEnabled(JobCheckLatePayments), func(ctx context.Context) error {
			return s.runJob(ctx, JobCheckLatePayments, s.cfg.JobTimeout, s.CheckLatePaymentsJob)
		}},
		{JobReconcileStatus, s.isJobEnabled(JobReconcileStatus), func(ctx context.Context) error {
			return s.runJob(ctx, JobReconcileStatus, s.cfg.JobTimeout, s.ReconcileStatusJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty list means every job runs (monolith mode).
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) GenerateInvoicesJob(ctx context.Context) error {
	res, err := s.billingSvc.GenerateDueInvoices(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	obsmetrics.Scheduler().AddBatchProcessed(JobGenerateInvoices, "invoices", len(res.Created))
	s.log.Info("invoice generation completed",
		zap.Int("selected", res.Selected),
		zap.Int("created", len(res.Created)),
		zap.Int("failed", len(res.Errors)),
	)
	for _, subErr := range res.Errors {
		s.log.Warn("subscription failed to invoice",
			zap.String("subscription_id", subErr.SubscriptionID),
			zap.String("reason", subErr.Reason),
		)
	}
	return nil
}

func (s *Scheduler) CheckLatePaymentsJob(ctx context.Context) error {
	res, err := s.delinquencySvc.CheckAndNotify(ctx, s.clock.Now())
	obsmetrics.Scheduler().AddBatchProcessed(JobCheckLatePayments, "notifications", res.Notified)
	s.log.Info("late payment check completed",
		zap.Int("late", res.Late),
		zap.Int("notified", res.Notified),
		zap.Int("suppressed", res.Suppressed),
	)
	return err
}

func (s *Scheduler) ReconcileStatusJob(ctx context.Context) error {
	res, err := s.subscriptionSvc.ReconcileLateStatuses(ctx, s.clock.Now())
	obsmetrics.Scheduler().AddBatchProcessed(JobReconcileStatus, "late_subscriptions", len(res.Flagged))
	s.log.Info("status reconciliation completed",
		zap.Int("scanned", res.Scanned),
		zap.Int("flagged", len(res.Flagged)),
	)
	return err
}
