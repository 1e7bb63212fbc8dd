package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	billingdomain "github.com/kekeligroup/backoffice/internal/billing/domain"
	"github.com/kekeligroup/backoffice/internal/clock"
	delinquencydomain "github.com/kekeligroup/backoffice/internal/delinquency/domain"
	obsmetrics "github.com/kekeligroup/backoffice/internal/observability/metrics"
	subscriptiondomain "github.com/kekeligroup/backoffice/internal/subscription/domain"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockBillingSvc struct {
	calls int
	block bool
}

func (m *mockBillingSvc) GenerateDueInvoices(ctx context.Context, now time.Time) (billingdomain.BatchResult, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return billingdomain.BatchResult{}, ctx.Err()
	}
	return billingdomain.BatchResult{}, nil
}

func (m *mockBillingSvc) UpcomingInvoices(context.Context, time.Time) ([]billingdomain.UpcomingInvoice, error) {
	return nil, nil
}

type mockDelinquencySvc struct {
	calls int
}

func (m *mockDelinquencySvc) FindLatePayments(context.Context, time.Time) ([]delinquencydomain.LatePayment, error) {
	return nil, nil
}

func (m *mockDelinquencySvc) CheckAndNotify(context.Context, time.Time) (delinquencydomain.CheckResult, error) {
	m.calls++
	return delinquencydomain.CheckResult{}, nil
}

type mockSubscriptionSvc struct {
	calls int
	err   error
}

func (m *mockSubscriptionSvc) Create(context.Context, subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.Subscription, error) {
	return subscriptiondomain.Subscription{}, nil
}

func (m *mockSubscriptionSvc) Update(context.Context, string, subscriptiondomain.UpdateSubscriptionRequest) (subscriptiondomain.Subscription, error) {
	return subscriptiondomain.Subscription{}, nil
}

func (m *mockSubscriptionSvc) Cancel(context.Context, string) (subscriptiondomain.Subscription, error) {
	return subscriptiondomain.Subscription{}, nil
}

func (m *mockSubscriptionSvc) GetByID(context.Context, string) (subscriptiondomain.Subscription, error) {
	return subscriptiondomain.Subscription{}, nil
}

func (m *mockSubscriptionSvc) List(context.Context, subscriptiondomain.ListSubscriptionRequest) ([]subscriptiondomain.Subscription, error) {
	return nil, nil
}

func (m *mockSubscriptionSvc) ReconcileLateStatuses(context.Context, time.Time) (subscriptiondomain.ReconcileResult, error) {
	m.calls++
	return subscriptiondomain.ReconcileResult{}, m.err
}

func newTestScheduler(cfg Config, billing *mockBillingSvc, delinquency *mockDelinquencySvc, subscription *mockSubscriptionSvc) *Scheduler {
	return &Scheduler{
		log:             zap.NewNop(),
		cfg:             cfg.withDefaults(),
		clock:           clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		billingSvc:      billing,
		delinquencySvc:  delinquency,
		subscriptionSvc: subscription,
	}
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			require.NotNil(t, metric.Counter, "metric %s is not a counter", name)
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(metric.Label))
	for _, label := range metric.Label {
		got[label.GetName()] = label.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "backoffice",
		Environment: "test",
	})

	billing := &mockBillingSvc{block: true}
	s := newTestScheduler(Config{JobTimeout: 5 * time.Millisecond}, billing, &mockDelinquencySvc{}, &mockSubscriptionSvc{})

	err := s.runJob(context.Background(), JobGenerateInvoices, s.cfg.JobTimeout, s.GenerateInvoicesJob)
	require.NoError(t, err)

	labels := map[string]string{
		"service": "backoffice",
		"env":     "test",
		"job":     JobGenerateInvoices,
	}
	require.Equal(t, 1.0, getCounterValue(t, registry, "backoffice_scheduler_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "backoffice",
		"env":     "test",
		"job":     JobGenerateInvoices,
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	require.Equal(t, 1.0, getCounterValue(t, registry, "backoffice_scheduler_job_errors_total", errorLabels))
}

func TestRunOnceRunsAllJobsByDefault(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "backoffice", Environment: "test"})

	billing := &mockBillingSvc{}
	delinquency := &mockDelinquencySvc{}
	subscription := &mockSubscriptionSvc{}
	s := newTestScheduler(Config{}, billing, delinquency, subscription)

	require.NoError(t, s.RunOnce(context.Background()))
	require.Equal(t, 1, billing.calls)
	require.Equal(t, 1, delinquency.calls)
	require.Equal(t, 1, subscription.calls)
}

func TestRunOnceHonorsEnabledJobs(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "backoffice", Environment: "test"})

	billing := &mockBillingSvc{}
	delinquency := &mockDelinquencySvc{}
	subscription := &mockSubscriptionSvc{}
	s := newTestScheduler(Config{EnabledJobs: []string{JobCheckLatePayments}}, billing, delinquency, subscription)

	require.NoError(t, s.RunOnce(context.Background()))
	require.Equal(t, 0, billing.calls)
	require.Equal(t, 1, delinquency.calls)
	require.Equal(t, 0, subscription.calls)
}

func TestRunOnceAggregatesJobErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "backoffice", Environment: "test"})

	subscription := &mockSubscriptionSvc{err: errors.New("db unreachable")}
	s := newTestScheduler(Config{}, &mockBillingSvc{}, &mockDelinquencySvc{}, subscription)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), JobReconcileStatus)
}
