package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "db",
			err:  &pgconn.PgError{Code: "57014"},
			want: SchedulerJobReasonDB,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "backoffice",
		Environment: "test",
	})

	metrics.AddBatchProcessed("generate_invoices", LockResourceSubscriptionsDue, 3)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("generate_invoices", LockResourceSubscriptionsDue))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestJobCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "backoffice",
		Environment: "test",
	})

	metrics.IncJobRun("check_late_payments")
	metrics.IncJobRun("check_late_payments")
	metrics.IncJobTimeout("check_late_payments")
	metrics.IncJobError("check_late_payments", context.DeadlineExceeded)
	metrics.ObserveJobDuration("check_late_payments", 50*time.Millisecond)

	if got := testutil.ToFloat64(metrics.jobRuns.WithLabelValues("check_late_payments")); got != 2 {
		t.Fatalf("expected 2 runs, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.jobTimeouts.WithLabelValues("check_late_payments")); got != 1 {
		t.Fatalf("expected 1 timeout, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.jobErrors.WithLabelValues("check_late_payments", SchedulerJobReasonDeadlineExceeded)); got != 1 {
		t.Fatalf("expected 1 deadline error, got %v", got)
	}
}
