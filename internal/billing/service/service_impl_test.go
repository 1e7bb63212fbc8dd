package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/kekeligroup/backoffice/internal/config"
	invoicedomain "github.com/kekeligroup/backoffice/internal/invoice/domain"
	"github.com/kekeligroup/backoffice/internal/migration"
	subscriptiondomain "github.com/kekeligroup/backoffice/internal/subscription/domain"
	"github.com/kekeligroup/backoffice/internal/subscription/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// SQLite support hack: remove FOR UPDATE clauses
	db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	})
	db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	})

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &Service{
		db:         db,
		log:        zap.NewNop(),
		genID:      node,
		billingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		subsRepo:   repository.Provide(),
		claimLimit: defaultClaimLimit,
	}
}

func seedSubscription(t *testing.T, db *gorm.DB, node *snowflake.Node, mutate func(*subscriptiondomain.Subscription)) subscriptiondomain.Subscription {
	t.Helper()

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	sub := subscriptiondomain.Subscription{
		ID:            node.Generate(),
		ClientID:      node.Generate(),
		Name:          "Maintenance site web",
		Amount:        100,
		Frequency:     "MENSUEL",
		Status:        subscriptiondomain.StatusActive,
		StartAt:       start,
		NextBillingAt: start.AddDate(0, 1, 0),
		CreatedAt:     start,
		UpdatedAt:     start,
	}
	if mutate != nil {
		mutate(&sub)
	}
	require.NoError(t, db.Create(&sub).Error)
	return sub
}

func TestGenerateDueInvoicesMonthlyCycle(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	sub := seedSubscription(t, db, svc.genID, nil)

	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	res, err := svc.GenerateDueInvoices(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, res.Selected)
	require.Len(t, res.Created, 1)
	require.Empty(t, res.Errors)

	var inv invoicedomain.Invoice
	require.NoError(t, db.Where("subscription_id = ?", sub.ID).First(&inv).Error)
	require.Equal(t, 100.0, inv.Amount)
	require.Equal(t, 0.18, inv.TaxRate)
	require.InDelta(t, 118.0, inv.TotalAmount, 1e-9)
	require.Equal(t, invoicedomain.StatusPending, inv.Status)
	require.True(t, strings.HasPrefix(inv.Number, "FAC-2024-"))
	require.NotNil(t, inv.DueAt)
	require.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), inv.DueAt.UTC())

	var after subscriptiondomain.Subscription
	require.NoError(t, db.First(&after, "id = ?", sub.ID).Error)
	require.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), after.NextBillingAt.UTC())
	require.Equal(t, 1, after.PaymentCount)
}

func TestGenerateDueInvoicesIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	sub := seedSubscription(t, db, svc.genID, nil)

	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	_, err := svc.GenerateDueInvoices(context.Background(), now)
	require.NoError(t, err)

	res, err := svc.GenerateDueInvoices(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 0, res.Selected)
	require.Empty(t, res.Created)

	var count int64
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).Where("subscription_id = ?", sub.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var after subscriptiondomain.Subscription
	require.NoError(t, db.First(&after, "id = ?", sub.ID).Error)
	require.Equal(t, 1, after.PaymentCount)
}

func TestGenerateDueInvoicesSkipsEndedAndTerminal(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	ended := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	seedSubscription(t, db, svc.genID, func(s *subscriptiondomain.Subscription) {
		s.EndAt = &ended
	})
	seedSubscription(t, db, svc.genID, func(s *subscriptiondomain.Subscription) {
		s.Status = subscriptiondomain.StatusCanceled
	})
	seedSubscription(t, db, svc.genID, func(s *subscriptiondomain.Subscription) {
		s.Status = subscriptiondomain.StatusCompleted
	})

	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	res, err := svc.GenerateDueInvoices(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 0, res.Selected)
	require.Empty(t, res.Created)
}

func TestGenerateDueInvoicesPinsMonthEnd(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	sub := seedSubscription(t, db, svc.genID, func(s *subscriptiondomain.Subscription) {
		s.StartAt = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
		s.NextBillingAt = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	})

	now := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	res, err := svc.GenerateDueInvoices(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, res.Created, 1)

	var after subscriptiondomain.Subscription
	require.NoError(t, db.First(&after, "id = ?", sub.ID).Error)
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), after.NextBillingAt.UTC())
}

func TestGenerateDueInvoicesFailedCreateDoesNotAdvance(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	sub := seedSubscription(t, db, svc.genID, nil)

	require.NoError(t, db.Migrator().DropTable(&invoicedomain.Invoice{}))

	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	res, err := svc.GenerateDueInvoices(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, res.Selected)
	require.Empty(t, res.Created)
	require.Len(t, res.Errors, 1)
	require.Equal(t, sub.ID.String(), res.Errors[0].SubscriptionID)

	var after subscriptiondomain.Subscription
	require.NoError(t, db.First(&after, "id = ?", sub.ID).Error)
	require.Equal(t, sub.NextBillingAt.UTC(), after.NextBillingAt.UTC())
	require.Equal(t, 0, after.PaymentCount)
}

func TestUpcomingInvoicesHonorsHorizon(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	within := seedSubscription(t, db, svc.genID, func(s *subscriptiondomain.Subscription) {
		s.NextBillingAt = now.AddDate(0, 0, 3)
	})
	seedSubscription(t, db, svc.genID, func(s *subscriptiondomain.Subscription) {
		s.NextBillingAt = now.AddDate(0, 0, 12)
	})
	seedSubscription(t, db, svc.genID, func(s *subscriptiondomain.Subscription) {
		// Due now, so it belongs to the generation pass, not the preview.
		s.NextBillingAt = now
	})

	upcoming, err := svc.UpcomingInvoices(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, within.ID.String(), upcoming[0].SubscriptionID)
}
