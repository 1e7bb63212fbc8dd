package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/kekeligroup/backoffice/internal/clock"
	"github.com/kekeligroup/backoffice/internal/config"
	"github.com/kekeligroup/backoffice/internal/migration"
	notificationdomain "github.com/kekeligroup/backoffice/internal/notification/domain"
	"github.com/kekeligroup/backoffice/internal/providers/email"
	"github.com/kekeligroup/backoffice/pkg/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type failingEmail struct{}

func (failingEmail) Send(context.Context, []string, string, string) error {
	return errors.New("smtp unreachable")
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, fc *clock.FakeClock, provider email.Provider) *Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &Service{
		db:         db,
		log:        zap.NewNop(),
		genID:      node,
		clock:      fc,
		billingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		email:      provider,
		store:      repository.ProvideStore[notificationdomain.Notification](db),
	}
}

func TestNotifySuppressesSameSource(t *testing.T) {
	db := newTestDB(t)
	fc := clock.NewFakeClock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fc, &email.NoOpProvider{})

	userID := svc.genID.Generate()
	sourceID := svc.genID.Generate()
	input := notificationdomain.NotifyInput{
		UserID:     userID,
		Title:      "Paiement en retard",
		Message:    "en retard",
		Type:       notificationdomain.TypeLatePayment,
		Link:       "/paiements/retard",
		SourceID:   &sourceID,
		SourceType: notificationdomain.SourceTypePayment,
	}

	first, err := svc.Notify(context.Background(), input)
	require.NoError(t, err)
	require.False(t, first.Suppressed)
	require.NotEmpty(t, first.NotificationID)

	// Even a month later and read, the same source stays suppressed.
	require.NoError(t, svc.MarkRead(context.Background(), userID, first.NotificationID))
	fc.Advance(30 * 24 * time.Hour)

	second, err := svc.Notify(context.Background(), input)
	require.NoError(t, err)
	require.True(t, second.Suppressed)

	var count int64
	require.NoError(t, db.Model(&notificationdomain.Notification{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestNotifySuppressesUnreadSameLink(t *testing.T) {
	db := newTestDB(t)
	fc := clock.NewFakeClock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fc, &email.NoOpProvider{})

	userID := svc.genID.Generate()
	first, err := svc.Notify(context.Background(), notificationdomain.NotifyInput{
		UserID:  userID,
		Title:   "Info",
		Message: "premiere",
		Type:    notificationdomain.TypeInfo,
		Link:    "/factures",
	})
	require.NoError(t, err)
	require.False(t, first.Suppressed)

	// Far outside the dedup window, but still unread.
	fc.Advance(60 * 24 * time.Hour)

	second, err := svc.Notify(context.Background(), notificationdomain.NotifyInput{
		UserID:  userID,
		Title:   "Info",
		Message: "seconde",
		Type:    notificationdomain.TypeInfo,
		Link:    "/factures",
	})
	require.NoError(t, err)
	require.True(t, second.Suppressed)
}

func TestNotifySuppressesReadLinkInsideWindow(t *testing.T) {
	db := newTestDB(t)
	fc := clock.NewFakeClock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fc, &email.NoOpProvider{})

	userID := svc.genID.Generate()
	first, err := svc.Notify(context.Background(), notificationdomain.NotifyInput{
		UserID:  userID,
		Title:   "Info",
		Message: "premiere",
		Type:    notificationdomain.TypeInfo,
		Link:    "/factures",
	})
	require.NoError(t, err)
	require.NoError(t, svc.MarkRead(context.Background(), userID, first.NotificationID))

	// Read, but only three days old: still inside the 7-day window.
	fc.Advance(3 * 24 * time.Hour)
	second, err := svc.Notify(context.Background(), notificationdomain.NotifyInput{
		UserID:  userID,
		Title:   "Info",
		Message: "seconde",
		Type:    notificationdomain.TypeInfo,
		Link:    "/factures",
	})
	require.NoError(t, err)
	require.True(t, second.Suppressed)

	// Read and past the window: allowed again.
	fc.Advance(10 * 24 * time.Hour)
	third, err := svc.Notify(context.Background(), notificationdomain.NotifyInput{
		UserID:  userID,
		Title:   "Info",
		Message: "troisieme",
		Type:    notificationdomain.TypeInfo,
		Link:    "/factures",
	})
	require.NoError(t, err)
	require.False(t, third.Suppressed)
}

func TestNotifyEmailFailureKeepsRow(t *testing.T) {
	db := newTestDB(t)
	fc := clock.NewFakeClock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fc, failingEmail{})

	res, err := svc.Notify(context.Background(), notificationdomain.NotifyInput{
		UserID:    svc.genID.Generate(),
		UserEmail: "admin@kekeligroup.com",
		Title:     "Info",
		Message:   "message",
		Type:      notificationdomain.TypeInfo,
		Link:      "/factures",
	})
	require.NoError(t, err)
	require.False(t, res.Suppressed)
	require.False(t, res.EmailSent)
	require.Contains(t, res.EmailError, "smtp unreachable")

	var count int64
	require.NoError(t, db.Model(&notificationdomain.Notification{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	fc := clock.NewFakeClock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fc, &email.NoOpProvider{})

	owner := svc.genID.Generate()
	res, err := svc.Notify(context.Background(), notificationdomain.NotifyInput{
		UserID:  owner,
		Title:   "Info",
		Message: "message",
		Type:    notificationdomain.TypeInfo,
		Link:    "/factures",
	})
	require.NoError(t, err)

	stranger := svc.genID.Generate()
	err = svc.MarkRead(context.Background(), stranger, res.NotificationID)
	require.ErrorIs(t, err, notificationdomain.ErrNotificationNotFound)

	require.NoError(t, svc.MarkRead(context.Background(), owner, res.NotificationID))

	unread, err := svc.ListForUser(context.Background(), notificationdomain.ListRequest{
		UserID:     owner,
		UnreadOnly: true,
	})
	require.NoError(t, err)
	require.Empty(t, unread)
}
