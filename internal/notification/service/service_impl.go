package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/kekeligroup/backoffice/internal/clock"
	"github.com/kekeligroup/backoffice/internal/config"
	notificationdomain "github.com/kekeligroup/backoffice/internal/notification/domain"
	"github.com/kekeligroup/backoffice/internal/providers/email"
	"github.com/kekeligroup/backoffice/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	billingCfg *config.BillingConfigHolder
	email      email.Provider
	store      repository.Repository[notificationdomain.Notification]
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	BillingCfg *config.BillingConfigHolder
	Email      email.Provider
}

func NewService(p ServiceParam) notificationdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("notification.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		billingCfg: p.BillingCfg,
		email:      p.Email,
		store:      repository.ProvideStore[notificationdomain.Notification](p.DB),
	}
}

// ShouldNotify suppresses the alert when any of the three rules matches:
//
//  1. an alert for the same source record already reached this recipient,
//     whatever its age or read state;
//  2. an unread alert with the same link is still pending for this recipient;
//  3. an alert with the same link was created for this recipient within the
//     dedup window, even if already read.
func (s *Service) ShouldNotify(ctx context.Context, key notificationdomain.Key) (bool, error) {
	if key.UserID == 0 {
		return false, notificationdomain.ErrInvalidRecipient
	}
	if key.SourceID == nil && strings.TrimSpace(key.Link) == "" {
		return false, notificationdomain.ErrEmptyKey
	}

	if key.SourceID != nil {
		var count int64
		err := s.db.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM notifications
			 WHERE user_id = ? AND source_id = ? AND source_type = ?`,
			key.UserID,
			*key.SourceID,
			key.SourceType,
		).Scan(&count).Error
		if err != nil {
			return false, err
		}
		if count > 0 {
			return false, nil
		}
	}

	if link := strings.TrimSpace(key.Link); link != "" {
		var unread int64
		err := s.db.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM notifications
			 WHERE user_id = ? AND link = ? AND is_read = ?`,
			key.UserID,
			link,
			false,
		).Scan(&unread).Error
		if err != nil {
			return false, err
		}
		if unread > 0 {
			return false, nil
		}

		windowDays := s.billingCfg.Get().DedupWindowDays
		cutoff := s.clock.Now().AddDate(0, 0, -windowDays)
		var recent int64
		err = s.db.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM notifications
			 WHERE user_id = ? AND link = ? AND created_at >= ?`,
			key.UserID,
			link,
			cutoff,
		).Scan(&recent).Error
		if err != nil {
			return false, err
		}
		if recent > 0 {
			return false, nil
		}
	}

	return true, nil
}

// Notify creates exactly one notification row when the dedup check passes,
// then attempts exactly one email. Email failure degrades the result, never
// the row.
func (s *Service) Notify(ctx context.Context, input notificationdomain.NotifyInput) (notificationdomain.NotifyResult, error) {
	ok, err := s.ShouldNotify(ctx, notificationdomain.Key{
		UserID:     input.UserID,
		SourceID:   input.SourceID,
		SourceType: input.SourceType,
		Link:       input.Link,
	})
	if err != nil {
		return notificationdomain.NotifyResult{}, err
	}
	if !ok {
		return notificationdomain.NotifyResult{Suppressed: true}, nil
	}

	now := s.clock.Now()
	notification := notificationdomain.Notification{
		ID:         s.genID.Generate(),
		UserID:     input.UserID,
		Title:      input.Title,
		Message:    input.Message,
		Type:       input.Type,
		Link:       strings.TrimSpace(input.Link),
		SourceID:   input.SourceID,
		SourceType: input.SourceType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, &notification); err != nil {
		return notificationdomain.NotifyResult{}, err
	}

	result := notificationdomain.NotifyResult{
		NotificationID: notification.ID.String(),
	}
	if strings.TrimSpace(input.UserEmail) != "" {
		if err := s.email.Send(ctx, []string{input.UserEmail}, input.Title, input.Message); err != nil {
			s.log.Warn("notification email failed",
				zap.String("notification_id", notification.ID.String()),
				zap.Error(err),
			)
			result.EmailError = err.Error()
		} else {
			result.EmailSent = true
		}
	}

	return result, nil
}

func (s *Service) MarkRead(ctx context.Context, userID snowflake.ID, id string) error {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return notificationdomain.ErrNotificationNotFound
	}

	result := s.db.WithContext(ctx).Exec(
		`UPDATE notifications SET is_read = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		true,
		s.clock.Now(),
		parsed,
		userID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notificationdomain.ErrNotificationNotFound
	}
	return nil
}

func (s *Service) ListForUser(ctx context.Context, req notificationdomain.ListRequest) ([]notificationdomain.Notification, error) {
	if req.UserID == 0 {
		return nil, notificationdomain.ErrInvalidRecipient
	}

	stmt := s.db.WithContext(ctx).Where("user_id = ?", req.UserID)
	if req.UnreadOnly {
		stmt = stmt.Where("is_read = ?", false)
	}

	var notifications []notificationdomain.Notification
	if err := stmt.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}
