package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kekeligroup/backoffice/internal/billing/period"
	"github.com/kekeligroup/backoffice/internal/clock"
	subscriptiondomain "github.com/kekeligroup/backoffice/internal/subscription/domain"
	"github.com/kekeligroup/backoffice/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  subscriptiondomain.Repository
	store repository.Repository[subscriptiondomain.Subscription]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  subscriptiondomain.Repository
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		store: repository.ProvideStore[subscriptiondomain.Subscription](p.DB),
	}
}

// Create validates the request, then persists the subscription as ACTIF with
// its first next-billing-date one full period after the start date. Nothing
// is written until every validation passes.
func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.Subscription, error) {
	clientID, err := parseID(req.ClientID, subscriptiondomain.ErrInvalidClient)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidName
	}
	if req.Amount <= 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidAmount
	}
	if !req.Frequency.Valid() {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidFrequency
	}
	if req.StartAt.IsZero() {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidStartDate
	}
	if req.EndAt != nil && !req.EndAt.After(req.StartAt) {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidStartDate
	}

	now := s.clock.Now()
	subscription := subscriptiondomain.Subscription{
		ID:            s.genID.Generate(),
		ClientID:      clientID,
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		Amount:        req.Amount,
		Frequency:     req.Frequency,
		Status:        subscriptiondomain.StatusActive,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
		NextBillingAt: period.Next(req.StartAt, req.Frequency),
		Metadata:      datatypes.JSONMap(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Create(ctx, &subscription); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	s.log.Info("subscription created",
		zap.String("subscription_id", subscription.ID.String()),
		zap.String("frequency", string(subscription.Frequency)),
		zap.Time("next_billing_at", subscription.NextBillingAt),
	)
	return subscription, nil
}

func (s *Service) Update(ctx context.Context, id string, req subscriptiondomain.UpdateSubscriptionRequest) (subscriptiondomain.Subscription, error) {
	subscription, err := s.getByID(ctx, id)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if subscription.Status.Terminal() {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrTerminalStatus
	}

	updates := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidName
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidAmount
		}
		updates["amount"] = *req.Amount
	}
	if req.EndAt != nil {
		updates["end_at"] = *req.EndAt
	}

	if err := s.store.Update(ctx, int64(subscription.ID), updates); err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return s.getByID(ctx, id)
}

// Cancel marks the subscription ANNULE and stamps its end date. The state is
// terminal: no further invoices, no further transitions.
func (s *Service) Cancel(ctx context.Context, id string) (subscriptiondomain.Subscription, error) {
	subscription, err := s.getByID(ctx, id)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if subscription.Status.Terminal() {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrTerminalStatus
	}

	now := s.clock.Now()
	updates := map[string]any{
		"status":     subscriptiondomain.StatusCanceled,
		"end_at":     now,
		"updated_at": now,
	}
	if err := s.store.Update(ctx, int64(subscription.ID), updates); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	s.log.Info("subscription canceled", zap.String("subscription_id", subscription.ID.String()))
	return s.getByID(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id string) (subscriptiondomain.Subscription, error) {
	return s.getByID(ctx, id)
}

func (s *Service) List(ctx context.Context, req subscriptiondomain.ListSubscriptionRequest) ([]subscriptiondomain.Subscription, error) {
	filter := &subscriptiondomain.Subscription{}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = subscriptiondomain.Status(status)
	}
	if req.ClientID != "" {
		clientID, err := parseID(req.ClientID, subscriptiondomain.ErrInvalidClient)
		if err != nil {
			return nil, err
		}
		filter.ClientID = clientID
	}

	items, err := s.store.Find(ctx, filter, repository.OrderBy("created_at ASC"))
	if err != nil {
		return nil, err
	}
	out := make([]subscriptiondomain.Subscription, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

// ReconcileLateStatuses flags every non-terminal subscription holding at
// least one pending invoice past due as EN_RETARD. Re-applying it to an
// already-late subscription rewrites the same value; terminal subscriptions
// are excluded at the query and guarded again on write.
func (s *Service) ReconcileLateStatuses(ctx context.Context, now time.Time) (subscriptiondomain.ReconcileResult, error) {
	overdue, err := s.repo.FindOverdue(ctx, s.db, now)
	if err != nil {
		return subscriptiondomain.ReconcileResult{}, err
	}

	result := subscriptiondomain.ReconcileResult{Scanned: len(overdue)}
	var errs []error
	for _, candidate := range overdue {
		if err := s.repo.MarkLate(ctx, s.db, candidate.SubscriptionID, now); err != nil {
			s.log.Error("mark late failed",
				zap.String("subscription_id", candidate.SubscriptionID.String()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("subscription %s: %w", candidate.SubscriptionID, err))
			continue
		}

		daysLate := int(now.Sub(candidate.OldestDueAt).Hours() / 24)
		if daysLate < 0 {
			daysLate = 0
		}
		result.Flagged = append(result.Flagged, subscriptiondomain.FlaggedSubscription{
			SubscriptionID: candidate.SubscriptionID.String(),
			Name:           candidate.Name,
			DaysLate:       daysLate,
		})
	}

	return result, errors.Join(errs...)
}

func (s *Service) getByID(ctx context.Context, id string) (subscriptiondomain.Subscription, error) {
	parsed, err := parseID(id, subscriptiondomain.ErrSubscriptionNotFound)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	subscription, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if subscription == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *subscription, nil
}

func parseID(raw string, sentinel error) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, sentinel
	}
	return parsed, nil
}
