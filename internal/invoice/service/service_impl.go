package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/kekeligroup/backoffice/internal/invoice/domain"
	"github.com/kekeligroup/backoffice/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	store repository.Repository[invoicedomain.Invoice]
}

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		store: repository.ProvideStore[invoicedomain.Invoice](p.DB),
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceID
	}

	invoice, err := s.store.FindOne(ctx, &invoicedomain.Invoice{ID: parsed})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
	filter := &invoicedomain.Invoice{}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = invoicedomain.Status(status)
	}
	if req.ClientID != "" {
		clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
		if err != nil {
			return nil, invoicedomain.ErrInvalidInvoiceID
		}
		filter.ClientID = clientID
	}
	if req.SubscriptionID != "" {
		subscriptionID, err := snowflake.ParseString(strings.TrimSpace(req.SubscriptionID))
		if err != nil {
			return nil, invoicedomain.ErrInvalidInvoiceID
		}
		filter.SubscriptionID = &subscriptionID
	}

	items, err := s.store.Find(ctx, filter, repository.OrderBy("issued_at DESC"))
	if err != nil {
		return nil, err
	}
	out := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}
