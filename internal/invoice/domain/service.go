package domain

import (
	"context"
	"errors"
)

var (
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrAmbiguousSource  = errors.New("invoice_ambiguous_source")
	ErrDuplicateNumber  = errors.New("invoice_duplicate_number")
	ErrInvalidInvoiceID = errors.New("invalid_invoice_id")
)

type ListInvoiceRequest struct {
	Status         string
	ClientID       string
	SubscriptionID string
}

type Service interface {
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) ([]Invoice, error)
}
