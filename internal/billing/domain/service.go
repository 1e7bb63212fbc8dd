// Package domain defines the billing cycle engine contract.
package domain

import (
	"context"
	"time"
)

// InvoiceCreated reports one successfully invoiced subscription cycle.
type InvoiceCreated struct {
	SubscriptionID string    `json:"subscriptionId"`
	InvoiceID      string    `json:"invoiceId"`
	Number         string    `json:"numero"`
	Amount         float64   `json:"montant"`
	TotalAmount    float64   `json:"montantTotal"`
	DueAt          time.Time `json:"dateEcheance"`
	NextBillingAt  time.Time `json:"prochaineFacturation"`
}

// SubscriptionError reports one isolated per-subscription failure. The
// subscription keeps its previous next-billing-date and counter and will be
// retried on the next run.
type SubscriptionError struct {
	SubscriptionID string `json:"subscriptionId"`
	Reason         string `json:"reason"`
}

// BatchResult summarizes one invoice generation pass.
type BatchResult struct {
	Selected int                 `json:"selected"`
	Created  []InvoiceCreated    `json:"created"`
	Errors   []SubscriptionError `json:"errors,omitempty"`
}

// UpcomingInvoice previews a subscription cycle due within the horizon.
type UpcomingInvoice struct {
	SubscriptionID string    `json:"subscriptionId"`
	Name           string    `json:"nom"`
	ClientID       string    `json:"clientId"`
	Amount         float64   `json:"montant"`
	BillingAt      time.Time `json:"prochaineFacturation"`
}

type Service interface {
	// GenerateDueInvoices invoices every active subscription whose
	// next-billing-date has been reached. Safe to re-run with the same now.
	GenerateDueInvoices(ctx context.Context, now time.Time) (BatchResult, error)
	// UpcomingInvoices previews cycles falling due within the configured horizon.
	UpcomingInvoices(ctx context.Context, now time.Time) ([]UpcomingInvoice, error)
}
