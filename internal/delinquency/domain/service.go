// Package domain defines the delinquency detection contract.
package domain

import (
	"context"
	"time"
)

// LatePayment is one pending payment past its resolved due date.
type LatePayment struct {
	PaymentID     string    `json:"paiementId"`
	InvoiceID     string    `json:"factureId,omitempty"`
	InvoiceNumber string    `json:"numeroFacture,omitempty"`
	ProjectID     string    `json:"projetId,omitempty"`
	ClientID      string    `json:"clientId,omitempty"`
	ClientName    string    `json:"nomClient,omitempty"`
	Amount        float64   `json:"montant"`
	DueAt         time.Time `json:"dateEcheance"`
	DaysLate      int       `json:"joursRetard"`
}

// CheckResult summarizes one notify pass over the late set.
type CheckResult struct {
	Late          int `json:"late"`
	Observers     int `json:"observers"`
	Notified      int `json:"notified"`
	Suppressed    int `json:"suppressed"`
	EmailFailures int `json:"emailFailures"`
}

type Service interface {
	// FindLatePayments is a pure scan: it never mutates state and is safe to
	// call arbitrarily often. Results are sorted by days late, worst first.
	FindLatePayments(ctx context.Context, now time.Time) ([]LatePayment, error)
	// CheckAndNotify runs the scan, then emits one dedup-gated alert per
	// (late payment, observer) pair.
	CheckAndNotify(ctx context.Context, now time.Time) (CheckResult, error)
}
