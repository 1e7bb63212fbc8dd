package domain

import (
	"context"
	"errors"
	"time"

	"github.com/kekeligroup/backoffice/internal/billing/period"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidFrequency     = errors.New("invalid_frequency")
	ErrInvalidStartDate     = errors.New("invalid_start_date")
	ErrTerminalStatus       = errors.New("subscription_terminal")
)

type CreateSubscriptionRequest struct {
	ClientID    string           `json:"clientId"`
	Name        string           `json:"nom"`
	Description string           `json:"description"`
	Amount      float64          `json:"montant"`
	Frequency   period.Frequency `json:"frequence"`
	StartAt     time.Time        `json:"dateDebut"`
	EndAt       *time.Time       `json:"dateFin,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

type UpdateSubscriptionRequest struct {
	Name        *string    `json:"nom,omitempty"`
	Description *string    `json:"description,omitempty"`
	Amount      *float64   `json:"montant,omitempty"`
	EndAt       *time.Time `json:"dateFin,omitempty"`
}

type ListSubscriptionRequest struct {
	Status   string
	ClientID string
}

// FlaggedSubscription is one subscription moved to EN_RETARD by the reconciler.
type FlaggedSubscription struct {
	SubscriptionID string `json:"subscriptionId"`
	Name           string `json:"nom"`
	DaysLate       int    `json:"joursRetard"`
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Scanned int                   `json:"scanned"`
	Flagged []FlaggedSubscription `json:"flagged"`
}

type Service interface {
	Create(ctx context.Context, req CreateSubscriptionRequest) (Subscription, error)
	Update(ctx context.Context, id string, req UpdateSubscriptionRequest) (Subscription, error)
	Cancel(ctx context.Context, id string) (Subscription, error)
	GetByID(ctx context.Context, id string) (Subscription, error)
	List(ctx context.Context, req ListSubscriptionRequest) ([]Subscription, error)
	ReconcileLateStatuses(ctx context.Context, now time.Time) (ReconcileResult, error)
}
