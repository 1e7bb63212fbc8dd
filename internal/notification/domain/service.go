package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotificationNotFound = errors.New("notification_not_found")
	ErrInvalidRecipient     = errors.New("invalid_recipient")
	ErrEmptyKey             = errors.New("empty_dedup_key")
)

// Key identifies the underlying event for dedup purposes: a concrete source
// record when available, otherwise the link shown to the recipient.
type Key struct {
	UserID     snowflake.ID
	SourceID   *snowflake.ID
	SourceType string
	Link       string
}

type NotifyInput struct {
	UserID     snowflake.ID
	UserEmail  string
	Title      string
	Message    string
	Type       Type
	Link       string
	SourceID   *snowflake.ID
	SourceType string
}

// NotifyResult reports what happened. The row is the durable outcome; email
// is best-effort and its failure never rolls anything back.
type NotifyResult struct {
	Suppressed     bool   `json:"suppressed"`
	NotificationID string `json:"notificationId,omitempty"`
	EmailSent      bool   `json:"emailSent"`
	EmailError     string `json:"emailError,omitempty"`
}

type ListRequest struct {
	UserID     snowflake.ID
	UnreadOnly bool
}

type Service interface {
	// ShouldNotify applies the three suppression rules; false means an alert
	// for this key already reached the recipient.
	ShouldNotify(ctx context.Context, key Key) (bool, error)
	// Notify runs ShouldNotify, then creates the row and attempts one email.
	Notify(ctx context.Context, input NotifyInput) (NotifyResult, error)
	MarkRead(ctx context.Context, userID snowflake.ID, id string) error
	ListForUser(ctx context.Context, req ListRequest) ([]Notification, error)
}
