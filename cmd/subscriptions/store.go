package subscriptions

import (
	"context"
	"time"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusPending   Status = "pending_confirmation"
	StatusConfirmed Status = "confirmed"
)

// Subscription is a stored subscriber.
type Subscription struct {
	ID           string
	Email        string
	Name         string
	Status       Status
	SubscribedAt time.Time
}

// Store persists subscriptions.
//
// ConfirmedEmails returns addresses as stored, without re-validation: rows
// written under older rules may no longer parse, and callers decide what to
// do with them.
type Store interface {
	Insert(ctx context.Context, s NewSubscriber) (Subscription, error)
	Confirm(ctx context.Context, id string) error
	ConfirmedEmails(ctx context.Context) ([]string, error)
}
