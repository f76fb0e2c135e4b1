package subscriptions

import "errors"

var (
	ErrInvalidName       = errors.New("subscriptions: invalid subscriber name")
	ErrInvalidEmail      = errors.New("subscriptions: invalid subscriber email")
	ErrAlreadySubscribed = errors.New("subscriptions: email already subscribed")
	ErrNotFound          = errors.New("subscriptions: subscription not found")
	ErrInvalidIssue      = errors.New("subscriptions: invalid newsletter issue")
)
