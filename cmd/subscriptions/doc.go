// Package subscriptions owns the newsletter audience: parsing subscriber
// details, storing subscriptions and delivering an issue to every confirmed
// subscriber.
//
// Delivery goes through an EmailSender. The package does not talk to a mail
// transport itself.
package subscriptions
