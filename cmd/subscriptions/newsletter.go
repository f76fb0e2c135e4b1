package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Issue is one newsletter edition. Both bodies are sent; clients pick one.
type Issue struct {
	Title string
	HTML  string
	Text  string
}

func (i Issue) validate() error {
	switch {
	case strings.TrimSpace(i.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidIssue)
	case strings.TrimSpace(i.HTML) == "" && strings.TrimSpace(i.Text) == "":
		return fmt.Errorf("%w: content is required", ErrInvalidIssue)
	}
	return nil
}

// EmailSender delivers one issue to one recipient.
type EmailSender interface {
	Send(ctx context.Context, to Email, issue Issue) error
}

// Report summarizes a Publish run.
type Report struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
}

// Publisher sends issues to confirmed subscribers.
type Publisher struct {
	store  Store
	sender EmailSender
	log    *slog.Logger
}

// NewPublisher wires a Publisher. log may be nil.
func NewPublisher(store Store, sender EmailSender, log *slog.Logger) (*Publisher, error) {
	if store == nil || sender == nil {
		return nil, errors.New("subscriptions: publisher needs a store and a sender")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{store: store, sender: sender, log: log}, nil
}

// Publish sends issue to every confirmed subscriber.
//
// A stored address that no longer parses is skipped with a warning; it is a
// data problem, not a delivery failure. The first send error stops the run
// and is returned together with the counts so far.
func (p *Publisher) Publish(ctx context.Context, issue Issue) (Report, error) {
	var rep Report
	if err := issue.validate(); err != nil {
		return rep, err
	}

	emails, err := p.store.ConfirmedEmails(ctx)
	if err != nil {
		return rep, fmt.Errorf("list confirmed subscribers: %w", err)
	}

	for _, raw := range emails {
		to, err := ParseEmail(raw)
		if err != nil {
			rep.Skipped++
			p.log.WarnContext(ctx, "newsletter.subscriber.skipped",
				"reason", "stored contact details are invalid",
				"err", err)
			continue
		}
		if err := p.sender.Send(ctx, to, issue); err != nil {
			return rep, fmt.Errorf("send newsletter issue to %s: %w", to, err)
		}
		rep.Sent++
	}
	return rep, nil
}

// LogSender records deliveries in the log instead of sending mail. It is the
// sender used when no mail transport is configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(ctx context.Context, to Email, issue Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "newsletter.delivered",
		"to", string(to),
		"title", issue.Title,
		"html_bytes", len(issue.HTML),
		"text_bytes", len(issue.Text))
	return nil
}
