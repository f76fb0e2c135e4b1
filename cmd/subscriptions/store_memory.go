package subscriptions

import (
	"context"
	"sort"
	"sync"
	"time"

	"herald/cmd/identity/ids"
)

// MemoryStore is an in-process Store. Data is lost on restart.
// It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Subscription
	byNorm map[string]string // lower(email) -> id
	now    func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Subscription),
		byNorm: make(map[string]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Insert(ctx context.Context, ns NewSubscriber) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return Subscription{}, err
	}

	now := s.now()
	id, err := ids.NewULID(now)
	if err != nil {
		return Subscription{}, err
	}
	norm := normalizeEmail(ns.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byNorm[norm]; taken {
		return Subscription{}, ErrAlreadySubscribed
	}
	sub := Subscription{
		ID:           id,
		Email:        string(ns.Email),
		Name:         string(ns.Name),
		Status:       StatusPending,
		SubscribedAt: now,
	}
	s.byID[id] = &sub
	s.byNorm[norm] = id
	return sub, nil
}

func (s *MemoryStore) Confirm(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	sub.Status = StatusConfirmed
	return nil
}

// ConfirmedEmails returns addresses in subscription order.
func (s *MemoryStore) ConfirmedEmails(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	rows := make([]Subscription, 0, len(s.byID))
	for _, sub := range s.byID {
		if sub.Status == StatusConfirmed {
			rows = append(rows, *sub)
		}
	}
	s.mu.RUnlock()

	// ULIDs sort by creation time.
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Email
	}
	return out, nil
}

// putRaw stores a confirmed row without validation. Tests use it to model
// rows written under older rules.
func (s *MemoryStore) putRaw(email, name string) string {
	now := s.now()
	id, _ := ids.NewULID(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id] = &Subscription{ID: id, Email: email, Name: name, Status: StatusConfirmed, SubscribedAt: now}
	s.byNorm[normalizeEmail(Email(email))] = id
	return id
}

var _ Store = (*MemoryStore)(nil)
