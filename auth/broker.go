package auth

import (
	"sync"

	"motorsporthub/models"
)

type EventKind string

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is a session change for one browser. Session is nil after sign-out.
type Event struct {
	Kind    EventKind
	Key     string
	Session *models.Session
}

// Broker fans session change events out to the subscriptions of each browser key.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription delivers events for one key to fn until Close is called.
type Subscription struct {
	broker *Broker
	key    string
	fn     func(Event)
	once   sync.Once
}

// Subscribe registers fn for events published under key.
func (b *Broker) Subscribe(key string, fn func(Event)) *Subscription {
	sub := &Subscription{broker: b, key: key, fn: fn}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[key]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[key] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Publish delivers ev to every subscription of ev.Key before returning.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs[ev.Key]))
	for sub := range b.subs[ev.Key] {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		sub.fn(ev)
	}
}

// Count returns the number of live subscriptions for key.
func (b *Broker) Count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key])
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		b := s.broker
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[s.key]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(b.subs, s.key)
			}
		}
	})
}
