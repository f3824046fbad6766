package socket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jamaah_server/services"
)

const snapshotTimeout = 10 * time.Second

// SnapshotFunc re-derives the full current matching set for a feed.
type SnapshotFunc func(ctx context.Context) (interface{}, error)

// Hub maintains the live feeds. Each (user, topic) pair has at most one
// active subscription; every Publish re-runs each subscriber's snapshot
// and delivers the complete set, not a diff — consumers re-render
// idempotently.
type Hub struct {
	mu    sync.Mutex
	feeds map[string]map[string]*Subscription // topic -> userID -> subscription
}

// Subscription is the disposable handle for one live feed. Release stops
// delivery synchronously: once it returns, no further callback runs.
type Subscription struct {
	hub    *Hub
	topic  string
	userID string

	snapshot SnapshotFunc
	deliver  func(interface{})
	onError  func(error)

	mu       sync.Mutex
	released bool
}

func NewHub() *Hub {
	return &Hub{feeds: make(map[string]map[string]*Subscription)}
}

// Subscribe registers a live feed for a (user, topic) pair and immediately
// pushes the current set. Subscribing again for the same pair releases the
// previous handle first, so a stale handle can never keep delivering
// behind a fresh one.
func (h *Hub) Subscribe(userID, topic string, snapshot SnapshotFunc, deliver func(interface{}), onError func(error)) *Subscription {
	sub := &Subscription{
		hub:      h,
		topic:    topic,
		userID:   userID,
		snapshot: snapshot,
		deliver:  deliver,
		onError:  onError,
	}

	h.mu.Lock()
	subs, ok := h.feeds[topic]
	if !ok {
		subs = make(map[string]*Subscription)
		h.feeds[topic] = subs
	}
	previous := subs[userID]
	subs[userID] = sub
	h.mu.Unlock()

	if previous != nil {
		previous.Release()
	}

	sub.push()
	return sub
}

// Publish notifies every subscriber of a topic that the underlying data
// changed. Each subscriber gets a freshly derived full set.
func (h *Hub) Publish(topic string) {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.feeds[topic]))
	for _, sub := range h.feeds[topic] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.push()
	}
}

// Release stops the feed. It synchronizes with in-flight deliveries: an
// emit in progress holds the subscription lock, so Release returns only
// after it finishes, and no callback starts afterwards.
func (s *Subscription) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()

	s.hub.mu.Lock()
	if subs, ok := s.hub.feeds[s.topic]; ok && subs[s.userID] == s {
		delete(subs, s.userID)
		if len(subs) == 0 {
			delete(s.hub.feeds, s.topic)
		}
	}
	s.hub.mu.Unlock()
}

func (s *Subscription) push() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	payload, err := s.snapshot(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	if err != nil {
		// The feed reports a failure, it does not crash; the
		// subscriber decides when to resubscribe.
		if s.onError != nil {
			s.onError(fmt.Errorf("%w: %v", services.ErrSubscriptionFailure, err))
		}
		return
	}
	s.deliver(payload)
}
