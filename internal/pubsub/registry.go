// Package pubsub implements the topic-keyed subscription registry that fans
// real-time insights out to UI consumers. It is the only cross-session
// shared state in the core; everything else is owned per session.
package pubsub

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Callback receives one published payload. Callbacks run on the publisher's
// goroutine; a panicking callback is isolated and reported, it never takes
// down the publish or its neighbours.
type Callback func(topic string, payload interface{})

// CallbackError reports a subscriber callback that panicked during publish.
type CallbackError struct {
	Topic          string
	SubscriptionID string
	Recovered      interface{}
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("subscriber %s on topic %q panicked: %v", e.SubscriptionID, e.Topic, e.Recovered)
}

// Delivery is the per-subscriber outcome of one publish.
type Delivery struct {
	SubscriptionID string
	Err            error
}

type subscription struct {
	id string
	fn Callback
}

// Registry is a thread-safe topic → subscriber registry. Publish iterates a
// snapshot of the subscriber list taken under the lock, so concurrent
// subscribe/unsubscribe cannot skip or double-invoke a neighbour.
type Registry struct {
	mu     sync.RWMutex
	topics map[string][]subscription
	log    zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		topics: make(map[string][]subscription),
		log:    log.With().Str("component", "pubsub").Logger(),
	}
}

// Subscribe registers a callback for a topic and returns its subscription ID.
// The same callback may be registered more than once; it is then invoked once
// per registration.
func (r *Registry) Subscribe(topic string, fn Callback) string {
	id := uuid.New().String()
	r.mu.Lock()
	r.topics[topic] = append(r.topics[topic], subscription{id: id, fn: fn})
	r.mu.Unlock()
	r.log.Debug().Str("topic", topic).Str("subscription", id).Msg("subscribed")
	return id
}

// Unsubscribe removes the subscription with the given ID from a topic.
// Removing an unknown subscription is a no-op. A subscription removed while
// a publish is in flight still receives that publish (snapshot semantics)
// and is excluded from the next one.
func (r *Registry) Unsubscribe(topic, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.topics[topic]
	for i, s := range subs {
		if s.id == id {
			r.topics[topic] = append(append([]subscription(nil), subs[:i]...), subs[i+1:]...)
			if len(r.topics[topic]) == 0 {
				delete(r.topics, topic)
			}
			return true
		}
	}
	return false
}

// Publish delivers payload to every current subscriber of topic, in
// registration order, and returns the per-subscriber outcomes. A callback
// panic is recovered, logged, and recorded; remaining callbacks still run.
func (r *Registry) Publish(topic string, payload interface{}) []Delivery {
	r.mu.RLock()
	snapshot := make([]subscription, len(r.topics[topic]))
	copy(snapshot, r.topics[topic])
	r.mu.RUnlock()

	deliveries := make([]Delivery, 0, len(snapshot))
	for _, s := range snapshot {
		deliveries = append(deliveries, Delivery{
			SubscriptionID: s.id,
			Err:            r.invoke(topic, s, payload),
		})
	}
	return deliveries
}

func (r *Registry) invoke(topic string, s subscription, payload interface{}) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &CallbackError{Topic: topic, SubscriptionID: s.id, Recovered: rec}
			r.log.Error().Str("topic", topic).Str("subscription", s.id).
				Interface("panic", rec).Msg("subscriber callback panicked")
		}
	}()
	s.fn(topic, payload)
	return nil
}

// SubscriberCount returns the number of subscriptions currently registered
// for a topic.
func (r *Registry) SubscriberCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}
