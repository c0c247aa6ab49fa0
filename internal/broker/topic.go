// Package broker implements the in-memory broadcast topic that fans a
// published payload out to every subscribed session sink.
package broker

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrSinkClosed is returned by a Sink whose underlying connection has been
// torn down.
var ErrSinkClosed = errors.New("sink closed")

// ErrSinkFull is returned by a Sink whose delivery buffer is saturated.
var ErrSinkFull = errors.New("sink buffer full")

// Sink delivers a payload to one connected client. Deliver must not block:
// implementations queue into a bounded buffer and report failure when the
// buffer is full or the connection is gone.
type Sink interface {
	Deliver(payload []byte) error
}

// Topic is the fan-out registry mapping topic names to their current
// subscriber sets. One Topic instance is constructed at startup and shared
// by the session manager (membership) and the relay service (publishing).
//
// Publish runs under the topic mutex, so concurrent publishers are
// serialized and every subscriber observes the same global delivery order.
type Topic struct {
	log zerolog.Logger

	mu      sync.Mutex
	subs    map[string]map[Sink]struct{}
	onEvict func(name string, sink Sink)
}

// NewTopic creates an empty topic registry.
func NewTopic(log zerolog.Logger) *Topic {
	return &Topic{
		log:  log.With().Str("component", "broker").Logger(),
		subs: make(map[string]map[Sink]struct{}),
	}
}

// Subscribe adds sink to the named topic's membership. Subscribing the same
// sink twice is a no-op.
func (t *Topic) Subscribe(name string, sink Sink) {
	if sink == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.subs[name]
	if !ok {
		members = make(map[Sink]struct{})
		t.subs[name] = members
	}
	members[sink] = struct{}{}
	t.log.Debug().Str("topic", name).Int("subscribers", len(members)).Msg("sink subscribed")
}

// Unsubscribe removes sink from the named topic's membership. Removing an
// absent sink is a no-op.
func (t *Topic) Unsubscribe(name string, sink Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.subs[name]
	if !ok {
		return
	}
	if _, ok := members[sink]; !ok {
		return
	}
	delete(members, sink)
	if len(members) == 0 {
		delete(t.subs, name)
	}
	t.log.Debug().Str("topic", name).Int("subscribers", len(members)).Msg("sink unsubscribed")
}

// SetEvictionHandler registers fn to be called for every sink dropped from
// membership after a failed delivery, so the sink's owner can tear the
// session down. fn is invoked without the topic lock held and may call back
// into the topic.
func (t *Topic) SetEvictionHandler(fn func(name string, sink Sink)) {
	t.mu.Lock()
	t.onEvict = fn
	t.mu.Unlock()
}

// Subscribers returns the current membership size of the named topic.
func (t *Topic) Subscribers(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs[name])
}

// Publish delivers payload to every sink currently subscribed to the named
// topic. Delivery to each sink is independent and best-effort: a sink that
// fails is dropped from membership and the failure never reaches the other
// sinks or the publisher. The number of successful deliveries is returned.
func (t *Topic) Publish(name string, payload []byte) int {
	t.mu.Lock()

	members := t.subs[name]
	delivered := 0
	var failed []Sink

	for sink := range members {
		if err := sink.Deliver(payload); err != nil {
			t.log.Warn().Str("topic", name).Err(err).Msg("dropping sink after failed delivery")
			failed = append(failed, sink)
			continue
		}
		delivered++
	}

	for _, sink := range failed {
		delete(members, sink)
	}
	if len(members) == 0 {
		delete(t.subs, name)
	}
	onEvict := t.onEvict
	t.mu.Unlock()

	if onEvict != nil {
		for _, sink := range failed {
			onEvict(name, sink)
		}
	}

	return delivered
}
