package broadcast

import "context"

// Handler receives a delivered event. Handlers must be tolerant of duplicate
// and out-of-order delivery; the channel makes no cross-subscriber ordering
// guarantee.
type Handler func(ev Event)

// Topic is a per-session publish/subscribe channel. Self-delivery is
// guaranteed: a publisher that also subscribes receives its own events after
// the channel round-trips them. The engine relies on that — all state
// changes, including the local player's own, arrive through the topic.
type Topic interface {
	// Publish fans the event out to every subscriber of the session,
	// including this topic's own handlers. Fire-and-forget semantics:
	// a nil error means the event was accepted, not that every peer saw it.
	Publish(ctx context.Context, eventType EventType, payload any) error

	// Subscribe registers h for one event type and returns an unsubscribe
	// function. Safe to call multiple times for the same type.
	Subscribe(eventType EventType, h Handler) (func(), error)

	// Close tears down the topic's subscriptions. Events delivered after
	// Close are dropped.
	Close() error
}

// Broker hands out per-session topics.
type Broker interface {
	Topic(sessionID string) Topic
}
