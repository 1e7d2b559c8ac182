package ports

import (
	"context"
)

// Event represents a committed state delta that can be broadcast.
// The domain event types in internal/domain implement this interface.
type Event interface {
	// EventType returns the type identifier for routing.
	EventType() string

	// EntityID returns the ID of the record the delta applies to.
	// Delivery order is guaranteed per entity, not globally.
	EntityID() string

	// Payload returns the event data for serialization.
	Payload() any
}

// EventPublisher is the mutation-side half of the broadcast contract.
// Publishing is fire-and-forget relative to the mutation's caller; a
// mutation's success response never blocks on delivery to subscribers.
type EventPublisher interface {
	// Publish enqueues an event for fan-out to all current subscribers.
	// Returns domain.ErrUnavailable if the broadcaster has shut down.
	Publish(ctx context.Context, event Event) error
}

// EventSubscriber is the viewer-session half of the broadcast contract.
type EventSubscriber interface {
	// Subscribe registers a new viewer session. The session receives
	// every event committed while it stays subscribed, in per-entity
	// commit order. Events fired before the subscription never replay;
	// late joiners fetch full current state instead.
	Subscribe(ctx context.Context) (Subscription, error)
}

// EventBroker combines both halves for wiring.
type EventBroker interface {
	EventPublisher
	EventSubscriber
}

// Subscription is a live event feed for one viewer session.
type Subscription interface {
	// Events returns the delivery channel. The broadcaster closes it
	// when the subscription ends, including when the session falls too
	// far behind and is dropped.
	Events() <-chan Event

	// Close unsubscribes. Safe to call more than once.
	Close()
}
