// Package events provides the in-process event broadcaster that fans
// committed state deltas out to subscribed viewer sessions.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// DefaultSubscriberBuffer is the default per-subscriber channel depth.
// A subscriber that falls this far behind is dropped rather than
// allowed to stall delivery to everyone else.
const DefaultSubscriberBuffer = 64

// Ensure Broadcaster implements the broker port.
var _ ports.EventBroker = (*Broadcaster)(nil)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meme_events_published_total",
		Help: "Events accepted for broadcast, by event type.",
	}, []string{"type"})

	subscribersDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meme_event_subscribers_dropped_total",
		Help: "Subscribers dropped for falling behind.",
	})

	subscribersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meme_event_subscribers_active",
		Help: "Currently connected event subscribers.",
	})
)

// Broadcaster fans events out to all current subscribers. A single
// dispatch goroutine drains the publish queue, so delivery order to any
// one subscriber matches publish order; publishers serialize per meme
// above this layer, which makes publish order equal commit order per
// entity.
type Broadcaster struct {
	logger  *slog.Logger
	publish chan ports.Event
	buffer  int

	mu   sync.Mutex
	subs map[*subscription]struct{}

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Config holds optional broadcaster settings.
type Config struct {
	// SubscriberBuffer is the per-subscriber channel depth.
	// Defaults to DefaultSubscriberBuffer.
	SubscriberBuffer int

	// Logger is the structured logger.
	Logger *slog.Logger
}

// NewBroadcaster creates and starts a broadcaster. Callers must Stop it
// during shutdown.
func NewBroadcaster(cfg Config) *Broadcaster {
	buffer := cfg.SubscriberBuffer
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Broadcaster{
		logger:  logger.With(slog.String("component", "events.Broadcaster")),
		publish: make(chan ports.Event, buffer),
		buffer:  buffer,
		subs:    make(map[*subscription]struct{}),
		done:    make(chan struct{}),
	}

	b.wg.Add(1)
	go b.dispatch()

	return b
}

// Publish implements ports.EventPublisher. It enqueues the event and
// returns without waiting for delivery; the mutation's caller never
// blocks on other sessions.
func (b *Broadcaster) Publish(ctx context.Context, event ports.Event) error {
	select {
	case b.publish <- event:
		eventsPublished.WithLabelValues(event.EventType()).Inc()
		return nil
	case <-b.done:
		return domain.NewUnavailableError("event-broadcaster", "shut down")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe implements ports.EventSubscriber. The subscription ends
// when Close is called, the context is cancelled, or the subscriber
// falls too far behind.
func (b *Broadcaster) Subscribe(ctx context.Context) (ports.Subscription, error) {
	select {
	case <-b.done:
		return nil, domain.NewUnavailableError("event-broadcaster", "shut down")
	default:
	}

	sub := &subscription{
		events: make(chan ports.Event, b.buffer),
		closed: make(chan struct{}),
		remove: b.remove,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	subscribersActive.Inc()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.Close()
			case <-sub.closed:
			}
		}()
	}

	return sub, nil
}

// Stop shuts the broadcaster down, closing every subscription. Pending
// published events are delivered before the dispatch loop exits.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
}

func (b *Broadcaster) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.publish:
			b.deliver(event)
		case <-b.done:
			// Drain anything already accepted, then close out.
			for {
				select {
				case event := <-b.publish:
					b.deliver(event)
				default:
					b.closeAll()
					return
				}
			}
		}
	}
}

// deliver sends the event to every subscriber without blocking. A full
// subscriber buffer means the session cannot keep up; it gets dropped
// and must reconnect and refetch state.
func (b *Broadcaster) deliver(event ports.Event) {
	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if !sub.send(event) {
			subscribersDropped.Inc()
			b.logger.Warn("dropping slow event subscriber",
				slog.String("event_type", event.EventType()),
				slog.String("entity_id", event.EntityID()),
			)
			sub.Close()
		}
	}
}

func (b *Broadcaster) remove(sub *subscription) {
	b.mu.Lock()
	_, ok := b.subs[sub]
	delete(b.subs, sub)
	b.mu.Unlock()

	if ok {
		subscribersActive.Dec()
	}
}

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// subscription is one viewer session's feed.
type subscription struct {
	events chan ports.Event
	closed chan struct{}
	remove func(*subscription)

	mu       sync.Mutex
	finished bool
}

// Events implements ports.Subscription.
func (s *subscription) Events() <-chan ports.Event {
	return s.events
}

// send attempts a non-blocking delivery. It reports false only when the
// subscriber's buffer is full; a closed subscription counts as
// delivered so it is not double-dropped.
func (s *subscription) send(event ports.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return true
	}

	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

// Close implements ports.Subscription. Safe to call more than once,
// including concurrently with delivery.
func (s *subscription) Close() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}

	s.finished = true
	close(s.closed)
	close(s.events)
	s.mu.Unlock()

	s.remove(s)
}
