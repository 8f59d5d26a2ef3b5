package streaming

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"upiguard/pkg/logger"
)

const subscriberBuffer = 100

type subscriber struct {
	ch  chan *FraudEvent
	sub *Subscription
}

// EventBus fans fraud events out to local subscribers and, when configured,
// to NATS so that every instance sees every event.
type EventBus struct {
	nats     *NATSPublisher
	instance string
	logger   *logger.Logger

	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
	nextID      uint64
	closed      bool
}

// NewEventBus creates an event bus. nats may be nil.
func NewEventBus(nats *NATSPublisher, log *logger.Logger) *EventBus {
	return &EventBus{
		nats:        nats,
		instance:    uuid.New().String(),
		logger:      log.WithComponent("event-bus"),
		subscribers: make(map[uint64]*subscriber),
	}
}

// Publish stamps the event with this instance and delivers it. A NATS
// failure is logged; local delivery still happens.
func (eb *EventBus) Publish(ctx context.Context, event *FraudEvent) error {
	event.Origin = eb.instance

	if eb.nats != nil && eb.nats.IsConnected() {
		if err := eb.nats.Publish(ctx, event); err != nil {
			eb.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to publish to NATS, delivering locally only")
		}
	}

	eb.deliver(event)
	return nil
}

func (eb *EventBus) deliver(event *FraudEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for id, s := range eb.subscribers {
		if !s.sub.Matches(event) {
			continue
		}
		select {
		case s.ch <- event:
		default:
			eb.logger.Debug().Uint64("subscriber", id).Msg("subscriber channel full, dropping event")
		}
	}
}

// Subscribe registers a local subscriber. With NATS connected, events
// published by other instances are forwarded as well. The returned func
// unsubscribes and closes the channel.
func (eb *EventBus) Subscribe(ctx context.Context, sub *Subscription) (<-chan *FraudEvent, func()) {
	s := &subscriber{ch: make(chan *FraudEvent, subscriberBuffer), sub: sub}

	eb.mu.Lock()
	eb.nextID++
	id := eb.nextID
	if eb.closed {
		close(s.ch)
	} else {
		eb.subscribers[id] = s
	}
	eb.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	unsubscribe := func() {
		cancel()
		eb.mu.Lock()
		defer eb.mu.Unlock()
		if _, ok := eb.subscribers[id]; ok {
			delete(eb.subscribers, id)
			close(s.ch)
		}
	}

	if eb.nats != nil && eb.nats.IsConnected() {
		remote, err := eb.nats.Subscribe(ctx, sub)
		if err != nil {
			eb.logger.Warn().Err(err).Msg("remote events unavailable for subscriber")
		} else {
			go eb.forward(ctx, id, remote)
		}
	}

	return s.ch, unsubscribe
}

// forward relays events from other instances; our own arrive through deliver
func (eb *EventBus) forward(ctx context.Context, id uint64, remote <-chan *FraudEvent) {
	for event := range remote {
		if event.Origin == eb.instance {
			continue
		}
		eb.mu.RLock()
		s, ok := eb.subscribers[id]
		if ok {
			select {
			case s.ch <- event:
			case <-ctx.Done():
			default:
			}
		}
		eb.mu.RUnlock()
		if !ok {
			return
		}
	}
}

// SubscriberCount returns the number of local subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// Close drops all subscribers and the NATS connection
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for id, s := range eb.subscribers {
		close(s.ch)
		delete(eb.subscribers, id)
	}
	eb.closed = true

	if eb.nats != nil {
		eb.nats.Close()
	}
}
