// Package events is the in-process publish/subscribe bus the storefront
// composition root owns. Nothing in the engine depends on who listens.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Topic names an event stream.
type Topic string

const (
	TopicAddToCart    Topic = "add-to-cart"
	TopicCheckout     Topic = "checkout"
	TopicCartClose    Topic = "cart-close"
	TopicTierChanged  Topic = "tier-changed"
	TopicThemeChanged Topic = "theme-changed"
)

// Handler receives one published payload.
type Handler func(payload interface{})

// Publisher is the outbound side the engine writes to.
type Publisher interface {
	Publish(topic Topic, payload interface{})
}

type subscription struct {
	id int
	fn Handler
}

// Bus delivers payloads synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	nextID int
	logger *zap.Logger
}

var _ Publisher = (*Bus)(nil)

// NewBus builds an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[Topic][]subscription),
		logger: logger,
	}
}

// Subscribe registers fn for topic and returns its unsubscribe func.
func (b *Bus) Subscribe(topic Topic, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(topic, id) })
	}
}

func (b *Bus) unsubscribe(topic Topic, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish calls every handler subscribed to topic. Handlers may subscribe or
// unsubscribe while being called; the change applies to the next publish.
func (b *Bus) Publish(topic Topic, payload interface{}) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[topic]...)
	b.mu.RUnlock()

	b.logger.Debug("event published", zap.String("topic", string(topic)), zap.Int("subscribers", len(subs)))
	for _, s := range subs {
		s.fn(payload)
	}
}

// Subscribers counts the handlers on topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
