package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tidegate/vectorpipe/internal/config"
)

// Message is one published record as the in-memory broker saw it.
type Message struct {
	ID          string
	PublishTime time.Time
	Data        []byte
	Attributes  map[string]string
}

// DeliveryFunc receives each published message for a push subscription,
// keyed by the push endpoint path the subscription was created with.
type DeliveryFunc func(ctx context.Context, endpoint string, msg Message) error

type memorySubscription struct {
	topic    string
	endpoint string
}

// MemoryBroker delivers synchronously in-process. It backs local development
// and the test suites; no at-least-once redelivery is simulated.
type MemoryBroker struct {
	mu       sync.Mutex
	topics   map[string][]Message
	subs     map[string]memorySubscription
	delivery DeliveryFunc
}

func init() {
	Register("memory", func(cfg config.BrokerConfig) (Broker, error) {
		return NewMemoryBroker(), nil
	})
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		topics: map[string][]Message{},
		subs:   map[string]memorySubscription{},
	}
}

// SetDelivery installs the push callback. Without one, messages are only
// recorded.
func (b *MemoryBroker) SetDelivery(fn DeliveryFunc) {
	b.mu.Lock()
	b.delivery = fn
	b.mu.Unlock()
}

func (b *MemoryBroker) EnsureTopic(ctx context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.topics[topic]; !ok {
		b.topics[topic] = nil
	}
	return nil
}

func (b *MemoryBroker) SubscriptionExists(ctx context.Context, name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[name]
	return ok, nil
}

func (b *MemoryBroker) CreateSubscription(ctx context.Context, name, topic, pushEndpoint string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.topics[topic]; !ok {
		b.topics[topic] = nil
	}
	// creating twice is fine, same as the managed broker
	b.subs[name] = memorySubscription{topic: topic, endpoint: pushEndpoint}
	return nil
}

func (b *MemoryBroker) Publish(ctx context.Context, topic string, data []byte, attributes map[string]string) error {
	msg := Message{
		ID:          uuid.NewString(),
		PublishTime: time.Now().UTC(),
		Data:        append([]byte(nil), data...),
		Attributes:  attributes,
	}
	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], msg)
	var targets []memorySubscription
	for _, sub := range b.subs {
		if sub.topic == topic {
			targets = append(targets, sub)
		}
	}
	delivery := b.delivery
	b.mu.Unlock()

	if delivery == nil {
		return nil
	}
	for _, sub := range targets {
		if err := delivery(ctx, sub.endpoint, msg); err != nil {
			return err
		}
	}
	return nil
}

// Messages returns everything published on a topic, oldest first.
func (b *MemoryBroker) Messages(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.topics[topic]...)
}

// Subscriptions lists subscription names bound to a topic.
func (b *MemoryBroker) Subscriptions(topic string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for name, sub := range b.subs {
		if sub.topic == topic {
			names = append(names, name)
		}
	}
	return names
}
