package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tidegate/vectorpipe/internal/config"
)

// Broker is the minimal surface the pipeline needs from a message broker:
// idempotent topic/subscription provisioning plus publish. Delivery happens
// out of band, via HTTP push to the endpoints each subscription was bound to.
type Broker interface {
	EnsureTopic(ctx context.Context, topic string) error
	SubscriptionExists(ctx context.Context, name string) (bool, error)
	// CreateSubscription binds name to topic with push delivery to
	// pushEndpoint. An "already exists" outcome is success: concurrent
	// first-messages for one namespace race here by design.
	CreateSubscription(ctx context.Context, name, topic, pushEndpoint string) error
	Publish(ctx context.Context, topic string, data []byte, attributes map[string]string) error
}

type Factory func(cfg config.BrokerConfig) (Broker, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.BrokerConfig) (Broker, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("broker.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported broker type: %s", cfg.Type)
	}
	return factory(cfg)
}
