package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tidegate/vectorpipe/internal/config"
)

// Push deliveries must be acked within this window; work that cannot finish
// in time is split further upstream instead of extending the deadline.
const ackDeadline = 10 * time.Minute

type pubsubBroker struct {
	client       *pubsub.Client
	pushEndpoint string
}

func init() {
	Register("pubsub", createPubsubBroker)
}

func createPubsubBroker(cfg config.BrokerConfig) (Broker, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("broker.project is required")
	}
	client, err := pubsub.NewClient(context.Background(), cfg.Project)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &pubsubBroker{
		client:       client,
		pushEndpoint: strings.TrimSuffix(cfg.PushEndpoint, "/"),
	}, nil
}

func (b *pubsubBroker) EnsureTopic(ctx context.Context, topic string) error {
	t := b.client.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return fmt.Errorf("topic exists check: %w", err)
	}
	if ok {
		return nil
	}
	if _, err := b.client.CreateTopic(ctx, topic); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}

func (b *pubsubBroker) SubscriptionExists(ctx context.Context, name string) (bool, error) {
	ok, err := b.client.Subscription(name).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("subscription exists check: %w", err)
	}
	return ok, nil
}

func (b *pubsubBroker) CreateSubscription(ctx context.Context, name, topic, pushEndpoint string) error {
	if err := b.EnsureTopic(ctx, topic); err != nil {
		return err
	}
	cfg := pubsub.SubscriptionConfig{
		Topic:       b.client.Topic(topic),
		AckDeadline: ackDeadline,
		PushConfig: pubsub.PushConfig{
			Endpoint: b.pushEndpoint + pushEndpoint,
		},
	}
	if _, err := b.client.CreateSubscription(ctx, name, cfg); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("create subscription %s: %w", name, err)
	}
	return nil
}

func (b *pubsubBroker) Publish(ctx context.Context, topic string, data []byte, attributes map[string]string) error {
	t := b.client.Topic(topic)
	defer t.Stop()
	res := t.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}
