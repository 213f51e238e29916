package broker

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/model"
)

// StateTopic receives human-readable status lines for every handled message;
// it is shared across namespaces.
const StateTopic = "pubsub_state_messages"

func IngestTopic(namespace string) string    { return "app_to_pubsub_" + namespace }
func ChunkTopic(namespace string) string     { return "embed_chunk_" + namespace }
func IngestSubscription(ns string) string    { return "pubsub_to_store_" + ns }
func ChunkSubscription(ns string) string     { return "pubsub_chunk_to_store_" + ns }
func IngestPushPath(namespace string) string { return "/pubsub_to_store/" + namespace }
func ChunkPushPath(namespace string) string  { return "/pubsub_chunk_to_store/" + namespace }

const ensuredCacheSize = 512

// Topology owns the per-namespace topic/subscription naming scheme and makes
// provisioning idempotent. The first message into a new namespace pays the
// provisioning round-trips; afterwards the LRU keeps the hot path free of
// existence checks.
type Topology struct {
	broker  Broker
	ensured *lru.Cache[string, struct{}]
}

func NewTopology(b Broker) *Topology {
	cache, _ := lru.New[string, struct{}](ensuredCacheSize)
	return &Topology{broker: b, ensured: cache}
}

func (t *Topology) Broker() Broker { return t.broker }

// EnsureIngest guarantees the namespace ingest topic and its push
// subscription exist. It reports whether the subscription had to be created,
// which callers use to trigger one-time schema bootstrap.
func (t *Topology) EnsureIngest(ctx context.Context, namespace string) (bool, error) {
	return t.ensure(ctx, IngestSubscription(namespace), IngestTopic(namespace), IngestPushPath(namespace))
}

// EnsureChunkSink guarantees the chunk topic and the terminal subscription
// that pushes each chunk to the persistence consumer.
func (t *Topology) EnsureChunkSink(ctx context.Context, namespace string) error {
	_, err := t.ensure(ctx, ChunkSubscription(namespace), ChunkTopic(namespace), ChunkPushPath(namespace))
	return err
}

func (t *Topology) ensure(ctx context.Context, sub, topic, pushPath string) (bool, error) {
	if _, ok := t.ensured.Get(sub); ok {
		return false, nil
	}
	exists, err := t.broker.SubscriptionExists(ctx, sub)
	if err != nil {
		return false, err
	}
	if exists {
		t.ensured.Add(sub, struct{}{})
		return false, nil
	}
	if err := t.broker.CreateSubscription(ctx, sub, topic, pushPath); err != nil {
		return false, err
	}
	logutil.GetLogger(ctx).Info("subscription provisioned",
		zap.String("subscription", sub),
		zap.String("topic", topic),
		zap.String("push_path", pushPath),
	)
	t.ensured.Add(sub, struct{}{})
	return true, nil
}

// PublishText enqueues raw text (a URL, a gs:// path, inline JSON) as a fresh
// ingestion event for the namespace.
func (t *Topology) PublishText(ctx context.Context, namespace, text string) error {
	if _, err := t.EnsureIngest(ctx, namespace); err != nil {
		return err
	}
	return t.broker.Publish(ctx, IngestTopic(namespace), []byte(text), nil)
}

// PublishChunk serializes one chunk onto the namespace chunk topic.
func (t *Topology) PublishChunk(ctx context.Context, namespace string, chunk model.Document) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("encode chunk: %w", err)
	}
	return t.broker.Publish(ctx, ChunkTopic(namespace), data, nil)
}

// PublishState emits a status line on the shared state topic. State messages
// are observability, not control flow: failures are logged and swallowed.
func (t *Topology) PublishState(ctx context.Context, message string) {
	if err := t.broker.EnsureTopic(ctx, StateTopic); err != nil {
		logutil.GetLogger(ctx).Warn("ensure state topic failed", zap.Error(err))
		return
	}
	if err := t.broker.Publish(ctx, StateTopic, []byte(message), nil); err != nil {
		logutil.GetLogger(ctx).Warn("publish state message failed", zap.Error(err))
	}
}
