package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/model"
	"github.com/tidegate/vectorpipe/internal/vectorstore"
)

const eventTimeLayout = "2006-01-02T15:04:05.000000"

// Consumer is the terminal stage: it writes one chunk per push message into
// the vector store.
type Consumer struct {
	store vectorstore.VectorStore
	now   func() time.Time
}

func NewConsumer(store vectorstore.VectorStore) *Consumer {
	return &Consumer{store: store, now: time.Now}
}

// SetClock overrides the eventTime source, for tests.
func (c *Consumer) SetClock(now func() time.Time) {
	c.now = now
}

// Handle stores one chunk. Malformed payloads and store failures produce a
// soft result so the broker never redelivers a chunk the pipeline cannot
// handle.
func (c *Consumer) Handle(ctx context.Context, namespace string, req model.PushRequest) Outcome {
	logger := logutil.GetLogger(ctx)

	var chunk model.ChunkRecord
	if err := json.Unmarshal(req.Message.Data, &chunk); err != nil {
		logger.Error("could not parse chunk message",
			zap.String("namespace", namespace),
			zap.Error(err),
		)
		return SoftFail("Could not parse message_data")
	}
	if chunk.PageContent == nil {
		return SoftFail("No page content")
	}

	metadata := chunk.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	if _, ok := metadata["eventTime"]; !ok {
		metadata["eventTime"] = c.now().UTC().Format(eventTimeLayout) + "Z"
	}

	doc := model.Document{PageContent: *chunk.PageContent, Metadata: metadata}
	if err := c.store.AddDocument(ctx, namespace, doc); err != nil {
		// the chunk is lost, but a retry would fail the same way
		logger.Error("could not add document to vector store",
			zap.String("namespace", namespace),
			zap.Any("metadata", metadata),
			zap.Error(err),
		)
		return OK(metadata["source"])
	}
	logger.Info("chunk stored",
		zap.String("namespace", namespace),
		zap.String("source", metadata["source"]),
	)
	return OK(metadata["source"])
}
