package ingest

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/broker"
	"github.com/tidegate/vectorpipe/internal/model"
)

// PublishChunks makes sure the namespace chunk sink exists and publishes one
// message per chunk.
func PublishChunks(ctx context.Context, topology *broker.Topology, namespace string, chunks []model.Document) error {
	if err := topology.EnsureChunkSink(ctx, namespace); err != nil {
		return fmt.Errorf("ensure chunk sink for %s: %w", namespace, err)
	}
	for _, chunk := range chunks {
		if err := topology.PublishChunk(ctx, namespace, chunk); err != nil {
			return fmt.Errorf("publish chunk: %w", err)
		}
	}
	logutil.GetLogger(ctx).Info("chunks published",
		zap.String("namespace", namespace),
		zap.Int("count", len(chunks)),
	)
	return nil
}
