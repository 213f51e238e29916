package job

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/broker"
	"github.com/tidegate/vectorpipe/internal/vectorstore"
)

// SourcesReportJob publishes a daily digest of the sources ingested per
// namespace over the last 24 hours.
type SourcesReportJob struct {
	store      vectorstore.VectorStore
	topology   *broker.Topology
	namespaces []string
}

func NewSourcesReportJob(store vectorstore.VectorStore, topology *broker.Topology, namespaces []string) *SourcesReportJob {
	return &SourcesReportJob{store: store, topology: topology, namespaces: namespaces}
}

func (j *SourcesReportJob) Name() string {
	return "sources_report"
}

func (j *SourcesReportJob) Run(ctx context.Context) error {
	since := time.Now().Add(-24 * time.Hour)
	for _, ns := range j.namespaces {
		sources, err := j.store.SourcesSince(ctx, ns, since)
		if err != nil {
			logutil.GetLogger(ctx).Warn("sources report query failed",
				zap.String("namespace", ns), zap.Error(err))
			continue
		}
		logutil.GetLogger(ctx).Info("sources ingested in last 24h",
			zap.String("namespace", ns),
			zap.Int("count", len(sources)),
			zap.Strings("sources", sources),
		)
		j.topology.PublishState(ctx, fmt.Sprintf(
			"Ingested %d sources into %s in the last 24h: %v", len(sources), ns, sources))
	}
	return nil
}
