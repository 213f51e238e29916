package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/ai"
	"github.com/tidegate/vectorpipe/internal/blobstore"
	"github.com/tidegate/vectorpipe/internal/broker"
	"github.com/tidegate/vectorpipe/internal/chunker"
	"github.com/tidegate/vectorpipe/internal/loader"
	"github.com/tidegate/vectorpipe/internal/model"
	"github.com/tidegate/vectorpipe/internal/splitter"
	"github.com/tidegate/vectorpipe/internal/vectorstore"
)

var branchRe = regexp.MustCompile(`branch:(\w+)`)

// Dispatcher resolves an ingestion message into documents, chunks them and
// fans the chunks out to the namespace chunk topic.
type Dispatcher struct {
	gateway    *blobstore.Gateway
	topology   *broker.Topology
	loaders    *loader.Set
	engine     *chunker.Engine
	split      splitter.SplitFunc
	store      vectorstore.VectorStore
	summarizer *ai.Summarizer
	summarize  bool
	tempDir    string
}

type DispatcherOptions struct {
	Gateway    *blobstore.Gateway
	Topology   *broker.Topology
	Loaders    *loader.Set
	Engine     *chunker.Engine
	Split      splitter.SplitFunc
	Store      vectorstore.VectorStore
	Summarizer *ai.Summarizer
	Summarize  bool
	TempDir    string
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	split := opts.Split
	if split == nil {
		split = splitter.SplitIfMultiPage
	}
	return &Dispatcher{
		gateway:    opts.Gateway,
		topology:   opts.Topology,
		loaders:    opts.Loaders,
		engine:     opts.Engine,
		split:      split,
		store:      opts.Store,
		summarizer: opts.Summarizer,
		summarize:  opts.Summarize,
		tempDir:    opts.TempDir,
	}
}

// Handle processes one ingestion push message for a namespace.
func (d *Dispatcher) Handle(ctx context.Context, namespace string, req model.PushRequest) (Outcome, error) {
	logger := logutil.GetLogger(ctx)
	logger.Info("ingestion message received",
		zap.String("namespace", namespace),
		zap.String("message_id", req.Message.MessageID),
		zap.String("publish_time", req.Message.PublishTime),
	)

	ev, ok := Resolve(namespace, req.Message)
	if !ok {
		logger.Info("ignoring config object", zap.String("namespace", namespace))
		return NoAction("No action required"), nil
	}
	namespace = ev.Namespace
	metadata := ev.Attributes

	var (
		docs    []model.Document
		chunks  []model.Document
		outcome Outcome
		err     error
	)
	switch ev.Kind {
	case KindObjectPath:
		docs, chunks, outcome, err = d.handleObject(ctx, namespace, ev, metadata)
		if err != nil || outcome.Status == StatusNoAction {
			return outcome, err
		}
	case KindDriveURL, KindGitURL, KindHTTPURL:
		docs, chunks, err = d.handleURLs(ctx, ev, metadata)
		if err != nil {
			return Outcome{}, err
		}
	default:
		docs, chunks, outcome, err = d.handleInline(ctx, namespace, ev, metadata)
		if err != nil || docs == nil {
			return outcome, err
		}
	}

	if err := d.finish(ctx, namespace, docs, chunks, metadata); err != nil {
		return Outcome{}, err
	}
	return OK(metadata["source"]), nil
}

func (d *Dispatcher) handleObject(ctx context.Context, namespace string, ev Event, metadata map[string]string) ([]model.Document, []model.Document, Outcome, error) {
	logger := logutil.GetLogger(ctx)
	bucket, object, ok := objectParts(ev.Data)
	if !ok {
		return nil, nil, Outcome{}, fmt.Errorf("malformed object uri: %s", ev.Data)
	}

	workDir, err := os.MkdirTemp(d.tempDir, "ingest-*")
	if err != nil {
		return nil, nil, Outcome{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	localPath := filepath.Join(workDir, filepath.Base(object))
	if err := d.gateway.Store().Download(ctx, bucket, object, localPath); err != nil {
		return nil, nil, Outcome{}, err
	}

	pages, err := d.split(localPath, workDir)
	if err != nil {
		return nil, nil, Outcome{}, err
	}
	if len(pages) > 1 {
		// re-upload per page so each page is ingested in parallel through
		// its own storage notification
		for _, page := range pages {
			if _, _, err := d.gateway.AddFile(ctx, namespace, page, metadata); err != nil {
				return nil, nil, Outcome{}, err
			}
		}
		logger.Info("multi-page document split and re-queued",
			zap.String("namespace", namespace),
			zap.String("object", object),
			zap.Int("pages", len(pages)),
		)
		return nil, nil, NoAction(fmt.Sprintf("split into %d pages", len(pages))), nil
	}

	metadata["source"] = ev.Data
	metadata["type"] = "file_load_gcs"
	metadata["bucket_name"] = bucket

	var docs []model.Document
	for _, page := range pages {
		loaded, err := d.loaders.ForFile(page).Load(ctx, page, metadata)
		if err != nil {
			return nil, nil, Outcome{}, err
		}
		docs = append(docs, loaded...)
	}
	chunks, err := d.engine.ChunkFile(ctx, docs, object)
	if err != nil {
		return nil, nil, Outcome{}, err
	}
	return docs, chunks, OK(metadata["source"]), nil
}

func (d *Dispatcher) handleURLs(ctx context.Context, ev Event, metadata map[string]string) ([]model.Document, []model.Document, error) {
	logger := logutil.GetLogger(ctx)
	if ev.Kind == KindGitURL {
		metadata["branch"] = "main"
		if m := branchRe.FindStringSubmatch(ev.Data); m != nil {
			metadata["branch"] = m[1]
		}
	}

	var docs []model.Document
	for _, url := range extractURLs(ev.Data) {
		metadata["source"] = url
		metadata["url"] = url
		metadata["type"] = "url_load"
		loaded, err := d.loaders.ForURL(url).Load(ctx, url, metadata)
		if err != nil {
			logger.Warn("url load failed", zap.String("url", url), zap.Error(err))
			continue
		}
		docs = append(docs, loaded...)
	}
	chunks, err := d.engine.Chunk(ctx, docs, "")
	if err != nil {
		return nil, nil, err
	}
	return docs, chunks, nil
}

type inlinePayload struct {
	PageContent *string           `json:"page_content"`
	Metadata    map[string]string `json:"metadata"`
}

func (d *Dispatcher) handleInline(ctx context.Context, namespace string, ev Event, metadata map[string]string) ([]model.Document, []model.Document, Outcome, error) {
	logger := logutil.GetLogger(ctx)
	if strings.HasPrefix(ev.Data, "!deletesource") && d.store != nil {
		source := strings.TrimPrefix(ev.Data, "!deletesource")
		source = strings.TrimSpace(strings.Replace(source, "source:", "", 1))
		if err := d.store.DeleteBySource(ctx, namespace, source); err != nil {
			return nil, nil, Outcome{}, fmt.Errorf("delete source %s: %w", source, err)
		}
		logger.Info("source deleted",
			zap.String("namespace", namespace),
			zap.String("source", source),
		)
		return nil, nil, Outcome{Status: StatusOK, Reason: fmt.Sprintf("Deleting source: %s", source)}, nil
	}
	var payload inlinePayload
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		return nil, nil, Outcome{}, fmt.Errorf("parse inline message: %w", err)
	}
	for k, v := range payload.Metadata {
		metadata[k] = v
	}
	// inline submissions never carry a trustworthy source
	if _, ok := metadata["source"]; ok {
		metadata["source"] = "No source embedded"
	}
	if payload.PageContent == nil {
		logger.Info("inline message without content", zap.String("namespace", namespace))
		return nil, nil, OK(""), nil
	}

	doc := model.Document{PageContent: *payload.PageContent, Metadata: metadata}

	// embedded links are queued as their own ingestion events
	if containsURL(doc.PageContent) {
		for _, url := range extractURLs(doc.PageContent) {
			if err := d.topology.PublishText(ctx, namespace, url); err != nil {
				logger.Warn("re-publish url failed", zap.String("url", url), zap.Error(err))
			}
		}
	}

	chunks, err := d.engine.Chunk(ctx, []model.Document{doc}, "")
	if err != nil {
		return nil, nil, Outcome{}, err
	}
	return []model.Document{doc}, chunks, OK(metadata["source"]), nil
}

func (d *Dispatcher) finish(ctx context.Context, namespace string, docs, chunks []model.Document, metadata map[string]string) error {
	logger := logutil.GetLogger(ctx)
	if len(chunks) == 0 {
		logger.Info("no chunks produced", zap.String("namespace", namespace))
		d.topology.PublishState(ctx, fmt.Sprintf("No chunks for: %v to %s embedding", metadata, namespace))
		return nil
	}
	if err := PublishChunks(ctx, d.topology, namespace, chunks); err != nil {
		return err
	}
	d.topology.PublishState(ctx, fmt.Sprintf("Sent doc chunks with metadata: %v to %s embedding", metadata, namespace))

	d.maybeSummarize(ctx, namespace, docs, metadata)
	return nil
}

// maybeSummarize publishes a summary of the ingested documents as extra
// chunks. It is best effort: any failure is logged and dropped.
func (d *Dispatcher) maybeSummarize(ctx context.Context, namespace string, docs []model.Document, metadata map[string]string) {
	if d.summarizer == nil || !d.summarize || len(docs) == 0 {
		return
	}
	if !strings.EqualFold(metadata["summarise"], "true") {
		return
	}
	logger := logutil.GetLogger(ctx)
	summary, err := d.summarizer.Summarize(ctx, docs)
	if err != nil {
		logger.Warn("summarize failed", zap.String("namespace", namespace), zap.Error(err))
		return
	}
	md := map[string]string{}
	for k, v := range metadata {
		md[k] = v
	}
	md["type"] = "summary"
	chunks, err := d.engine.Chunk(ctx, []model.Document{{PageContent: summary, Metadata: md}}, "")
	if err != nil {
		logger.Warn("chunk summary failed", zap.Error(err))
		return
	}
	if err := PublishChunks(ctx, d.topology, namespace, chunks); err != nil {
		logger.Warn("publish summary chunks failed", zap.Error(err))
		return
	}
	d.topology.PublishState(ctx, fmt.Sprintf("Sent summary chunks with metadata: %v to %s embedding", md, namespace))
}
