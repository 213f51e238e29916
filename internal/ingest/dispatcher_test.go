package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tidegate/vectorpipe/internal/blobstore"
	"github.com/tidegate/vectorpipe/internal/broker"
	"github.com/tidegate/vectorpipe/internal/chunker"
	"github.com/tidegate/vectorpipe/internal/config"
	"github.com/tidegate/vectorpipe/internal/loader"
	"github.com/tidegate/vectorpipe/internal/model"
	"github.com/tidegate/vectorpipe/internal/splitter"
	"github.com/tidegate/vectorpipe/internal/vectorstore"
)

type dispatcherEnv struct {
	dispatcher *Dispatcher
	mem        *broker.MemoryBroker
	topology   *broker.Topology
	store      *vectorstore.MemoryStore
	blobDir    string
}

func newDispatcherEnv(t *testing.T, split splitter.SplitFunc) *dispatcherEnv {
	t.Helper()
	blobDir := t.TempDir()
	store, err := blobstore.New(config.BlobStoreConfig{Type: "local", Dir: blobDir, Bucket: "local"})
	require.NoError(t, err)

	mem := broker.NewMemoryBroker()
	topology := broker.NewTopology(mem)
	gateway := blobstore.NewGateway(store, nil)
	gateway.SetClock(func() time.Time {
		return time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	})

	vstore := vectorstore.NewMemoryStore()
	dispatcher := NewDispatcher(DispatcherOptions{
		Gateway:  gateway,
		Topology: topology,
		Loaders:  loader.NewSet(config.LoaderConfig{}),
		Engine:   chunker.NewEngine(config.ChunkConfig{Size: 1024}),
		Split:    split,
		Store:    vstore,
		TempDir:  t.TempDir(),
	})
	return &dispatcherEnv{dispatcher: dispatcher, mem: mem, topology: topology, store: vstore, blobDir: blobDir}
}

func (env *dispatcherEnv) putObject(t *testing.T, key, content string) {
	t.Helper()
	path := filepath.Join(env.blobDir, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func pushMessage(data string, attrs map[string]string) model.PushRequest {
	return model.PushRequest{Message: model.PushMessage{
		Data:       []byte(data),
		Attributes: attrs,
		MessageID:  "m1",
	}}
}

func TestDispatcherProcessesStoredObject(t *testing.T) {
	env := newDispatcherEnv(t, nil)
	env.putObject(t, "docs/hello.txt", "hello world from storage")

	outcome, err := env.dispatcher.Handle(context.Background(), "acme",
		pushMessage("gs://local/docs/hello.txt", nil))
	require.NoError(t, err)
	require.Equal(t, StatusOK, outcome.Status)
	require.Equal(t, "gs://local/docs/hello.txt", outcome.Source)

	require.Equal(t, []string{"pubsub_chunk_to_store_acme"}, env.mem.Subscriptions("embed_chunk_acme"))
	msgs := env.mem.Messages("embed_chunk_acme")
	require.Len(t, msgs, 1)
	require.JSONEq(t, `{
		"page_content": "hello world from storage",
		"metadata": {"source":"gs://local/docs/hello.txt","type":"file_load_gcs","bucket_name":"local"}
	}`, string(msgs[0].Data))

	require.Len(t, env.mem.Messages(broker.StateTopic), 1)
}

func TestDispatcherFansOutMultiPagePDF(t *testing.T) {
	split := func(localPath, tempDir string) ([]string, error) {
		var pages []string
		for i := 1; i <= 5; i++ {
			page := filepath.Join(tempDir, fmt.Sprintf("report_%d.pdf", i))
			if err := os.WriteFile(page, []byte(fmt.Sprintf("page %d", i)), 0644); err != nil {
				return nil, err
			}
			pages = append(pages, page)
		}
		return pages, nil
	}
	env := newDispatcherEnv(t, split)
	env.putObject(t, "acme/report.pdf", "%PDF-fake")

	outcome, err := env.dispatcher.Handle(context.Background(), "acme",
		pushMessage("gs://local/acme/report.pdf", nil))
	require.NoError(t, err)
	require.Equal(t, StatusNoAction, outcome.Status)

	// each page went back through the gateway, nothing was chunked directly
	pages, err := filepath.Glob(filepath.Join(env.blobDir, "acme", "2026", "08", "31", "14", "report_*.pdf"))
	require.NoError(t, err)
	require.Len(t, pages, 5)
	require.Empty(t, env.mem.Messages("embed_chunk_acme"))
}

func TestDispatcherPassesThroughSinglePage(t *testing.T) {
	split := func(localPath, tempDir string) ([]string, error) {
		return []string{localPath}, nil
	}
	env := newDispatcherEnv(t, split)
	env.putObject(t, "acme/single.pdf", "single page body")

	outcome, err := env.dispatcher.Handle(context.Background(), "acme",
		pushMessage("gs://local/acme/single.pdf", nil))
	require.NoError(t, err)
	require.Equal(t, StatusOK, outcome.Status)
	require.NotEmpty(t, env.mem.Messages("embed_chunk_acme"))
}

func TestDispatcherHandlesStorageNotification(t *testing.T) {
	env := newDispatcherEnv(t, nil)
	env.putObject(t, "acme/2026/08/31/14/guide.md", "# Guide\n\nRead this first.\n")

	attrs := map[string]string{
		"eventType":     "OBJECT_FINALIZE",
		"payloadFormat": "JSON_API_V1",
		"bucketId":      "local",
		"objectId":      "acme/2026/08/31/14/guide.md",
	}
	// pushed at a namespace that the object path overrides
	outcome, err := env.dispatcher.Handle(context.Background(), "other", pushMessage("", attrs))
	require.NoError(t, err)
	require.Equal(t, StatusOK, outcome.Status)
	require.Equal(t, "gs://local/acme/2026/08/31/14/guide.md", outcome.Source)

	msgs := env.mem.Messages("embed_chunk_acme")
	require.NotEmpty(t, msgs)
	require.Empty(t, env.mem.Messages("embed_chunk_other"))

	var chunk model.Document
	require.NoError(t, json.Unmarshal(msgs[0].Data, &chunk))
	require.Equal(t, "namespace:acme", chunk.Metadata["attrs"])
}

func TestDispatcherIgnoresConfigNotification(t *testing.T) {
	env := newDispatcherEnv(t, nil)
	attrs := map[string]string{
		"eventType":     "OBJECT_FINALIZE",
		"payloadFormat": "JSON_API_V1",
		"bucketId":      "local",
		"objectId":      "config/settings.yaml",
	}
	outcome, err := env.dispatcher.Handle(context.Background(), "acme", pushMessage("", attrs))
	require.NoError(t, err)
	require.Equal(t, StatusNoAction, outcome.Status)
	require.Empty(t, env.mem.Messages("embed_chunk_acme"))
}

func TestDispatcherInlineContent(t *testing.T) {
	env := newDispatcherEnv(t, nil)

	outcome, err := env.dispatcher.Handle(context.Background(), "acme",
		pushMessage(`{"page_content":"inline body text","metadata":{"source":"user-supplied"}}`, nil))
	require.NoError(t, err)
	require.Equal(t, StatusOK, outcome.Status)
	require.Equal(t, "No source embedded", outcome.Source)

	msgs := env.mem.Messages("embed_chunk_acme")
	require.Len(t, msgs, 1)

	var chunk model.Document
	require.NoError(t, json.Unmarshal(msgs[0].Data, &chunk))
	require.Equal(t, "inline body text", chunk.PageContent)
	require.Equal(t, "No source embedded", chunk.Metadata["source"])
}

func TestDispatcherInlineRepublishesURLs(t *testing.T) {
	env := newDispatcherEnv(t, nil)

	outcome, err := env.dispatcher.Handle(context.Background(), "acme",
		pushMessage(`{"page_content":"read https://example.com/doc today"}`, nil))
	require.NoError(t, err)
	require.Equal(t, StatusOK, outcome.Status)

	msgs := env.mem.Messages("app_to_pubsub_acme")
	require.Len(t, msgs, 1)
	require.Equal(t, "https://example.com/doc", string(msgs[0].Data))
}

func TestDispatcherInlineWithoutContent(t *testing.T) {
	env := newDispatcherEnv(t, nil)

	outcome, err := env.dispatcher.Handle(context.Background(), "acme",
		pushMessage(`{"metadata":{"foo":"bar"}}`, nil))
	require.NoError(t, err)
	require.Equal(t, StatusOK, outcome.Status)
	require.Empty(t, outcome.Source)
	require.Empty(t, env.mem.Messages("embed_chunk_acme"))
}

func TestDispatcherDeletesSourceOnCommand(t *testing.T) {
	env := newDispatcherEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.store.AddDocument(ctx, "acme", model.Document{
		PageContent: "old", Metadata: map[string]string{"source": "gs://local/docs/old.txt"},
	}))
	require.NoError(t, env.store.AddDocument(ctx, "acme", model.Document{
		PageContent: "kept", Metadata: map[string]string{"source": "gs://local/docs/keep.txt"},
	}))

	outcome, err := env.dispatcher.Handle(ctx, "acme",
		pushMessage("!deletesource source:gs://local/docs/old.txt", nil))
	require.NoError(t, err)
	require.Equal(t, StatusOK, outcome.Status)
	require.Equal(t, "Deleting source: gs://local/docs/old.txt", outcome.Reason)

	docs := env.store.Documents("acme")
	require.Len(t, docs, 1)
	require.Equal(t, "gs://local/docs/keep.txt", docs[0].Metadata["source"])
	require.Empty(t, env.mem.Messages("embed_chunk_acme"))
}

func TestDispatcherFetchesHTTPURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "remote page body")
	}))
	defer server.Close()

	env := newDispatcherEnv(t, nil)
	outcome, err := env.dispatcher.Handle(context.Background(), "acme",
		pushMessage(server.URL+"/page", nil))
	require.NoError(t, err)
	require.Equal(t, StatusOK, outcome.Status)
	require.Equal(t, server.URL+"/page", outcome.Source)

	msgs := env.mem.Messages("embed_chunk_acme")
	require.Len(t, msgs, 1)

	var chunk model.Document
	require.NoError(t, json.Unmarshal(msgs[0].Data, &chunk))
	require.Equal(t, "remote page body", chunk.PageContent)
	require.Equal(t, "url_load", chunk.Metadata["type"])
}
