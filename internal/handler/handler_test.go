package handler_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tidegate/vectorpipe/internal/blobstore"
	"github.com/tidegate/vectorpipe/internal/broker"
	"github.com/tidegate/vectorpipe/internal/chunker"
	"github.com/tidegate/vectorpipe/internal/config"
	"github.com/tidegate/vectorpipe/internal/handler"
	"github.com/tidegate/vectorpipe/internal/ingest"
	"github.com/tidegate/vectorpipe/internal/loader"
	"github.com/tidegate/vectorpipe/internal/model"
	"github.com/tidegate/vectorpipe/internal/vectorstore"
)

type testEnv struct {
	router *gin.Engine
	mem    *broker.MemoryBroker
	store  *vectorstore.MemoryStore
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	blob, err := blobstore.New(config.BlobStoreConfig{Type: "local", Dir: t.TempDir(), Bucket: "local"})
	require.NoError(t, err)

	mem := broker.NewMemoryBroker()
	topology := broker.NewTopology(mem)
	store := vectorstore.NewMemoryStore()

	dispatcher := ingest.NewDispatcher(ingest.DispatcherOptions{
		Gateway:  blobstore.NewGateway(blob, nil),
		Topology: topology,
		Loaders:  loader.NewSet(config.LoaderConfig{}),
		Engine:   chunker.NewEngine(config.ChunkConfig{Size: 1024}),
		Store:    store,
		TempDir:  t.TempDir(),
	})

	router := gin.New()
	handler.RegisterRoutes(router.Group("/"), handler.RouterDeps{
		Ingest: handler.NewIngestHandler(dispatcher),
		Chunk:  handler.NewChunkHandler(ingest.NewConsumer(store)),
	})
	return &testEnv{router: router, mem: mem, store: store}
}

func pushBody(t *testing.T, data string, attrs map[string]string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"message": map[string]interface{}{
			"data":        base64.StdEncoding.EncodeToString([]byte(data)),
			"attributes":  attrs,
			"messageId":   "m1",
			"publishTime": "2026-08-31T10:00:00Z",
		},
		"subscription": "projects/p/subscriptions/s",
	})
	require.NoError(t, err)
	return body
}

func doPost(t *testing.T, router *gin.Engine, path string, body []byte) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var reply map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reply))
	return resp, reply
}

func TestPushInlineDocument(t *testing.T) {
	env := setupRouter(t)

	body := pushBody(t, `{"page_content":"some inline text"}`, nil)
	resp, reply := doPost(t, env.router, "/pubsub_to_store/acme", body)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "Success", reply["status"])
	require.Equal(t, "Could not find a source", reply["source"])

	require.Len(t, env.mem.Messages("embed_chunk_acme"), 1)
}

func TestPushMalformedEnvelopeStillReturns200(t *testing.T) {
	env := setupRouter(t)

	resp, reply := doPost(t, env.router, "/pubsub_to_store/acme", []byte("{not json"))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "error", reply["status"])
	require.NotEmpty(t, reply["message"])
}

func TestPushBadInlinePayloadStillReturns200(t *testing.T) {
	env := setupRouter(t)

	body := pushBody(t, "definitely not json and not a url", nil)
	resp, reply := doPost(t, env.router, "/pubsub_to_store/acme", body)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "error", reply["status"])
}

func TestPushDeleteSourceCommand(t *testing.T) {
	env := setupRouter(t)
	require.NoError(t, env.store.AddDocument(context.Background(), "acme", model.Document{
		PageContent: "stale", Metadata: map[string]string{"source": "gs://b/old.txt"},
	}))

	body := pushBody(t, "!deletesource source:gs://b/old.txt", nil)
	resp, reply := doPost(t, env.router, "/pubsub_to_store/acme", body)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "Success", reply["status"])
	require.Equal(t, "Deleting source: gs://b/old.txt", reply["message"])
	require.Empty(t, env.store.Documents("acme"))
}

func TestPushConfigNotificationIsNoAction(t *testing.T) {
	env := setupRouter(t)

	body := pushBody(t, "", map[string]string{
		"eventType":     "OBJECT_FINALIZE",
		"payloadFormat": "JSON_API_V1",
		"bucketId":      "local",
		"objectId":      "config/settings.yaml",
	})
	resp, reply := doPost(t, env.router, "/pubsub_to_store/acme", body)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "ok", reply["status"])
	require.Equal(t, "No action required", reply["message"])
}

func TestChunkPushStoresDocument(t *testing.T) {
	env := setupRouter(t)

	body := pushBody(t, `{"page_content":"chunk body","metadata":{"source":"gs://b/f"}}`, nil)
	resp, reply := doPost(t, env.router, "/pubsub_chunk_to_store/acme", body)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "Success", reply["status"])
	require.Equal(t, "gs://b/f", reply["source"])

	docs := env.store.Documents("acme")
	require.Len(t, docs, 1)
	require.Equal(t, "chunk body", docs[0].PageContent)
	require.NotEmpty(t, docs[0].Metadata["eventTime"])
}

func TestChunkPushWithoutContentIsAcked(t *testing.T) {
	env := setupRouter(t)

	body := pushBody(t, `{"metadata":{"source":"s"}}`, nil)
	resp, reply := doPost(t, env.router, "/pubsub_chunk_to_store/acme", body)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "ok", reply["status"])
	require.Equal(t, "No page content", reply["message"])
	require.Empty(t, env.store.Documents("acme"))
}

func TestBatchPushMarksProcessingMode(t *testing.T) {
	env := setupRouter(t)

	body := pushBody(t, `{"page_content":"batch text"}`, nil)
	resp, reply := doPost(t, env.router, "/pubsub_to_store_batch/acme", body)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "Success", reply["status"])

	msgs := env.mem.Messages("embed_chunk_acme")
	require.Len(t, msgs, 1)
	require.Contains(t, string(msgs[0].Data), `"processing_mode":"batch"`)
}

func TestHealthz(t *testing.T) {
	env := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}
