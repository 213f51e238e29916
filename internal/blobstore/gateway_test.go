package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingStore struct {
	mu      sync.Mutex
	objects map[string]map[string]string
	uploads int
}

func newCountingStore() *countingStore {
	return &countingStore{objects: map[string]map[string]string{}}
}

func (s *countingStore) Bucket() string { return "test-bucket" }

func (s *countingStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *countingStore) Upload(ctx context.Context, key, localPath string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = metadata
	s.uploads++
	return nil
}

func (s *countingStore) Download(ctx context.Context, bucket, object, destPath string) error {
	return os.WriteFile(destPath, []byte("content"), 0644)
}

func (s *countingStore) URI(key string) string { return "gs://test-bucket/" + key }

type recordingProvisioner struct {
	namespaces []string
}

func (p *recordingProvisioner) EnsureNamespace(ctx context.Context, namespace string) error {
	p.namespaces = append(p.namespaces, namespace)
	return nil
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGatewayUploadsOnce(t *testing.T) {
	store := newCountingStore()
	prov := &recordingProvisioner{}
	gw := NewGateway(store, prov)
	at := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)
	gw.SetClock(func() time.Time { return at })

	file := writeTempFile(t, "report.txt", "hello")

	uri, uploaded, err := gw.AddFile(context.Background(), "acme", file, nil)
	require.NoError(t, err)
	require.True(t, uploaded)
	require.Equal(t, "gs://test-bucket/acme/2026/08/31/14/report.txt", uri)

	// same file in the same hour is not uploaded again
	uri2, uploaded2, err := gw.AddFile(context.Background(), "acme", file, nil)
	require.NoError(t, err)
	require.False(t, uploaded2)
	require.Equal(t, uri, uri2)
	require.Equal(t, 1, store.uploads)

	// bootstrap runs only when an upload actually happened
	require.Equal(t, []string{"acme"}, prov.namespaces)
}

func TestGatewaySkipsPreviousHour(t *testing.T) {
	store := newCountingStore()
	gw := NewGateway(store, nil)
	first := time.Date(2026, 8, 31, 14, 59, 0, 0, time.UTC)
	gw.SetClock(func() time.Time { return first })

	file := writeTempFile(t, "report.txt", "hello")
	_, uploaded, err := gw.AddFile(context.Background(), "acme", file, nil)
	require.NoError(t, err)
	require.True(t, uploaded)

	// just after the hour rolls over the previous hour copy still counts
	gw.SetClock(func() time.Time { return first.Add(5 * time.Minute) })
	uri, uploaded, err := gw.AddFile(context.Background(), "acme", file, nil)
	require.NoError(t, err)
	require.False(t, uploaded)
	require.Equal(t, "gs://test-bucket/acme/2026/08/31/14/report.txt", uri)
	require.Equal(t, 1, store.uploads)
}

func TestGatewayStampsNamespaceMetadata(t *testing.T) {
	store := newCountingStore()
	gw := NewGateway(store, nil)
	at := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	gw.SetClock(func() time.Time { return at })

	file := writeTempFile(t, "page_1.pdf", "pdf")
	_, _, err := gw.AddFile(context.Background(), "docs", file, map[string]string{"origin": "split"})
	require.NoError(t, err)

	md := store.objects["docs/2026/08/31/09/page_1.pdf"]
	require.Equal(t, "docs", md["vector_name"])
	require.Equal(t, "split", md["origin"])
}

func TestObjectPathLayout(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	require.Equal(t, "ns/2026/01/02/03/f.txt", ObjectPath("ns", "f.txt", at))
}
