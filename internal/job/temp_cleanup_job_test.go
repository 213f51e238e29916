package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTempCleanupRemovesOldScratchDirs(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "ingest-old")
	require.NoError(t, os.Mkdir(old, 0755))
	stale := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	fresh := filepath.Join(dir, "ingest-fresh")
	require.NoError(t, os.Mkdir(fresh, 0755))

	other := filepath.Join(dir, "other-dir")
	require.NoError(t, os.Mkdir(other, 0755))
	require.NoError(t, os.Chtimes(other, stale, stale))

	j := NewTempCleanupJob(dir, 2*time.Hour)
	require.NoError(t, j.Run(context.Background()))

	require.NoDirExists(t, old)
	require.DirExists(t, fresh)
	require.DirExists(t, other)
}
