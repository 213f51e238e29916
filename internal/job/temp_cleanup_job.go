package job

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// TempCleanupJob removes leftover ingestion scratch directories. They are
// normally cleaned up inline; this catches the ones orphaned by crashes.
type TempCleanupJob struct {
	tempDir string
	maxAge  time.Duration
}

func NewTempCleanupJob(tempDir string, maxAge time.Duration) *TempCleanupJob {
	return &TempCleanupJob{tempDir: tempDir, maxAge: maxAge}
}

func (j *TempCleanupJob) Name() string {
	return "temp_cleanup"
}

func (j *TempCleanupJob) Run(ctx context.Context) error {
	dir := j.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "ingest-") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			logutil.GetLogger(ctx).Warn("remove scratch dir failed",
				zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("scratch dirs removed", zap.Int("count", removed))
	}
	return nil
}
