package splitter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// SplitFunc turns one local file into the list of files to process. The
// default implementation splits multi-page PDFs into single pages.
type SplitFunc func(localPath, tempDir string) ([]string, error)

var pageSuffix = regexp.MustCompile(`_(\d+)\.pdf$`)

// SplitIfMultiPage returns the input path untouched for non-PDF files and
// single-page PDFs. A PDF with more than one page is split into per-page PDFs
// under tempDir, returned in page order.
func SplitIfMultiPage(localPath, tempDir string) ([]string, error) {
	if strings.ToLower(filepath.Ext(localPath)) != ".pdf" {
		return []string{localPath}, nil
	}
	pages, err := api.PageCountFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("count pages of %s: %w", localPath, err)
	}
	if pages <= 1 {
		return []string{localPath}, nil
	}

	outDir := filepath.Join(tempDir, "pages")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create split dir: %w", err)
	}
	if err := api.SplitFile(localPath, outDir, 1, nil); err != nil {
		return nil, fmt.Errorf("split %s: %w", localPath, err)
	}

	matches, err := filepath.Glob(filepath.Join(outDir, "*.pdf"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("split of %s produced no pages", localPath)
	}
	sort.Slice(matches, func(i, j int) bool {
		return pageNumber(matches[i]) < pageNumber(matches[j])
	})
	return matches, nil
}

func pageNumber(path string) int {
	m := pageSuffix.FindStringSubmatch(path)
	if len(m) != 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
