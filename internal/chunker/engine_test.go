package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tidegate/vectorpipe/internal/config"
	"github.com/tidegate/vectorpipe/internal/model"
)

func newTestEngine(size, overlap int) *Engine {
	return NewEngine(config.ChunkConfig{Size: size, Overlap: overlap})
}

func TestChunkMetadataInheritance(t *testing.T) {
	e := newTestEngine(100, 0)
	doc := model.Document{
		PageContent: strings.Repeat("lorem ipsum dolor sit amet. ", 40),
		Metadata:    map[string]string{"source": "gs://b/f.txt", "type": "file_load_gcs"},
	}

	chunks, err := e.Chunk(context.Background(), []model.Document{doc}, ".txt")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		require.Equal(t, doc.Metadata, chunk.Metadata)
		require.LessOrEqual(t, len(chunk.PageContent), 100)
	}

	// metadata is copied, not shared
	chunks[0].Metadata["mutated"] = "yes"
	require.NotContains(t, chunks[1].Metadata, "mutated")
	require.NotContains(t, doc.Metadata, "mutated")
}

func TestChunkNormalizesWhitespace(t *testing.T) {
	e := newTestEngine(1024, 0)
	doc := model.Document{PageContent: "hello\tworld\r\nnext   line"}

	chunks, err := e.Chunk(context.Background(), []model.Document{doc}, ".txt")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "hello world next line", chunks[0].PageContent)
}

func TestChunkMarkdownNormalizesBeforeSplitting(t *testing.T) {
	e := newTestEngine(1024, 0)
	md := "# Install\n\nRun the installer.\n\n# Usage\n\nStart the server.\n"
	doc := model.Document{PageContent: md, Metadata: map[string]string{"source": "readme"}}

	chunks, err := e.Chunk(context.Background(), []model.Document{doc}, ".md")
	require.NoError(t, err)
	// whitespace collapses before the splitter runs, so the two heading
	// sections do not become two chunks
	require.Len(t, chunks, 1)
	require.Equal(t, "# Install Run the installer. # Usage Start the server.", chunks[0].PageContent)
	require.Equal(t, "readme", chunks[0].Metadata["source"])
}

func TestChunkMarkdownWithoutHeadings(t *testing.T) {
	e := newTestEngine(50, 0)
	doc := model.Document{PageContent: strings.Repeat("plain text without any headings. ", 10)}

	chunks, err := e.Chunk(context.Background(), []model.Document{doc}, ".md")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
}

func TestChunkEmptyDocuments(t *testing.T) {
	e := newTestEngine(1024, 0)
	chunks, err := e.Chunk(context.Background(), nil, ".txt")
	require.NoError(t, err)
	require.Empty(t, chunks)

	chunks, err = e.Chunk(context.Background(), []model.Document{{PageContent: "   "}}, ".txt")
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestCodeExtensionSelection(t *testing.T) {
	require.True(t, isCodeExt(".py"))
	require.True(t, isCodeExt(".go"))
	require.False(t, isCodeExt(".md"))
	require.False(t, isCodeExt(".txt"))
}

func TestNormalizeWhitespaceCollapsesRuns(t *testing.T) {
	require.Equal(t, "a b c", normalizeWhitespace("a\n\n\nb\t\t c"))
	require.Equal(t, "", normalizeWhitespace(" \n\t "))
}
