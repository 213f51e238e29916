package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidegate/vectorpipe/internal/model"
)

// keep the prompt well inside typical context limits
const maxSummaryInput = 24000

// Summarizer produces a short abstract of a freshly ingested document set.
type Summarizer struct {
	gen IGenerator
}

func NewSummarizer(gen IGenerator) *Summarizer {
	return &Summarizer{gen: gen}
}

func (s *Summarizer) Summarize(ctx context.Context, docs []model.Document) (string, error) {
	if s.gen == nil {
		return "", fmt.Errorf("no generator configured")
	}
	var sb strings.Builder
	for _, doc := range docs {
		if sb.Len() >= maxSummaryInput {
			break
		}
		remain := maxSummaryInput - sb.Len()
		content := doc.PageContent
		if len(content) > remain {
			content = content[:remain]
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}
	prompt := "Summarise the following document in a few sentences:\n\n" + sb.String()
	return s.gen.Generate(ctx, prompt)
}
