package analyses

import (
	"bytes"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"budget-analyzer/internal/budget"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Detail is the response body for a single analysis.
type Detail struct {
	budget.Analysis
	Summary     budget.Summary `json:"summary"`
	SummaryHTML string         `json:"summaryHtml"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty"`
}

// renderSummary renders the executive summary (markdown) to HTML. Raw HTML in
// the source is omitted by goldmark's default renderer.
func renderSummary(text string) (string, error) {
	if text == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) detail(an budget.Analysis, created *time.Time) Detail {
	html, err := renderSummary(an.ExecutiveSummary)
	if err != nil {
		html = ""
	}
	return Detail{
		Analysis:    an,
		Summary:     s.aggregator().Summarize(an),
		SummaryHTML: html,
		CreatedAt:   created,
	}
}
