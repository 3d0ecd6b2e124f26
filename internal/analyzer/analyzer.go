package analyzer

import (
	"context"
	"errors"
	"fmt"

	"budget-analyzer/internal/budget"
)

// Client sends analysis requests to the upstream budget analyzer.
type Client interface {
	AnalyzeQuick(ctx context.Context, req QuickRequest) (budget.Payload, error)
	AnalyzeDocuments(ctx context.Context, kind budget.Kind, req DocumentRequest) (budget.Payload, error)
}

// QuickRequest describes a project without plans.
type QuickRequest struct {
	Type              string  `json:"type"`
	Location          string  `json:"location"`
	Area              float64 `json:"area"`
	EstimatedBudget   float64 `json:"estimatedBudget,omitempty"`
	Description       string  `json:"description,omitempty"`
	Name              string  `json:"name,omitempty"`
	AnalysisDepth     string  `json:"analysisDepth"`
	IncludeMarketData bool    `json:"includeMarketData"`
	IncludeProviders  bool    `json:"includeProviders"`
}

// Document is one uploaded plan. Text holds the leading extracted text, if any.
type Document struct {
	FileName    string
	ContentType string
	Pages       int
	Text        string
	Data        []byte
}

// DocumentRequest carries one (pdf) or several (project) plans.
type DocumentRequest struct {
	AnalysisDepth    string
	ProjectType      string
	ProjectLocation  string
	IncludeProviders bool
	Documents        []Document
}

// ErrUpstream marks failures of the upstream analyzer.
var ErrUpstream = errors.New("upstream analyzer failed")

// UpstreamError is a non-success answer from the analyzer.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream analyzer: %s", e.Message)
	}
	return fmt.Sprintf("upstream analyzer status %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
