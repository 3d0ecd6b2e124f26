package analyses

import (
	"strings"
	"time"

	"budget-analyzer/internal/budget"
)

// StatusCompleted is the only status written; failed upstream calls are not stored.
const StatusCompleted = "completed"

// Record is a stored budget analysis.
type Record struct {
	RowID           int64
	AnalysisID      string
	OwnerID         string
	Kind            budget.Kind
	Status          string
	FileName        string
	StorageKeys     []string
	ProjectType     string
	Location        string
	AreaM2          float64
	EstimatedBudget float64
	ConfidenceScore float64
	Summary         string
	RawPayload      budget.Payload
	Canonical       *budget.Analysis
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// newRecord fills the denormalized listing columns from the canonical analysis.
func newRecord(owner string, an budget.Analysis, raw budget.Payload, created time.Time) Record {
	return Record{
		AnalysisID:      an.AnalysisID,
		OwnerID:         owner,
		Kind:            an.Kind,
		Status:          StatusCompleted,
		FileName:        an.ProjectInfo.FileName,
		ProjectType:     an.ProjectInfo.ProjectType,
		Location:        an.ProjectInfo.Location,
		AreaM2:          an.ProjectInfo.AreaM2,
		EstimatedBudget: an.TotalBudgetCLP,
		ConfidenceScore: an.ConfidenceScore,
		Summary:         truncate(an.ExecutiveSummary, summaryMaxLen),
		RawPayload:      raw,
		Canonical:       &an,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

// HistorySummary converts the record to a history row.
func (r Record) HistorySummary() budget.HistorySummary {
	return budget.HistorySummary{
		ID:              budget.FlexibleID(formatRowID(r.RowID)),
		AnalysisID:      budget.FlexibleID(r.AnalysisID),
		CreatedAt:       r.CreatedAt,
		AnalysisType:    string(r.Kind),
		ProjectType:     r.ProjectType,
		Location:        r.Location,
		AreaM2:          r.AreaM2,
		EstimatedBudget: r.EstimatedBudget,
		ConfidenceScore: r.ConfidenceScore,
		Summary:         r.Summary,
		FileName:        r.FileName,
		Details:         r.RawPayload,
	}
}

const summaryMaxLen = 500

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
