package usage

import (
	"time"

	"budget-analyzer/internal/budget"
)

// Metric names the monthly counter an analysis kind draws from.
type Metric string

const (
	MetricBudget Metric = "budget_analyses"
	MetricPDF    Metric = "pdf_analyses"
)

// Metrics lists the counters in display order.
var Metrics = []Metric{MetricBudget, MetricPDF}

// MetricFor maps an analysis kind to its counter. Document analyses (single
// or multi-file) share the PDF quota.
func MetricFor(kind budget.Kind) Metric {
	switch kind {
	case budget.KindPDF, budget.KindProject:
		return MetricPDF
	default:
		return MetricBudget
	}
}

// Limits are the monthly quotas. A limit <= 0 means unlimited.
type Limits struct {
	MonthlyAnalyses int `json:"monthly_analyses"`
	PDFAnalyses     int `json:"pdf_analyses"`
	MaxFileSizeMB   int `json:"max_file_size_mb"`
}

func (l Limits) of(m Metric) int {
	if m == MetricPDF {
		return l.PDFAnalyses
	}
	return l.MonthlyAnalyses
}

// UsageMetric is the detailed view of one counter.
type UsageMetric struct {
	Current    int       `json:"current"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	Percentage float64   `json:"percentage"`
	ResetType  string    `json:"reset_type"`
	NextReset  time.Time `json:"next_reset"`
}

// MonthCounts holds the counters of the current period.
type MonthCounts struct {
	BudgetAnalyses int `json:"budget_analyses"`
	PDFAnalyses    int `json:"pdf_analyses"`
}

// Percentages holds the usage percentage per counter.
type Percentages struct {
	BudgetAnalyses float64 `json:"budget_analyses"`
	PDFAnalyses    float64 `json:"pdf_analyses"`
}

// Stats is the usage snapshot returned to clients.
type Stats struct {
	UserID          string                 `json:"user_id"`
	Environment     string                 `json:"environment"`
	Period          string                 `json:"period"`
	CurrentMonth    MonthCounts            `json:"current_month"`
	Limits          Limits                 `json:"limits"`
	UsagePercentage Percentages            `json:"usage_percentage"`
	Metrics         map[Metric]UsageMetric `json:"metrics"`
}

// Period returns the YYYY-MM bucket of t.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// NextReset returns the start of the month following t.
func NextReset(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
