package analyses

import (
	"context"
	"fmt"
	"strings"

	"budget-analyzer/internal/budget"
)

const (
	minCompare = 2
	maxCompare = 5

	CompareTotalCost = "total_cost"
)

var comparisonCategories = map[string]string{
	"materials":      budget.CategoryMaterials,
	"labor":          budget.CategoryLabor,
	"equipment":      budget.CategoryEquipment,
	"overhead":       budget.CategoryOverhead,
	CompareTotalCost: "",
}

// ComparisonEntry is one analysis in a comparison.
type ComparisonEntry struct {
	AnalysisID string  `json:"analysisId"`
	Name       string  `json:"name,omitempty"`
	FileName   string  `json:"fileName,omitempty"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// Comparison lines up the same figure across several analyses.
type Comparison struct {
	ComparisonType string            `json:"comparisonType"`
	Entries        []ComparisonEntry `json:"entries"`
	Min            float64           `json:"min"`
	Max            float64           `json:"max"`
	Spread         float64           `json:"spread"`
	LowestID       string            `json:"lowestId"`
	HighestID      string            `json:"highestId"`
}

// Compare resolves each id and extracts the figure named by comparisonType.
func (s *Service) Compare(ctx context.Context, ownerID string, ids []string, comparisonType string) (Comparison, error) {
	comparisonType = strings.ToLower(strings.TrimSpace(comparisonType))
	if comparisonType == "" {
		comparisonType = CompareTotalCost
	}
	category, ok := comparisonCategories[comparisonType]
	if !ok {
		return Comparison{}, invalid("comparisonType", "must be one of materials, labor, equipment, overhead, total_cost")
	}
	ids = uniqueIDs(ids)
	if len(ids) < minCompare || len(ids) > maxCompare {
		return Comparison{}, invalid("analysisIds", fmt.Sprintf("between %d and %d distinct analysis ids are required", minCompare, maxCompare))
	}

	agg := s.aggregator()
	out := Comparison{ComparisonType: comparisonType, Entries: make([]ComparisonEntry, 0, len(ids))}
	for i, id := range ids {
		an, _, err := s.Get(ctx, ownerID, id)
		if err != nil {
			return Comparison{}, err
		}
		entry := ComparisonEntry{
			AnalysisID: an.AnalysisID,
			Name:       an.ProjectInfo.Name,
			FileName:   an.ProjectInfo.FileName,
		}
		if category == "" {
			entry.Amount = an.TotalBudgetCLP
			entry.Percentage = 100
		} else {
			entry.Amount = agg.Breakdown(an)[category]
			entry.Percentage = agg.BreakdownPercentages(an)[category]
		}
		if i == 0 || entry.Amount < out.Min {
			out.Min, out.LowestID = entry.Amount, entry.AnalysisID
		}
		if i == 0 || entry.Amount > out.Max {
			out.Max, out.HighestID = entry.Amount, entry.AnalysisID
		}
		out.Entries = append(out.Entries, entry)
	}
	out.Spread = out.Max - out.Min
	return out, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
