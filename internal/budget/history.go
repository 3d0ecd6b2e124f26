package budget

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// FlexibleID accepts both JSON numbers and strings and compares as text.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// HistorySummary is one row of the analysis history listing.
type HistorySummary struct {
	ID              FlexibleID `json:"id"`
	AnalysisID      FlexibleID `json:"analysis_id"`
	CreatedAt       time.Time  `json:"created_at"`
	AnalysisType    string     `json:"analysis_type,omitempty"`
	ProjectType     string     `json:"project_type,omitempty"`
	Location        string     `json:"location,omitempty"`
	AreaM2          float64    `json:"area_m2,omitempty"`
	EstimatedBudget float64    `json:"estimated_budget"`
	ConfidenceScore float64    `json:"confidence_score"`
	Summary         string     `json:"summary,omitempty"`
	FileName        string     `json:"file_name,omitempty"`
	Details         Payload    `json:"details,omitempty"`
}

// FindAndReconstruct locates id in history and rebuilds its canonical form.
// Records are matched on analysis id first, then on row id.
func FindAndReconstruct(id string, history []HistorySummary) (Analysis, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Analysis{}, &NotFoundError{ID: id}
	}
	for _, record := range history {
		if record.analysisID() == id || record.rowID() == id {
			return Reconstruct(record), nil
		}
	}
	return Analysis{}, &NotFoundError{ID: id}
}

// Reconstruct normalizes a single history record.
func Reconstruct(record HistorySummary) Analysis {
	kind := InferKind(record)
	analysisID := record.analysisID()
	if analysisID == "" {
		analysisID = record.rowID()
	}
	if len(record.Details) > 0 {
		an := Normalize(record.Details, kind,
			WithAnalysisID(analysisID),
			WithProjectEstimate(record.EstimatedBudget),
		)
		// the history row owns the identity, whatever the payload says
		if analysisID != "" && an.AnalysisID != analysisID {
			an.AnalysisID = analysisID
			if an.Provenance == nil {
				an.Provenance = map[string]string{}
			}
			an.Provenance[FieldAnalysisID] = "history.id"
		}
		return an
	}
	return Analysis{
		AnalysisID:       analysisID,
		Kind:             kind,
		ExecutiveSummary: strings.TrimSpace(record.Summary),
		TotalBudgetCLP:   nonNegative(record.EstimatedBudget),
		ConfidenceScore:  clampScore(record.ConfidenceScore),
		ProjectInfo: ProjectInfo{
			Location:    record.Location,
			ProjectType: record.ProjectType,
			AreaM2:      nonNegative(record.AreaM2),
			FileName:    record.FileName,
		},
		LineItems:       []LineItem{},
		RiskFactors:     []Finding{},
		Recommendations: []Finding{},
	}
}

// InferKind picks the analysis kind of a history record: an explicit type
// wins, then the project id prefix on either id, then the presence of a
// file name.
func InferKind(record HistorySummary) Kind {
	if kind, err := ParseKind(record.AnalysisType); err == nil {
		return kind
	}
	if v, ok := lookup(record.Details, "analysis_type"); ok {
		if kind, err := ParseKind(stringify(v)); err == nil {
			return kind
		}
	}
	if strings.HasPrefix(record.analysisID(), ProjectIDPrefix) || strings.HasPrefix(record.rowID(), ProjectIDPrefix) {
		return KindProject
	}
	if strings.TrimSpace(record.FileName) != "" {
		return KindPDF
	}
	return KindQuick
}

func (r HistorySummary) analysisID() string { return strings.TrimSpace(string(r.AnalysisID)) }

func (r HistorySummary) rowID() string { return strings.TrimSpace(string(r.ID)) }

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
