package budget

// Analysis is the canonical, display-ready shape of a budget analysis.
type Analysis struct {
	AnalysisID          string             `json:"analysisId"`
	Kind                Kind               `json:"kind"`
	ExecutiveSummary    string             `json:"executiveSummary"`
	TotalBudgetCLP      float64            `json:"totalBudgetClp"`
	NetCLP              float64            `json:"netClp,omitempty"`
	VATCLP              float64            `json:"vatClp,omitempty"`
	CostBreakdown       map[string]float64 `json:"costBreakdown,omitempty"`
	ReportedPercentages map[string]float64 `json:"reportedPercentages,omitempty"`
	LineItems           []LineItem         `json:"lineItems"`
	RiskFactors         []Finding          `json:"riskFactors"`
	Recommendations     []Finding          `json:"recommendations"`
	ConfidenceScore     float64            `json:"confidenceScore"`
	ProjectInfo         ProjectInfo        `json:"projectInfo"`
	Provenance          map[string]string  `json:"provenance,omitempty"`
}

// LineItem is one row of the itemized budget.
type LineItem struct {
	Code         string  `json:"code,omitempty"`
	Description  string  `json:"description"`
	Unit         string  `json:"unit,omitempty"`
	Quantity     float64 `json:"quantity"`
	UnitPriceRef float64 `json:"unitPriceRef"`
	Total        float64 `json:"total"`
}

// Finding is a risk factor or a recommendation.
type Finding struct {
	Text        string `json:"text"`
	Probability string `json:"probability,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Mitigation  string `json:"mitigation,omitempty"`
}

type ProjectInfo struct {
	Name        string  `json:"name,omitempty"`
	Location    string  `json:"location,omitempty"`
	ProjectType string  `json:"projectType,omitempty"`
	AreaM2      float64 `json:"areaM2,omitempty"`
	FileName    string  `json:"fileName,omitempty"`
}

// OfferLine is a line item repriced with a margin.
type OfferLine struct {
	LineItem
	UnitPriceOffer float64 `json:"unitPriceOffer"`
	TotalOffer     float64 `json:"totalOffer"`
}

// OfferProjection is the result of applying a margin to an analysis.
type OfferProjection struct {
	MarginPercent  float64     `json:"marginPercent"`
	ReferenceTotal float64     `json:"referenceTotal"`
	LineItems      []OfferLine `json:"lineItems"`
	TotalOffer     float64     `json:"totalOffer"`
}
