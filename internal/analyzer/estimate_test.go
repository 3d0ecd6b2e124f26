package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget-analyzer/internal/budget"
)

func TestEstimatorQuick(t *testing.T) {
	p, err := NewEstimator().AnalyzeQuick(context.Background(), QuickRequest{
		Type:            "residential",
		Location:        "Valparaíso",
		Area:            100,
		EstimatedBudget: 70_000_000,
		AnalysisDepth:   "detailed",
	})
	require.NoError(t, err)

	got := budget.Normalize(p, budget.KindQuick)
	assert.Equal(t, 65_000_000.0, got.TotalBudgetCLP)
	assert.Equal(t, 70.0, got.ConfidenceScore)
	assert.Equal(t, "Valparaíso", got.ProjectInfo.Location)
	assert.Equal(t, 45.0, got.ReportedPercentages[budget.CategoryMaterials])
	assert.Contains(t, got.ExecutiveSummary, "$650.000")
	assert.NotEmpty(t, got.Recommendations)
	assert.NotEmpty(t, got.RiskFactors)
}

func TestEstimatorDocuments(t *testing.T) {
	p, err := NewEstimator().AnalyzeDocuments(context.Background(), budget.KindPDF, DocumentRequest{
		Documents: []Document{{FileName: "planos.pdf", Pages: 4}},
	})
	require.NoError(t, err)

	got := budget.Normalize(p, budget.KindPDF, budget.WithProjectEstimate(5_000_000))
	assert.Equal(t, "planos.pdf", got.ProjectInfo.FileName)
	assert.Equal(t, 5_000_000.0, got.TotalBudgetCLP)
	assert.Contains(t, got.ExecutiveSummary, "4 página(s)")
}

func TestEstimatorDocumentsUsesStatedTotal(t *testing.T) {
	p, err := NewEstimator().AnalyzeDocuments(context.Background(), budget.KindProject, DocumentRequest{
		Documents: []Document{
			{FileName: "arquitectura.pdf", Pages: 2, Text: "Planta tipo\nSubtotal obra gruesa: 8.000.000\nTOTAL PRESUPUESTO: $10.000.000"},
			{FileName: "estructura.pdf", Pages: 1, Text: "Total estructura 2.500.000"},
			{FileName: "detalles.pdf", Pages: 1},
		},
	})
	require.NoError(t, err)

	got := budget.Normalize(p, budget.KindProject)
	assert.Equal(t, 12_500_000.0, got.TotalBudgetCLP)
	assert.Equal(t, 35.0, got.ConfidenceScore)
	assert.Contains(t, got.ExecutiveSummary, "$12.500.000")
}

func TestStatedTotal(t *testing.T) {
	assert.Zero(t, statedTotal(""))
	assert.Zero(t, statedTotal("Superficie 120 m2"))
	assert.Equal(t, 4_200_000.0, statedTotal("total: 1.000\nMonto total neto 4.200.000"))
}

func TestFormatCLP(t *testing.T) {
	assert.Equal(t, "$1.234.567", formatCLP(1234567))
	assert.Equal(t, "$650", formatCLP(650))
}
