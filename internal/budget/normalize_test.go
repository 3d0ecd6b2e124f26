package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNilPayload(t *testing.T) {
	got := Normalize(nil, KindQuick)

	assert.Equal(t, KindQuick, got.Kind)
	assert.Zero(t, got.TotalBudgetCLP)
	assert.Empty(t, got.ExecutiveSummary)
	assert.NotNil(t, got.LineItems)
	assert.Empty(t, got.LineItems)
	assert.Nil(t, got.Provenance)
}

func TestNormalizeTotalPriority(t *testing.T) {
	raw := Payload{
		"data": map[string]any{
			"analysis": map[string]any{
				"presupuesto_estimado": map[string]any{"total_clp": 5000000.0},
				"desglose_costos":      map[string]any{"total": 4000000.0},
			},
		},
	}
	got := Normalize(raw, KindQuick)

	assert.Equal(t, 5000000.0, got.TotalBudgetCLP)
	assert.Equal(t, "presupuesto_estimado.total_clp", got.Provenance[FieldTotalBudget])
}

func TestNormalizeTotalFromAdjustedText(t *testing.T) {
	raw := Payload{"presupuesto_ajustado": "Aprox. $12.345.678 con IVA"}
	got := Normalize(raw, KindQuick)

	assert.Equal(t, 12345678.0, got.TotalBudgetCLP)
	assert.Equal(t, "presupuesto_ajustado (text)", got.Provenance[FieldTotalBudget])
}

func TestNormalizeFallsBackToCallerEstimate(t *testing.T) {
	raw := Payload{"resumen_ejecutivo": "Obra menor"}
	got := Normalize(raw, KindQuick, WithProjectEstimate(8000000))

	assert.Equal(t, 8000000.0, got.TotalBudgetCLP)
	assert.Equal(t, "caller.estimate", got.Provenance[FieldTotalBudget])
	assert.Equal(t, "Obra menor", got.ExecutiveSummary)
}

func TestNormalizeZeroTotalDoesNotShadowLaterSource(t *testing.T) {
	raw := Payload{
		"presupuesto_estimado": map[string]any{"total_clp": 0.0},
		"desglose_costos":      map[string]any{"total": 900.0},
	}
	got := Normalize(raw, KindPDF)

	assert.Equal(t, 900.0, got.TotalBudgetCLP)
}

func TestNormalizeProjectTotals(t *testing.T) {
	raw := Payload{
		"data": map[string]any{
			"analysis_id": "project_abc",
			"details": map[string]any{
				"presupuesto":         map[string]any{"total_con_iva": 11900.0, "total_neto": 10000.0, "iva": 1900.0},
				"resumen_consolidado": map[string]any{"resumen_ejecutivo": "Consolidado de 3 planos"},
			},
		},
	}
	got := Normalize(raw, KindProject)

	assert.Equal(t, "project_abc", got.AnalysisID)
	assert.Equal(t, 11900.0, got.TotalBudgetCLP)
	assert.Equal(t, 10000.0, got.NetCLP)
	assert.Equal(t, 1900.0, got.VATCLP)
	assert.Equal(t, "Consolidado de 3 planos", got.ExecutiveSummary)
	assert.Equal(t, "presupuesto.total_con_iva", got.Provenance[FieldTotalBudget])

	// The same payload normalized as quick ignores the consolidated total.
	quick := Normalize(raw, KindQuick)
	assert.Zero(t, quick.TotalBudgetCLP)
}

func TestNormalizeContainerOrder(t *testing.T) {
	raw := Payload{
		"data": map[string]any{
			"resumen_ejecutivo": "outer",
			"full_analysis":     map[string]any{"resumen_ejecutivo": "full"},
			"details":           map[string]any{"resumen_ejecutivo": "details"},
		},
	}
	got := Normalize(raw, KindPDF)
	assert.Equal(t, "details", got.ExecutiveSummary)
}

func TestNormalizeProjectInfo(t *testing.T) {
	raw := Payload{
		"data": map[string]any{
			"file_name": "planos.pdf",
			"project_info": map[string]any{
				"name":             "Casa Ñuñoa",
				"location":         "Santiago",
				"type":             "residential",
				"area_m2":          "120",
				"estimated_budget": 45000000.0,
			},
		},
	}
	got := Normalize(raw, KindPDF)

	assert.Equal(t, "Casa Ñuñoa", got.ProjectInfo.Name)
	assert.Equal(t, "Santiago", got.ProjectInfo.Location)
	assert.Equal(t, "residential", got.ProjectInfo.ProjectType)
	assert.Equal(t, 120.0, got.ProjectInfo.AreaM2)
	assert.Equal(t, "planos.pdf", got.ProjectInfo.FileName)
	assert.Equal(t, 45000000.0, got.TotalBudgetCLP)
	assert.Equal(t, "project_info.estimated_budget", got.Provenance[FieldTotalBudget])
}

func TestNormalizeCostBreakdownAliases(t *testing.T) {
	raw := Payload{
		"desglose_costos": map[string]any{
			"materiales":       450.0,
			"mano_obra":        "350",
			"equipos":          120.0,
			"gastos_generales": 80.0,
			"imprevistos":      10.0,
			"total":            1010.0,
			"iva":              191.9,
		},
	}
	got := Normalize(raw, KindQuick)

	require.NotNil(t, got.CostBreakdown)
	assert.Equal(t, map[string]float64{
		CategoryMaterials: 450,
		CategoryLabor:     350,
		CategoryEquipment: 120,
		CategoryOverhead:  80,
		"imprevistos":     10,
	}, got.CostBreakdown)
	assert.Equal(t, 1010.0, got.TotalBudgetCLP)
	assert.Equal(t, 191.9, got.VATCLP)
}

func TestNormalizeLineItems(t *testing.T) {
	raw := Payload{
		"items_presupuesto": []any{
			map[string]any{"codigo": "1.1", "descripcion": "Excavación", "unidad": "m3", "cantidad": "10", "precio_unitario": 15000.0},
			map[string]any{"item": 2.0, "description": "Hormigón", "unit": "m3", "quantity": 4.0, "unit_price": 90000.0, "total_price": 360000.0},
			"not an object",
			map[string]any{},
		},
	}
	got := Normalize(raw, KindPDF)

	require.Len(t, got.LineItems, 2)
	assert.Equal(t, LineItem{Code: "1.1", Description: "Excavación", Unit: "m3", Quantity: 10, UnitPriceRef: 15000, Total: 150000}, got.LineItems[0])
	assert.Equal(t, "2", got.LineItems[1].Code)
	assert.Equal(t, 360000.0, got.LineItems[1].Total)
}

func TestNormalizeFindings(t *testing.T) {
	raw := Payload{
		"analisis_riesgos": []any{
			map[string]any{"descripcion": "Alza de acero", "probabilidad": "alta", "impacto": "medio", "mitigacion": "Contrato a precio fijo"},
			"Lluvias en invierno",
			map[string]any{"probabilidad": "baja"},
		},
		"recommendations": []any{"Cotizar tres proveedores"},
	}
	got := Normalize(raw, KindQuick)

	require.Len(t, got.RiskFactors, 2)
	assert.Equal(t, Finding{Text: "Alza de acero", Probability: "alta", Impact: "medio", Mitigation: "Contrato a precio fijo"}, got.RiskFactors[0])
	assert.Equal(t, "Lluvias en invierno", got.RiskFactors[1].Text)
	require.Len(t, got.Recommendations, 1)
	assert.Equal(t, "recommendations", got.Provenance[FieldRecommendations])
}

func TestNormalizeConfidence(t *testing.T) {
	got := Normalize(Payload{"metadata": map[string]any{"confidence_score": 87.5}}, KindQuick)
	assert.Equal(t, 87.5, got.ConfidenceScore)

	got = Normalize(Payload{"confidence_score": 140.0}, KindQuick)
	assert.Equal(t, 100.0, got.ConfidenceScore)
}

func TestNormalizeReportedPercentages(t *testing.T) {
	raw := Payload{
		"presupuesto_estimado": map[string]any{
			"total_clp":            1000.0,
			"materials_percentage": 50.0,
			"labor_percentage":     30.0,
			"equipment_percentage": 0.0,
			"overhead_percentage":  "20",
		},
	}
	got := Normalize(raw, KindQuick)

	assert.Equal(t, map[string]float64{CategoryMaterials: 50, CategoryLabor: 30, CategoryOverhead: 20}, got.ReportedPercentages)
}

func TestNormalizeDoesNotMutatePayload(t *testing.T) {
	raw := Payload{"desglose_costos": map[string]any{"materiales": 1.0, "total": 2.0}}
	_ = Normalize(raw, KindQuick)

	breakdown := raw["desglose_costos"].(map[string]any)
	assert.Len(t, breakdown, 2)
	assert.Contains(t, breakdown, "materiales")
}

func TestNormalizeProjectTotalSources(t *testing.T) {
	withTotal := Normalize(Payload{"presupuesto": map[string]any{"total_con_iva": 2380.0}}, KindProject,
		WithProjectEstimate(99))
	assert.Equal(t, 2380.0, withTotal.TotalBudgetCLP)
	assert.Equal(t, "presupuesto.total_con_iva", withTotal.Provenance[FieldTotalBudget])

	fallback := Normalize(Payload{}, KindProject, WithProjectEstimate(99))
	assert.Equal(t, 99.0, fallback.TotalBudgetCLP)
	assert.Equal(t, "caller.estimate", fallback.Provenance[FieldTotalBudget])
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, KindPDF, kind)

	_, err = ParseKind("")
	assert.Error(t, err)

	_, err = ParseKind("full")
	assert.Error(t, err)
}
