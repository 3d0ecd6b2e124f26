package analyzer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"budget-analyzer/internal/budget"
)

// referenceRates are rough CLP per m2 construction costs by project type.
var referenceRates = map[string]float64{
	"residential":    650_000,
	"residencial":    650_000,
	"commercial":     850_000,
	"comercial":      850_000,
	"industrial":     550_000,
	"infrastructure": 900_000,
	"renovation":     400_000,
	"remodelacion":   400_000,
}

const defaultRate = 700_000

var depthConfidence = map[string]float64{
	"basic":    45,
	"standard": 60,
	"detailed": 70,
}

// Estimator answers analysis requests locally from reference rates. It is
// used when no upstream analyzer is configured.
type Estimator struct {
	Percentages map[string]float64
}

// NewEstimator returns an Estimator using the stock category split.
func NewEstimator() *Estimator {
	return &Estimator{Percentages: budget.DefaultConfig().Percentages}
}

func (e *Estimator) AnalyzeQuick(ctx context.Context, req QuickRequest) (budget.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rate := rateFor(req.Type)
	total := math.Round(req.Area * rate)
	confidence := depthConfidence[strings.ToLower(req.AnalysisDepth)]
	if confidence == 0 {
		confidence = depthConfidence["standard"]
	}
	summary := fmt.Sprintf("Estimación referencial para %s de %.0f m² en %s a %s CLP/m².",
		strings.ToLower(strings.TrimSpace(req.Type)), req.Area, strings.TrimSpace(req.Location), formatCLP(rate))
	if req.EstimatedBudget > 0 && total > 0 {
		diff := (req.EstimatedBudget - total) / total * 100
		summary += fmt.Sprintf(" El presupuesto informado difiere en %.1f%% de la referencia.", diff)
	}

	analysis := e.baseAnalysis(total, confidence, summary)
	analysis["project_info"] = map[string]any{
		"name":             req.Name,
		"type":             req.Type,
		"location":         req.Location,
		"area_m2":          req.Area,
		"estimated_budget": req.EstimatedBudget,
	}
	return budget.Payload{"success": true, "data": map[string]any{"analysis": analysis}}, nil
}

func (e *Estimator) AnalyzeDocuments(ctx context.Context, kind budget.Kind, req DocumentRequest) (budget.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages := 0
	stated := 0.0
	names := make([]string, 0, len(req.Documents))
	for _, doc := range req.Documents {
		pages += doc.Pages
		stated += statedTotal(doc.Text)
		names = append(names, doc.FileName)
	}
	summary := fmt.Sprintf("Se recibieron %d documento(s) con %d página(s).", len(req.Documents), pages)
	confidence := 20.0
	if stated > 0 {
		summary += fmt.Sprintf(" Los documentos declaran un total de %s CLP; el desglose usa la distribución de referencia.", formatCLP(stated))
		confidence = 35
	} else {
		summary += " Sin analizador externo no es posible cubicar los planos; se requiere revisión manual."
	}
	analysis := e.baseAnalysis(stated, confidence, summary)
	analysis["project_info"] = map[string]any{
		"type":     req.ProjectType,
		"location": req.ProjectLocation,
	}

	data := map[string]any{"analysis": analysis}
	if len(names) > 0 {
		data["file_name"] = names[0]
	}
	if kind == budget.KindProject {
		data["files"] = names
	}
	return budget.Payload{"success": true, "data": data}, nil
}

func (e *Estimator) baseAnalysis(total, confidence float64, summary string) map[string]any {
	estimate := map[string]any{"total_clp": total}
	for category, pct := range e.Percentages {
		estimate[category+"_percentage"] = pct
	}
	return map[string]any{
		"resumen_ejecutivo":    summary,
		"presupuesto_estimado": estimate,
		"confidence_score":     confidence,
		"recomendaciones": []any{
			"Solicitar al menos tres cotizaciones de materiales.",
			"Validar la estimación con planos de especialidades.",
		},
		"analisis_riesgos": []any{
			map[string]any{
				"descripcion":  "Variación de precios de materiales durante la obra",
				"probabilidad": "media",
				"impacto":      "medio",
			},
		},
	}
}

// statedTotal returns the largest amount written on a line mentioning a total.
func statedTotal(text string) float64 {
	best := 0.0
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		idx := strings.Index(lower, "total")
		if idx < 0 {
			continue
		}
		if n := budget.ParseAmount(lower[idx:]); n > best {
			best = n
		}
	}
	return best
}

func rateFor(projectType string) float64 {
	if rate, ok := referenceRates[strings.ToLower(strings.TrimSpace(projectType))]; ok {
		return rate
	}
	return defaultRate
}

func formatCLP(v float64) string {
	digits := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}
