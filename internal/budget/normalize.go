package budget

import (
	"strings"
)

// Canonical field names used as keys in accessor tables and Provenance.
const (
	FieldAnalysisID       = "analysisId"
	FieldTotalBudget      = "totalBudgetClp"
	FieldNet              = "netClp"
	FieldVAT              = "vatClp"
	FieldExecutiveSummary = "executiveSummary"
	FieldCostBreakdown    = "costBreakdown"
	FieldPercentages      = "reportedPercentages"
	FieldLineItems        = "lineItems"
	FieldRiskFactors      = "riskFactors"
	FieldRecommendations  = "recommendations"
	FieldConfidence       = "confidenceScore"
	FieldProjectName      = "projectInfo.name"
	FieldLocation         = "projectInfo.location"
	FieldProjectType      = "projectInfo.projectType"
	FieldArea             = "projectInfo.areaM2"
	FieldFileName         = "projectInfo.fileName"
)

// scope holds the resolved views of a payload that accessors read from.
type scope struct {
	raw       map[string]any
	data      map[string]any
	container map[string]any
	project   map[string]any
	opts      options
}

// accessor is one named source for a canonical field.
type accessor struct {
	name string
	get  func(s *scope) (any, bool)
}

// fieldTable maps canonical field names to their ordered sources.
type fieldTable map[string][]accessor

func inContainer(path ...string) accessor {
	return accessor{
		name: strings.Join(path, "."),
		get:  func(s *scope) (any, bool) { return lookup(s.container, path...) },
	}
}

func inProject(key string) accessor {
	return accessor{
		name: "project_info." + key,
		get:  func(s *scope) (any, bool) { return lookup(s.project, key) },
	}
}

func inData(key string) accessor {
	return accessor{
		name: "data." + key,
		get:  func(s *scope) (any, bool) { return lookup(s.data, key) },
	}
}

func inRaw(key string) accessor {
	return accessor{
		name: "raw." + key,
		get:  func(s *scope) (any, bool) { return lookup(s.raw, key) },
	}
}

// amountInText reads a numeric amount out of a free-text container field.
func amountInText(path ...string) accessor {
	return accessor{
		name: strings.Join(path, ".") + " (text)",
		get: func(s *scope) (any, bool) {
			v, ok := lookup(s.container, path...)
			if !ok {
				return nil, false
			}
			text, ok := v.(string)
			if !ok {
				return nil, false
			}
			n, ok := parseAmount(text)
			return n, ok
		},
	}
}

func callerEstimate() accessor {
	return accessor{
		name: "caller.estimate",
		get: func(s *scope) (any, bool) {
			return s.opts.estimate, s.opts.estimate > 0
		},
	}
}

func callerAnalysisID() accessor {
	return accessor{
		name: "caller.analysisId",
		get: func(s *scope) (any, bool) {
			return s.opts.analysisID, s.opts.analysisID != ""
		},
	}
}

var totalBudgetSources = []accessor{
	inContainer("presupuesto_estimado", "total_clp"),
	inContainer("desglose_costos", "total"),
	amountInText("presupuesto_ajustado"),
	inProject("estimated_budget"),
	callerEstimate(),
}

var baseTable = fieldTable{
	FieldAnalysisID: {
		inData("analysis_id"),
		inRaw("analysis_id"),
		inContainer("analysis_id"),
		inData("id"),
		inRaw("id"),
		callerAnalysisID(),
	},
	FieldTotalBudget: totalBudgetSources,
	FieldNet: {
		inContainer("presupuesto", "total_neto"),
		inContainer("presupuesto_estimado", "neto_clp"),
		inContainer("resumen_consolidado", "total_neto"),
		inContainer("desglose_costos", "subtotal"),
	},
	FieldVAT: {
		inContainer("presupuesto", "iva"),
		inContainer("presupuesto_estimado", "iva_clp"),
		inContainer("resumen_consolidado", "iva"),
		inContainer("desglose_costos", "iva"),
	},
	FieldExecutiveSummary: {
		inContainer("resumen_ejecutivo"),
		inContainer("resumen_consolidado", "resumen_ejecutivo"),
		inContainer("summary"),
	},
	FieldCostBreakdown: {
		inContainer("desglose_costos"),
	},
	FieldPercentages: {
		inContainer("presupuesto_estimado"),
	},
	FieldLineItems: {
		inContainer("items_presupuesto"),
		inContainer("partidas"),
		inContainer("line_items"),
	},
	FieldRiskFactors: {
		inContainer("analisis_riesgos"),
		inContainer("riesgos"),
		inContainer("risk_factors"),
	},
	FieldRecommendations: {
		inContainer("recomendaciones"),
		inContainer("recommendations"),
	},
	FieldConfidence: {
		inContainer("confidence_score"),
		inContainer("metadata", "confidence_score"),
		inContainer("nivel_confianza"),
		inRaw("confidence_score"),
	},
	FieldProjectName: {
		inProject("name"),
		inContainer("proyecto", "nombre"),
		inContainer("nombre_proyecto"),
	},
	FieldLocation: {
		inProject("location"),
		inContainer("ubicacion"),
		inRaw("location"),
	},
	FieldProjectType: {
		inProject("type"),
		inProject("project_type"),
		inContainer("tipo_proyecto"),
		inRaw("project_type"),
	},
	FieldArea: {
		inProject("area_m2"),
		inProject("area"),
		inContainer("area_m2"),
		inRaw("area_m2"),
	},
	FieldFileName: {
		inProject("file_name"),
		inData("file_name"),
		inContainer("file_name"),
		inRaw("file_name"),
	},
}

// projectTable puts the consolidated multi-document totals ahead of the
// single-document sources.
var projectTable = baseTable.with(FieldTotalBudget, append([]accessor{
	inContainer("presupuesto", "total_con_iva"),
	inContainer("presupuesto_estimado", "total_clp"),
	inContainer("resumen_consolidado", "total_con_iva"),
}, totalBudgetSources...))

func (t fieldTable) with(field string, sources []accessor) fieldTable {
	out := make(fieldTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	out[field] = sources
	return out
}

func tableFor(kind Kind) fieldTable {
	if kind == KindProject {
		return projectTable
	}
	return baseTable
}

type options struct {
	estimate   float64
	analysisID string
}

// Option tunes Normalize.
type Option func(*options)

// WithProjectEstimate supplies the estimate the caller submitted with the
// request. It is used when the payload carries no usable total.
func WithProjectEstimate(clp float64) Option {
	return func(o *options) {
		if clp > 0 {
			o.estimate = clp
		}
	}
}

// WithAnalysisID supplies the id to use when the payload does not carry one.
func WithAnalysisID(id string) Option {
	return func(o *options) {
		o.analysisID = strings.TrimSpace(id)
	}
}

// Normalize maps any known payload shape to the canonical Analysis. It never
// fails: missing or malformed fields fall back to zero values.
func Normalize(raw Payload, kind Kind, opts ...Option) Analysis {
	s := newScope(raw)
	for _, opt := range opts {
		opt(&s.opts)
	}
	if !kind.Valid() {
		kind = KindQuick
	}
	table := tableFor(kind)
	prov := map[string]string{}

	out := Analysis{
		Kind:             kind,
		AnalysisID:       resolveString(s, table, FieldAnalysisID, prov),
		TotalBudgetCLP:   resolveAmount(s, table, FieldTotalBudget, prov),
		NetCLP:           resolveAmount(s, table, FieldNet, prov),
		VATCLP:           resolveAmount(s, table, FieldVAT, prov),
		ExecutiveSummary: resolveString(s, table, FieldExecutiveSummary, prov),
		ConfidenceScore:  clampScore(resolveAmount(s, table, FieldConfidence, prov)),
		ProjectInfo: ProjectInfo{
			Name:        resolveString(s, table, FieldProjectName, prov),
			Location:    resolveString(s, table, FieldLocation, prov),
			ProjectType: resolveString(s, table, FieldProjectType, prov),
			AreaM2:      resolveAmount(s, table, FieldArea, prov),
			FileName:    resolveString(s, table, FieldFileName, prov),
		},
		LineItems:       []LineItem{},
		RiskFactors:     []Finding{},
		Recommendations: []Finding{},
	}

	if m, ok := resolveMap(s, table, FieldCostBreakdown, prov); ok {
		out.CostBreakdown = costBreakdown(m)
		if out.CostBreakdown == nil {
			delete(prov, FieldCostBreakdown)
		}
	}
	if m, ok := resolveMap(s, table, FieldPercentages, prov); ok {
		out.ReportedPercentages = reportedPercentages(m)
		if out.ReportedPercentages == nil {
			delete(prov, FieldPercentages)
		}
	}
	if list, ok := resolveList(s, table, FieldLineItems, prov); ok {
		out.LineItems = lineItems(list)
	}
	if list, ok := resolveList(s, table, FieldRiskFactors, prov); ok {
		out.RiskFactors = findings(list)
	}
	if list, ok := resolveList(s, table, FieldRecommendations, prov); ok {
		out.Recommendations = findings(list)
	}
	if len(prov) > 0 {
		out.Provenance = prov
	}
	return out
}

func newScope(raw Payload) *scope {
	s := &scope{raw: map[string]any(raw)}
	s.data, _ = lookupMap(s.raw, "data")
	s.container = firstMap(
		func() (map[string]any, bool) { return lookupMap(s.data, "analysis") },
		func() (map[string]any, bool) { return lookupMap(s.data, "details") },
		func() (map[string]any, bool) { return lookupMap(s.data, "full_analysis") },
		func() (map[string]any, bool) { return lookupMap(s.raw, "analysis") },
		func() (map[string]any, bool) { return s.data, s.data != nil },
		func() (map[string]any, bool) { return s.raw, len(s.raw) > 0 },
	)
	s.project = firstMap(
		func() (map[string]any, bool) { return lookupMap(s.data, "project_info") },
		func() (map[string]any, bool) { return lookupMap(s.container, "project_info") },
		func() (map[string]any, bool) { return lookupMap(s.raw, "project_info") },
	)
	return s
}

func firstMap(candidates ...func() (map[string]any, bool)) map[string]any {
	for _, candidate := range candidates {
		if m, ok := candidate(); ok {
			return m
		}
	}
	return nil
}

// resolveAmount returns the first strictly positive number. Zero is treated
// as absent so an empty upstream field does not shadow a later source.
func resolveAmount(s *scope, table fieldTable, field string, prov map[string]string) float64 {
	for _, acc := range table[field] {
		v, ok := acc.get(s)
		if !ok {
			continue
		}
		n, ok := toNumber(v)
		if !ok || n <= 0 {
			continue
		}
		prov[field] = acc.name
		return n
	}
	return 0
}

func resolveString(s *scope, table fieldTable, field string, prov map[string]string) string {
	for _, acc := range table[field] {
		v, ok := acc.get(s)
		if !ok {
			continue
		}
		if text := stringify(v); text != "" {
			prov[field] = acc.name
			return text
		}
	}
	return ""
}

func resolveMap(s *scope, table fieldTable, field string, prov map[string]string) (map[string]any, bool) {
	for _, acc := range table[field] {
		v, ok := acc.get(s)
		if !ok {
			continue
		}
		if m, ok := asMap(v); ok && len(m) > 0 {
			prov[field] = acc.name
			return m, true
		}
	}
	return nil, false
}

func resolveList(s *scope, table fieldTable, field string, prov map[string]string) ([]any, bool) {
	for _, acc := range table[field] {
		v, ok := acc.get(s)
		if !ok {
			continue
		}
		if list, ok := v.([]any); ok && len(list) > 0 {
			prov[field] = acc.name
			return list, true
		}
	}
	return nil, false
}

var categoryAliases = map[string]string{
	"materiales":       CategoryMaterials,
	"mano_obra":        CategoryLabor,
	"mano_de_obra":     CategoryLabor,
	"equipos":          CategoryEquipment,
	"gastos_generales": CategoryOverhead,
}

var breakdownTotals = map[string]bool{
	"total":    true,
	"subtotal": true,
	"iva":      true,
}

func costBreakdown(m map[string]any) map[string]float64 {
	out := map[string]float64{}
	for key, v := range m {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if breakdownTotals[normalized] {
			continue
		}
		n, ok := toNumber(v)
		if !ok || n < 0 {
			continue
		}
		if alias, ok := categoryAliases[normalized]; ok {
			normalized = alias
		}
		out[normalized] += n
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func reportedPercentages(m map[string]any) map[string]float64 {
	out := map[string]float64{}
	for _, category := range Categories {
		n, ok := toNumber(m[category+"_percentage"])
		if !ok || n <= 0 {
			continue
		}
		out[category] = n
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func lineItems(list []any) []LineItem {
	items := make([]LineItem, 0, len(list))
	for _, entry := range list {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		item := LineItem{
			Code:        firstString(m, "codigo", "code", "item"),
			Description: firstString(m, "descripcion", "description", "partida"),
			Unit:        firstString(m, "unidad", "unit"),
		}
		qty, hasQty := firstNumber(m, "cantidad", "quantity")
		price, hasPrice := firstNumber(m, "precio_unitario", "unit_price")
		total, hasTotal := firstNumber(m, "total", "total_price", "precio_total")
		item.Quantity = qty
		item.UnitPriceRef = price
		item.Total = total
		if !hasTotal && hasQty && hasPrice {
			item.Total = qty * price
		}
		if item.Description == "" && item.Code == "" && item.Total == 0 {
			continue
		}
		items = append(items, item)
	}
	return items
}

func findings(list []any) []Finding {
	out := make([]Finding, 0, len(list))
	for _, entry := range list {
		if text := stringify(entry); text != "" {
			out = append(out, Finding{Text: text})
			continue
		}
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		f := Finding{
			Text:        firstString(m, "descripcion", "description", "riesgo", "recomendacion", "titulo", "text"),
			Probability: firstString(m, "probabilidad", "probability"),
			Impact:      firstString(m, "impacto", "impact"),
			Mitigation:  firstString(m, "mitigacion", "mitigation"),
		}
		if f.Text == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
