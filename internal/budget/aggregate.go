package budget

import (
	"math"
	"sort"
)

// Canonical cost categories.
const (
	CategoryMaterials = "materials"
	CategoryLabor     = "labor"
	CategoryEquipment = "equipment"
	CategoryOverhead  = "overhead"
)

// Categories lists the canonical categories in display order.
var Categories = []string{CategoryMaterials, CategoryLabor, CategoryEquipment, CategoryOverhead}

// Defaults gathers every fallback the aggregator applies.
type Defaults struct {
	Percentages      map[string]float64
	VATRate          float64
	MinMargin        float64
	MaxMargin        float64
	PercentPrecision int
}

// DefaultConfig returns the stock fallbacks: a 45/35/12/8 split, 19% VAT and
// a ±15% offer window.
func DefaultConfig() Defaults {
	return Defaults{
		Percentages: map[string]float64{
			CategoryMaterials: 45,
			CategoryLabor:     35,
			CategoryEquipment: 12,
			CategoryOverhead:  8,
		},
		VATRate:          0.19,
		MinMargin:        -15,
		MaxMargin:        15,
		PercentPrecision: 1,
	}
}

// Aggregator derives display figures from a canonical Analysis.
type Aggregator struct {
	cfg Defaults
}

// NewAggregator fills zero fields of cfg from DefaultConfig.
func NewAggregator(cfg Defaults) *Aggregator {
	def := DefaultConfig()
	if len(cfg.Percentages) == 0 {
		cfg.Percentages = def.Percentages
	} else {
		cfg.Percentages = copyFloats(cfg.Percentages)
	}
	if cfg.VATRate <= 0 {
		cfg.VATRate = def.VATRate
	}
	if cfg.MinMargin == 0 && cfg.MaxMargin == 0 {
		cfg.MinMargin, cfg.MaxMargin = def.MinMargin, def.MaxMargin
	}
	if cfg.PercentPrecision <= 0 {
		cfg.PercentPrecision = def.PercentPrecision
	}
	return &Aggregator{cfg: cfg}
}

var defaultAggregator = NewAggregator(DefaultConfig())

// Config returns a copy of the aggregator settings.
func (a *Aggregator) Config() Defaults {
	cfg := a.cfg
	cfg.Percentages = copyFloats(a.cfg.Percentages)
	return cfg
}

// BreakdownPercentages returns the share of each cost category in percent.
// Priority: actual cost breakdown, then upstream-reported percentages, then
// the configured defaults.
func (a *Aggregator) BreakdownPercentages(an Analysis) map[string]float64 {
	if len(an.CostBreakdown) > 0 {
		total := an.TotalBudgetCLP
		out := make(map[string]float64, len(an.CostBreakdown))
		for category, amount := range an.CostBreakdown {
			if total <= 0 {
				out[category] = 0
				continue
			}
			out[category] = roundTo(amount/total*100, a.cfg.PercentPrecision)
		}
		return out
	}
	if len(an.ReportedPercentages) > 0 {
		return copyFloats(an.ReportedPercentages)
	}
	return copyFloats(a.cfg.Percentages)
}

// Breakdown returns CLP amounts per category. Without an actual breakdown the
// amounts are the percentages applied to the total.
func (a *Aggregator) Breakdown(an Analysis) map[string]float64 {
	if len(an.CostBreakdown) > 0 {
		return copyFloats(an.CostBreakdown)
	}
	pct := a.BreakdownPercentages(an)
	out := make(map[string]float64, len(pct))
	for category, share := range pct {
		out[category] = math.Round(an.TotalBudgetCLP * share / 100)
	}
	return out
}

// Split returns net and VAT amounts. Reported figures win; otherwise the
// total is taken as VAT-inclusive at the configured rate.
func (a *Aggregator) Split(an Analysis) (net, vat float64) {
	total := an.TotalBudgetCLP
	net, vat = an.NetCLP, an.VATCLP
	switch {
	case net > 0 && vat > 0:
		return net, vat
	case net > 0:
		if total > net {
			return net, total - net
		}
		return net, math.Round(net * a.cfg.VATRate)
	case vat > 0:
		if total > vat {
			return total - vat, vat
		}
		return 0, vat
	}
	if total <= 0 {
		return 0, 0
	}
	net = math.Round(total / (1 + a.cfg.VATRate))
	return net, total - net
}

// ProjectOffer applies marginPercent to every line item. Without line items
// the margin is applied to the total budget.
func (a *Aggregator) ProjectOffer(an Analysis, marginPercent float64) (OfferProjection, error) {
	if math.IsNaN(marginPercent) || marginPercent < a.cfg.MinMargin || marginPercent > a.cfg.MaxMargin {
		return OfferProjection{}, &OutOfRangeError{Value: marginPercent, Min: a.cfg.MinMargin, Max: a.cfg.MaxMargin}
	}
	factor := 1 + marginPercent/100
	out := OfferProjection{
		MarginPercent:  marginPercent,
		ReferenceTotal: an.TotalBudgetCLP,
		LineItems:      make([]OfferLine, 0, len(an.LineItems)),
	}
	if len(an.LineItems) == 0 {
		out.TotalOffer = an.TotalBudgetCLP * factor
		return out, nil
	}
	var reference float64
	for _, item := range an.LineItems {
		unitOffer := item.UnitPriceRef * factor
		line := OfferLine{
			LineItem:       item,
			UnitPriceOffer: unitOffer,
			TotalOffer:     unitOffer * item.Quantity,
		}
		reference += item.UnitPriceRef * item.Quantity
		out.TotalOffer += line.TotalOffer
		out.LineItems = append(out.LineItems, line)
	}
	out.ReferenceTotal = reference
	return out, nil
}

// Summary bundles the derived figures shown next to an analysis.
type Summary struct {
	TotalBudgetCLP float64            `json:"totalBudgetClp"`
	NetCLP         float64            `json:"netClp"`
	VATCLP         float64            `json:"vatClp"`
	VATRate        float64            `json:"vatRate"`
	Percentages    map[string]float64 `json:"percentages"`
	Amounts        map[string]float64 `json:"amounts"`
	Categories     []string           `json:"categories"`
}

// Summarize computes the split and breakdown in one pass.
func (a *Aggregator) Summarize(an Analysis) Summary {
	net, vat := a.Split(an)
	pct := a.BreakdownPercentages(an)
	return Summary{
		TotalBudgetCLP: an.TotalBudgetCLP,
		NetCLP:         net,
		VATCLP:         vat,
		VATRate:        a.cfg.VATRate,
		Percentages:    pct,
		Amounts:        a.Breakdown(an),
		Categories:     orderedCategories(pct),
	}
}

// BreakdownPercentages uses the default configuration.
func BreakdownPercentages(an Analysis) map[string]float64 {
	return defaultAggregator.BreakdownPercentages(an)
}

// ProjectOffer uses the default configuration.
func ProjectOffer(an Analysis, marginPercent float64) (OfferProjection, error) {
	return defaultAggregator.ProjectOffer(an, marginPercent)
}

// orderedCategories lists canonical categories first, then any extra keys sorted.
func orderedCategories(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	known := map[string]bool{}
	for _, category := range Categories {
		known[category] = true
		if _, ok := m[category]; ok {
			out = append(out, category)
		}
	}
	var extra []string
	for category := range m {
		if !known[category] {
			extra = append(extra, category)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func copyFloats(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
