package analyses

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"budget-analyzer/internal/analyzer"
	"budget-analyzer/internal/budget"
	"budget-analyzer/internal/shared/storage/object/local"
	"budget-analyzer/internal/usage"
)

type stubAnalyzer struct {
	mu      sync.Mutex
	payload budget.Payload
	err     error
	quick   []analyzer.QuickRequest
	docs    []analyzer.DocumentRequest
	kinds   []budget.Kind
}

func (s *stubAnalyzer) AnalyzeQuick(ctx context.Context, req analyzer.QuickRequest) (budget.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quick = append(s.quick, req)
	return s.payload, s.err
}

func (s *stubAnalyzer) AnalyzeDocuments(ctx context.Context, kind budget.Kind, req analyzer.DocumentRequest) (budget.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
	s.docs = append(s.docs, req)
	return s.payload, s.err
}

func samplePayload() budget.Payload {
	return budget.Payload{
		"success": true,
		"data": map[string]any{
			"analysis": map[string]any{
				"resumen_ejecutivo":    "Proyecto **viable** en plazo.",
				"presupuesto_estimado": map[string]any{"total_clp": 119_000_000.0},
				"desglose_costos": map[string]any{
					"materiales":       50_000_000.0,
					"mano_obra":        40_000_000.0,
					"equipos":          20_000_000.0,
					"gastos_generales": 9_000_000.0,
					"total":            119_000_000.0,
				},
				"items_presupuesto": []any{
					map[string]any{"codigo": "1.1", "descripcion": "Excavacion", "unidad": "m3", "cantidad": 10.0, "precio_unitario": 1000.0},
					map[string]any{"codigo": "1.2", "descripcion": "Hormigon", "unidad": "m3", "cantidad": 5.0, "precio_unitario": 2000.0},
				},
				"confidence_score": 72.0,
			},
		},
	}
}

type fixture struct {
	svc      *Service
	repo     *MemoryRepo
	analyzer *stubAnalyzer
	storeDir string
}

func newFixture(t *testing.T, limits usage.Limits) *fixture {
	t.Helper()
	stub := &stubAnalyzer{payload: samplePayload()}
	repo := NewMemoryRepo()
	dir := t.TempDir()
	var seq int
	var mu sync.Mutex
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := &Service{
		Repo:           repo,
		Cache:          NewMemoryCache(time.Hour),
		Usage:          usage.NewService(limits, "test"),
		Analyzer:       stub,
		Store:          local.New(dir),
		Aggregator:     budget.NewAggregator(budget.DefaultConfig()),
		MaxUploadBytes: 1 << 20,
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("a-%d", seq)
		},
	}
	var clock int
	svc.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock++
		return base.Add(time.Duration(clock) * time.Minute)
	}
	return &fixture{svc: svc, repo: repo, analyzer: stub, storeDir: dir}
}

func quickInput() QuickInput {
	return QuickInput{
		Type:          "residential",
		Location:      "Santiago",
		Area:          120,
		Name:          "Casa Los Robles",
		AnalysisDepth: "standard",
	}
}

// minimalPDF builds a well-formed PDF with the given number of empty pages.
func minimalPDF(pages int) []byte {
	var b strings.Builder
	var offsets []int
	write := func(obj string) {
		offsets = append(offsets, b.Len())
		b.WriteString(obj)
	}

	b.WriteString("%PDF-1.4\n")
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	write("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	write(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		write(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n", i+3))
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(offsets)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return []byte(b.String())
}
