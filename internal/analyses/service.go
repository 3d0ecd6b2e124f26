package analyses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"budget-analyzer/internal/analyzer"
	"budget-analyzer/internal/budget"
	"budget-analyzer/internal/extract"
	"budget-analyzer/internal/shared/metrics"
	"budget-analyzer/internal/shared/storage/object"
	"budget-analyzer/internal/shared/telemetry"
	"budget-analyzer/internal/shared/util"
	"budget-analyzer/internal/usage"
)

const (
	defaultDepth     = "standard"
	maxProjectFiles  = 10
	historyScanLimit = 200
	planTextLimit    = 64 << 10

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ErrTooLarge marks uploads over the configured size limit.
var ErrTooLarge = errors.New("file too large")

// Service contains business logic for budget analyses.
type Service struct {
	Repo           Repo
	Cache          Cache
	Usage          *usage.Service
	Analyzer       analyzer.Client
	Store          object.Store
	Aggregator     *budget.Aggregator
	MaxUploadBytes int64

	Now   func() time.Time
	NewID func() string
}

// QuickInput is a project description submitted without plans.
type QuickInput struct {
	Type               string  `json:"type"`
	Location           string  `json:"location"`
	Area               float64 `json:"area"`
	EstimatedBudget    float64 `json:"estimatedBudget"`
	Description        string  `json:"description"`
	Name               string  `json:"name"`
	StartDate          string  `json:"startDate"`
	Client             string  `json:"client"`
	AnalysisDepth      string  `json:"analysisDepth"`
	IncludeMarketData  bool    `json:"includeMarketData"`
	IncludeMarketRates bool    `json:"includeMarketRates"`
	IncludeProviders   bool    `json:"includeProviders"`
	SaveAnalysis       *bool   `json:"saveAnalysis"`
}

// Upload is one received plan file.
type Upload struct {
	FileName string
	Data     []byte
}

// DocumentInput carries the plans and options of a pdf or project analysis.
type DocumentInput struct {
	AnalysisDepth    string
	ProjectType      string
	ProjectLocation  string
	IncludeProviders bool
	Files            []Upload
}

// HistoryPage is one page of the owner's analysis history.
type HistoryPage struct {
	Analyses   []budget.HistorySummary `json:"analyses"`
	Total      int                     `json:"total"`
	Pagination Pagination              `json:"pagination"`
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

type analysisRef struct {
	id   string
	kind budget.Kind
}

// SubmitQuick analyzes a project description.
func (s *Service) SubmitQuick(ctx context.Context, ownerID string, in QuickInput) (Detail, error) {
	kind := budget.KindQuick
	if ownerID == "" {
		return Detail{}, invalid("owner", "owner is required")
	}
	if strings.TrimSpace(in.Type) == "" {
		return Detail{}, invalid("type", "project type is required")
	}
	if strings.TrimSpace(in.Location) == "" {
		return Detail{}, invalid("location", "location is required")
	}
	if in.Area <= 0 {
		return Detail{}, invalid("area", "area must be greater than zero")
	}
	if err := s.checkQuota(ctx, ownerID, kind); err != nil {
		return Detail{}, err
	}

	started := s.now()
	payload, err := s.Analyzer.AnalyzeQuick(ctx, analyzer.QuickRequest{
		Type:              strings.TrimSpace(in.Type),
		Location:          strings.TrimSpace(in.Location),
		Area:              in.Area,
		EstimatedBudget:   in.EstimatedBudget,
		Description:       in.Description,
		Name:              in.Name,
		AnalysisDepth:     depthOrDefault(in.AnalysisDepth),
		IncludeMarketData: in.IncludeMarketData || in.IncludeMarketRates,
		IncludeProviders:  in.IncludeProviders,
	})
	if err != nil {
		return Detail{}, s.upstreamFailed(ctx, ownerID, kind, started, err)
	}

	id := s.newID(kind)
	an := budget.Normalize(payload, kind,
		budget.WithProjectEstimate(in.EstimatedBudget),
		budget.WithAnalysisID(id),
	)
	an.AnalysisID = id
	fillProjectInfo(&an.ProjectInfo, budget.ProjectInfo{
		Name:        in.Name,
		Location:    in.Location,
		ProjectType: in.Type,
		AreaM2:      in.Area,
	})

	save := in.SaveAnalysis == nil || *in.SaveAnalysis
	return s.finish(ctx, ownerID, an, payload, nil, save)
}

// SubmitDocuments analyzes one plan (KindPDF) or a set of plans (KindProject).
func (s *Service) SubmitDocuments(ctx context.Context, ownerID string, kind budget.Kind, in DocumentInput) (Detail, error) {
	if ownerID == "" {
		return Detail{}, invalid("owner", "owner is required")
	}
	switch kind {
	case budget.KindPDF:
		if len(in.Files) != 1 {
			return Detail{}, invalid("file", "exactly one PDF file is required")
		}
	case budget.KindProject:
		if len(in.Files) == 0 || len(in.Files) > maxProjectFiles {
			return Detail{}, invalid("files", fmt.Sprintf("between 1 and %d PDF files are required", maxProjectFiles))
		}
	default:
		return Detail{}, invalid("kind", "document analyses must be pdf or project")
	}

	docs := make([]analyzer.Document, 0, len(in.Files))
	names := make([]string, 0, len(in.Files))
	for _, f := range in.Files {
		doc, err := s.inspect(ctx, f)
		if err != nil {
			metrics.IncAnalysisFailed(string(kind), reasonInput)
			return Detail{}, err
		}
		docs = append(docs, doc)
		names = append(names, doc.FileName)
	}
	if err := s.checkQuota(ctx, ownerID, kind); err != nil {
		return Detail{}, err
	}

	id := s.newID(kind)
	keys, err := s.storePlans(ctx, ownerID, id, docs)
	if err != nil {
		metrics.IncAnalysisFailed(string(kind), reasonStorage)
		return Detail{}, err
	}

	started := s.now()
	payload, err := s.Analyzer.AnalyzeDocuments(ctx, kind, analyzer.DocumentRequest{
		AnalysisDepth:    depthOrDefault(in.AnalysisDepth),
		ProjectType:      strings.TrimSpace(in.ProjectType),
		ProjectLocation:  strings.TrimSpace(in.ProjectLocation),
		IncludeProviders: in.IncludeProviders,
		Documents:        docs,
	})
	if err != nil {
		return Detail{}, s.upstreamFailed(ctx, ownerID, kind, started, err)
	}

	an := budget.Normalize(payload, kind, budget.WithAnalysisID(id))
	an.AnalysisID = id
	fillProjectInfo(&an.ProjectInfo, budget.ProjectInfo{
		Location:    in.ProjectLocation,
		ProjectType: in.ProjectType,
		FileName:    strings.Join(names, ", "),
	})
	return s.finish(ctx, ownerID, an, payload, keys, true)
}

// Get resolves an analysis by id: cache, then the store, then the owner's
// history (which also matches numeric row ids).
func (s *Service) Get(ctx context.Context, ownerID, analysisID string) (budget.Analysis, *time.Time, error) {
	analysisID = strings.TrimSpace(analysisID)
	if analysisID == "" {
		return budget.Analysis{}, nil, invalid("id", "analysis id is required")
	}
	if s.Cache != nil {
		an, ok, err := s.Cache.Get(ctx, ownerID, analysisID)
		if err != nil {
			telemetry.Warn("analysis.cache_get_failed", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"analysis_id": analysisID,
				"err":         err,
			})
		} else if ok {
			return an, nil, nil
		}
	}

	rec, err := s.Repo.GetByAnalysisID(ctx, analysisID)
	switch {
	case err == nil && rec.OwnerID == ownerID:
		an := canonicalOf(rec)
		s.remember(ctx, ownerID, an)
		return an, &rec.CreatedAt, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return budget.Analysis{}, nil, err
	}

	records, _, err := s.Repo.ListByOwner(ctx, ownerID, historyScanLimit, 0)
	if err != nil {
		return budget.Analysis{}, nil, err
	}
	history := make([]budget.HistorySummary, 0, len(records))
	for _, r := range records {
		history = append(history, r.HistorySummary())
	}
	an, err := budget.FindAndReconstruct(analysisID, history)
	if err != nil {
		return budget.Analysis{}, nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	for _, r := range records {
		if r.AnalysisID == an.AnalysisID {
			created := r.CreatedAt
			return an, &created, nil
		}
	}
	return an, nil, nil
}

// Detail returns the analysis with its derived figures.
func (s *Service) Detail(ctx context.Context, ownerID, analysisID string) (Detail, error) {
	an, created, err := s.Get(ctx, ownerID, analysisID)
	if err != nil {
		return Detail{}, err
	}
	return s.detail(an, created), nil
}

// History returns the owner's analyses newest first.
func (s *Service) History(ctx context.Context, ownerID string, limit, offset int) (HistoryPage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	records, total, err := s.Repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return HistoryPage{}, err
	}
	page := HistoryPage{
		Analyses: make([]budget.HistorySummary, 0, len(records)),
		Total:    total,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(records) < total,
		},
	}
	for _, r := range records {
		row := r.HistorySummary()
		row.Details = nil
		page.Analyses = append(page.Analyses, row)
	}
	return page, nil
}

// Offer reprices an analysis with a margin in percent.
func (s *Service) Offer(ctx context.Context, ownerID, analysisID string, marginPercent float64) (budget.OfferProjection, error) {
	an, _, err := s.Get(ctx, ownerID, analysisID)
	if err != nil {
		return budget.OfferProjection{}, err
	}
	offer, err := s.aggregator().ProjectOffer(an, marginPercent)
	if err != nil {
		return budget.OfferProjection{}, err
	}
	metrics.IncOfferProjection()
	return offer, nil
}

func (s *Service) finish(ctx context.Context, ownerID string, an budget.Analysis, raw budget.Payload, keys []string, save bool) (Detail, error) {
	ref := analysisRef{id: an.AnalysisID, kind: an.Kind}
	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, ownerID, an.Kind); err != nil {
			if errors.Is(err, usage.ErrLimitReached) {
				metrics.IncAnalysisFailed(string(an.Kind), reasonLimit)
			}
			return Detail{}, err
		}
	}

	created := s.now()
	if save {
		rec := newRecord(ownerID, an, raw, created)
		rec.StorageKeys = keys
		if _, err := s.Repo.Create(ctx, rec); err != nil {
			metrics.IncAnalysisFailed(string(an.Kind), reasonStorage)
			return Detail{}, fmt.Errorf("save analysis: %w", err)
		}
	}
	s.remember(ctx, ownerID, an)

	metrics.IncAnalysisSubmitted(string(an.Kind))
	metrics.ObserveProvenance(an.Provenance)
	fields := logFields(ctx, ownerID, ref)
	fields["total_budget_clp"] = an.TotalBudgetCLP
	fields["saved"] = save
	telemetry.Info("analysis.completed", fields)

	return s.detail(an, &created), nil
}

func (s *Service) remember(ctx context.Context, ownerID string, an budget.Analysis) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Set(ctx, ownerID, an); err != nil {
		fields := logFields(ctx, ownerID, analysisRef{id: an.AnalysisID, kind: an.Kind})
		fields["err"] = err
		telemetry.Warn("analysis.cache_set_failed", fields)
	}
}

func (s *Service) checkQuota(ctx context.Context, ownerID string, kind budget.Kind) error {
	if s.Usage == nil {
		return nil
	}
	if err := s.Usage.Check(ctx, ownerID, kind); err != nil {
		if errors.Is(err, usage.ErrLimitReached) {
			metrics.IncAnalysisFailed(string(kind), reasonLimit)
		}
		return err
	}
	return nil
}

func (s *Service) upstreamFailed(ctx context.Context, ownerID string, kind budget.Kind, started time.Time, err error) error {
	reason := reasonInternal
	if errors.Is(err, analyzer.ErrUpstream) || errors.Is(err, context.DeadlineExceeded) {
		reason = reasonUpstream
	}
	metrics.IncAnalysisFailed(string(kind), reason)
	fields := logFields(ctx, ownerID, analysisRef{kind: kind})
	fields["err"] = err
	fields["duration_ms"] = s.now().Sub(started).Milliseconds()
	telemetry.Error("analysis.upstream_failed", fields)
	return fmt.Errorf("%s analysis: %w", kind, err)
}

func (s *Service) inspect(ctx context.Context, f Upload) (analyzer.Document, error) {
	name, err := util.SanitizeFileName(f.FileName)
	if err != nil {
		return analyzer.Document{}, invalid("file", err.Error())
	}
	if s.MaxUploadBytes > 0 && int64(len(f.Data)) > s.MaxUploadBytes {
		return analyzer.Document{}, fmt.Errorf("%w: %s exceeds %d MB", ErrTooLarge, name, s.MaxUploadBytes>>20)
	}
	doc, err := extract.Inspect(ctx, f.Data, planTextLimit)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupported) {
			return analyzer.Document{}, fmt.Errorf("%s: %w", name, err)
		}
		return analyzer.Document{}, invalid("file", fmt.Sprintf("%s: %v", name, err))
	}
	return analyzer.Document{
		FileName:    name,
		ContentType: doc.ContentType,
		Pages:       doc.Pages,
		Text:        doc.Text,
		Data:        f.Data,
	}, nil
}

func (s *Service) storePlans(ctx context.Context, ownerID, analysisID string, docs []analyzer.Document) ([]string, error) {
	if s.Store == nil {
		return nil, nil
	}
	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		key, err := util.PlanKey(ownerID, analysisID, doc.FileName)
		if err != nil {
			return nil, invalid("file", err.Error())
		}
		obj, err := s.Store.Put(ctx, key, doc.ContentType, bytes.NewReader(doc.Data))
		if err != nil {
			return nil, fmt.Errorf("store plan %s: %w", doc.FileName, err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (s *Service) newID(kind budget.Kind) string {
	id := uuid.NewString()
	if s.NewID != nil {
		id = s.NewID()
	}
	if kind == budget.KindProject && !strings.HasPrefix(id, budget.ProjectIDPrefix) {
		id = budget.ProjectIDPrefix + id
	}
	return id
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) aggregator() *budget.Aggregator {
	if s.Aggregator != nil {
		return s.Aggregator
	}
	return budget.NewAggregator(budget.DefaultConfig())
}

func canonicalOf(rec Record) budget.Analysis {
	if rec.Canonical != nil {
		return *rec.Canonical
	}
	return budget.Reconstruct(rec.HistorySummary())
}

// fillProjectInfo copies request-side project facts the upstream left empty.
func fillProjectInfo(dst *budget.ProjectInfo, src budget.ProjectInfo) {
	if dst.Name == "" {
		dst.Name = strings.TrimSpace(src.Name)
	}
	if dst.Location == "" {
		dst.Location = strings.TrimSpace(src.Location)
	}
	if dst.ProjectType == "" {
		dst.ProjectType = strings.TrimSpace(src.ProjectType)
	}
	if dst.AreaM2 <= 0 {
		dst.AreaM2 = src.AreaM2
	}
	if dst.FileName == "" {
		dst.FileName = src.FileName
	}
}

func depthOrDefault(depth string) string {
	depth = strings.ToLower(strings.TrimSpace(depth))
	if depth == "" {
		return defaultDepth
	}
	return depth
}
