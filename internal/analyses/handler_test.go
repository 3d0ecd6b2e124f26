package analyses

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget-analyzer/internal/usage"
	"budget-analyzer/internal/validation"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func setupRouter(t *testing.T, limits usage.Limits) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t, limits)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("ownerId", "guest:g1") })
	NewHandler(f.svc, validation.MustNew(), "stub").RegisterRoutes(r.Group("/api/v1/budget-analysis"))
	return r, f
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestQuickEndpoint(t *testing.T) {
	r, _ := setupRouter(t, usage.Limits{})

	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/quick", map[string]any{
		"type":          "residential",
		"location":      "Santiago",
		"area":          120,
		"analysisDepth": "standard",
		"saveAnalysis":  true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	var detail struct {
		AnalysisID     string  `json:"analysisId"`
		TotalBudgetCLP float64 `json:"totalBudgetClp"`
		SummaryHTML    string  `json:"summaryHtml"`
		Summary        struct {
			VATRate float64 `json:"vatRate"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "a-1", detail.AnalysisID)
	assert.Equal(t, 119_000_000.0, detail.TotalBudgetCLP)
	assert.Equal(t, 0.19, detail.Summary.VATRate)
	assert.NotEmpty(t, detail.SummaryHTML)

	rec, env = doJSON(t, r, http.MethodGet, "/api/v1/budget-analysis/a-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"analysisId":"a-1"`)

	rec, _ = doJSON(t, r, http.MethodGet, "/api/v1/budget-analysis/pdf/a-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuickEndpointValidation(t *testing.T) {
	r, f := setupRouter(t, usage.Limits{})

	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/quick", map[string]any{
		"type":          "residential",
		"area":          -1,
		"analysisDepth": "deep",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)
	fields, ok := env.Error.Details["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "location")
	assert.Contains(t, fields, "area")
	assert.Contains(t, fields, "analysisDepth")
	assert.Empty(t, f.analyzer.quick)
}

func TestQuickEndpointLimitReached(t *testing.T) {
	r, _ := setupRouter(t, usage.Limits{MonthlyAnalyses: 1})
	body := map[string]any{"type": "residential", "location": "Santiago", "area": 80}

	rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/quick", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/quick", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "limit_reached", env.Error.Code)
	assert.Equal(t, "budget_analyses", env.Error.Details["metric"])
}

func TestGetUnknownAnalysis(t *testing.T) {
	r, _ := setupRouter(t, usage.Limits{})
	rec, env := doJSON(t, r, http.MethodGet, "/api/v1/budget-analysis/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestOfferEndpoint(t *testing.T) {
	r, _ := setupRouter(t, usage.Limits{})
	body := map[string]any{"type": "residential", "location": "Santiago", "area": 80}
	rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/quick", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/a-1/offer", map[string]any{"marginPercent": -5})
	require.Equal(t, http.StatusOK, rec.Code)
	var offer struct {
		TotalOffer float64 `json:"totalOffer"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &offer))
	assert.InDelta(t, 19_000.0, offer.TotalOffer, 1e-6)

	rec, env = doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/a-1/offer", map[string]any{"marginPercent": 20})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "margin_out_of_range", env.Error.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/a-1/offer", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	r, _ := setupRouter(t, usage.Limits{})
	body := map[string]any{"type": "residential", "location": "Santiago", "area": 80}
	for i := 0; i < 2; i++ {
		rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/quick", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := doJSON(t, r, http.MethodGet, "/api/v1/budget-analysis/history?limit=1&offset=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page HistoryPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Analyses, 1)
	assert.True(t, page.Pagination.HasMore)
	assert.Equal(t, "quick", page.Analyses[0].AnalysisType)
}

func TestValidateEndpoints(t *testing.T) {
	r, _ := setupRouter(t, usage.Limits{})

	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/validate-config", map[string]any{
		"analysisDepth": "extreme",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res validation.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Valid)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "analysisDepth", res.Errors[0].Field)

	rec, env = doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/validate-project", map[string]any{
		"type": "residential", "location": "Santiago", "area": 50,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Valid)
}

func TestPDFEndpoint(t *testing.T) {
	r, f := setupRouter(t, usage.Limits{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("analysisDepth", "detailed"))
	require.NoError(t, mw.WriteField("projectLocation", "Concepcion"))
	require.NoError(t, mw.WriteField("includeProviders", "true"))
	part, err := mw.CreateFormFile("file", "plano.pdf")
	require.NoError(t, err)
	_, err = part.Write(minimalPDF(1))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/budget-analysis/pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, f.analyzer.docs, 1)
	assert.Equal(t, "detailed", f.analyzer.docs[0].AnalysisDepth)
	assert.True(t, f.analyzer.docs[0].IncludeProviders)
	assert.Equal(t, "Concepcion", f.analyzer.docs[0].ProjectLocation)
}

func TestPDFEndpointRequiresFile(t *testing.T) {
	r, _ := setupRouter(t, usage.Limits{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("analysisDepth", "basic"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/budget-analysis/pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompareEndpoint(t *testing.T) {
	r, _ := setupRouter(t, usage.Limits{})
	body := map[string]any{"type": "residential", "location": "Santiago", "area": 80}
	for i := 0; i < 2; i++ {
		rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/quick", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := doJSON(t, r, http.MethodPost, "/api/v1/budget-analysis/pdf/compare", map[string]any{
		"analysisIds":    []string{"a-1", "a-2"},
		"comparisonType": "labor",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var out Comparison
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out.Entries, 2)
	assert.Equal(t, 40_000_000.0, out.Entries[0].Amount)
	assert.Zero(t, out.Spread)
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := setupRouter(t, usage.Limits{})
	rec, env := doJSON(t, r, http.MethodGet, "/api/v1/budget-analysis/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"analyzer":"stub"`)
}
