package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"budget-analyzer/internal/analyzer"
	"budget-analyzer/internal/budget"
	"budget-analyzer/internal/extract"
	"budget-analyzer/internal/shared/server/middleware"
	"budget-analyzer/internal/shared/server/respond"
	"budget-analyzer/internal/usage"
	"budget-analyzer/internal/validation"
)

// multipart overhead allowed on top of the file size limit
const formOverhead = 1 << 20

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc          *Service
	Validator    *validation.Validator
	AnalyzerMode string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, validator *validation.Validator, analyzerMode string) *Handler {
	return &Handler{Svc: svc, Validator: validator, AnalyzerMode: analyzerMode}
}

// RegisterRoutes attaches budget analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
	rg.POST("/quick", h.submitQuick)
	rg.POST("/pdf", h.submitPDF)
	rg.POST("/project", h.submitProject)
	rg.POST("/pdf/compare", h.compare)
	rg.GET("/pdf/:id", h.getAnalysis)
	rg.POST("/validate-project", h.validateProject)
	rg.POST("/validate-config", h.validateConfig)
	rg.GET("/history", h.history)
	rg.GET("/:id", h.getAnalysis)
	rg.POST("/:id/offer", h.offer)
}

func (h *Handler) health(c *gin.Context) {
	respond.Success(c, http.StatusOK, "Budget analysis service is healthy", gin.H{
		"status":   "ok",
		"analyzer": h.AnalyzerMode,
	})
}

func (h *Handler) submitQuick(c *gin.Context) {
	var doc map[string]any
	if err := c.ShouldBindJSON(&doc); err != nil {
		respond.Validation(c, "invalid json body", nil)
		return
	}
	res, err := h.Validator.Project(doc)
	if err != nil {
		respond.Internal(c, err)
		return
	}
	if !res.Valid {
		respond.Validation(c, "invalid project data", res.Fields())
		return
	}
	var in QuickInput
	if err := remarshal(doc, &in); err != nil {
		respond.Validation(c, "invalid project data", nil)
		return
	}

	detail, err := h.Svc.SubmitQuick(h.ctx(c), middleware.OwnerIDFromContext(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.tag(c, detail.Analysis)
	respond.Success(c, http.StatusOK, "Budget analysis completed", detail)
}

func (h *Handler) submitPDF(c *gin.Context) {
	h.limitBody(c, 1)
	fh, err := c.FormFile("file")
	if err != nil {
		h.formError(c, err, "file")
		return
	}
	upload, err := readUpload(fh)
	if err != nil {
		respond.Internal(c, err)
		return
	}
	in := documentInput(c)
	in.Files = []Upload{upload}

	detail, err := h.Svc.SubmitDocuments(h.ctx(c), middleware.OwnerIDFromContext(c), budget.KindPDF, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.tag(c, detail.Analysis)
	respond.Success(c, http.StatusOK, "PDF analysis completed", detail)
}

func (h *Handler) submitProject(c *gin.Context) {
	h.limitBody(c, maxProjectFiles)
	form, err := c.MultipartForm()
	if err != nil {
		h.formError(c, err, "files")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		respond.Validation(c, "invalid request", map[string]string{"files": "at least one PDF file is required"})
		return
	}
	in := documentInput(c)
	for _, fh := range files {
		upload, err := readUpload(fh)
		if err != nil {
			respond.Internal(c, err)
			return
		}
		in.Files = append(in.Files, upload)
	}

	detail, err := h.Svc.SubmitDocuments(h.ctx(c), middleware.OwnerIDFromContext(c), budget.KindProject, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.tag(c, detail.Analysis)
	respond.Success(c, http.StatusOK, "Project analysis completed", detail)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	detail, err := h.Svc.Detail(h.ctx(c), middleware.OwnerIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.tag(c, detail.Analysis)
	respond.Success(c, http.StatusOK, "Analysis retrieved", detail)
}

type offerRequest struct {
	MarginPercent *float64 `json:"marginPercent"`
}

func (h *Handler) offer(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MarginPercent == nil {
		respond.Validation(c, "invalid request", map[string]string{"marginPercent": "marginPercent is required"})
		return
	}
	offer, err := h.Svc.Offer(h.ctx(c), middleware.OwnerIDFromContext(c), c.Param("id"), *req.MarginPercent)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.Success(c, http.StatusOK, "Offer projected", offer)
}

func (h *Handler) history(c *gin.Context) {
	limit := queryInt(c, "limit", defaultHistoryLimit)
	offset := queryInt(c, "offset", 0)
	page, err := h.Svc.History(h.ctx(c), middleware.OwnerIDFromContext(c), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.Success(c, http.StatusOK, "History retrieved", page)
}

type compareRequest struct {
	AnalysisIDs    []string `json:"analysisIds"`
	ComparisonType string   `json:"comparisonType"`
}

func (h *Handler) compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, "invalid json body", nil)
		return
	}
	out, err := h.Svc.Compare(h.ctx(c), middleware.OwnerIDFromContext(c), req.AnalysisIDs, req.ComparisonType)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.Success(c, http.StatusOK, "Comparison completed", out)
}

func (h *Handler) validateProject(c *gin.Context) {
	h.validate(c, h.Validator.Project, "Project data validated")
}

func (h *Handler) validateConfig(c *gin.Context) {
	h.validate(c, h.Validator.Config, "Analysis config validated")
}

func (h *Handler) validate(c *gin.Context, check func(any) (validation.Result, error), message string) {
	var doc map[string]any
	if err := c.ShouldBindJSON(&doc); err != nil {
		respond.Validation(c, "invalid json body", nil)
		return
	}
	res, err := check(doc)
	if err != nil {
		respond.Internal(c, err)
		return
	}
	respond.Success(c, http.StatusOK, message, res)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var inputErr *InputError
	var limitErr *usage.LimitError
	var upstreamErr *analyzer.UpstreamError
	switch {
	case errors.As(err, &inputErr):
		respond.Validation(c, inputErr.Message, map[string]string{inputErr.Field: inputErr.Message})
	case errors.Is(err, ErrNotFound), errors.Is(err, budget.ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "analysis not found", nil)
	case errors.Is(err, budget.ErrOutOfRange):
		respond.Error(c, http.StatusUnprocessableEntity, respond.CodeMarginRange, err.Error(), nil)
	case errors.As(err, &limitErr):
		respond.Error(c, http.StatusTooManyRequests, respond.CodeLimitReached,
			"You've reached your monthly analysis limit.", gin.H{
				"metric": limitErr.Metric,
				"used":   limitErr.Used,
				"limit":  limitErr.Limit,
			})
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeTooLarge, err.Error(), nil)
	case errors.Is(err, extract.ErrUnsupported):
		respond.Error(c, http.StatusUnsupportedMediaType, respond.CodeUnsupported, "only PDF files are supported", nil)
	case errors.As(err, &upstreamErr) && upstreamErr.Message != "":
		respond.Error(c, http.StatusBadGateway, respond.CodeUpstream, upstreamErr.Message, nil)
	case errors.Is(err, analyzer.ErrUpstream):
		respond.Error(c, http.StatusBadGateway, respond.CodeUpstream, "budget analyzer unavailable", nil)
	default:
		respond.Internal(c, err)
	}
}

func (h *Handler) formError(c *gin.Context, err error, field string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeTooLarge,
			fmt.Sprintf("upload exceeds %d MB", h.Svc.MaxUploadBytes>>20), nil)
		return
	}
	respond.Validation(c, "invalid request", map[string]string{field: "a PDF file is required"})
}

func (h *Handler) limitBody(c *gin.Context, files int) {
	if h.Svc.MaxUploadBytes <= 0 {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(files)*h.Svc.MaxUploadBytes+formOverhead)
}

func (h *Handler) ctx(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), c.GetString("requestId"))
}

// tag exposes the analysis to the request logger.
func (h *Handler) tag(c *gin.Context, an budget.Analysis) {
	c.Set("analysisId", an.AnalysisID)
	c.Set("analysisKind", string(an.Kind))
}

func documentInput(c *gin.Context) DocumentInput {
	include, _ := strconv.ParseBool(c.PostForm("includeProviders"))
	return DocumentInput{
		AnalysisDepth:    c.PostForm("analysisDepth"),
		ProjectType:      c.PostForm("projectType"),
		ProjectLocation:  c.PostForm("projectLocation"),
		IncludeProviders: include,
	}
}

func readUpload(fh *multipart.FileHeader) (Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, fmt.Errorf("read upload: %w", err)
	}
	return Upload{FileName: fh.Filename, Data: data}, nil
}

func remarshal(src any, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
