package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"budget-analyzer/internal/budget"
	"budget-analyzer/internal/shared/metrics"
	"budget-analyzer/internal/shared/telemetry"
)

const maxResponseBytes = 16 << 20

// HTTPClient talks to the analyzer over HTTP.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient builds a client for baseURL. timeout <= 0 means 120s.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("ANALYZER_BASE_URL is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) AnalyzeQuick(ctx context.Context, req QuickRequest) (budget.Payload, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, budget.KindQuick, "/budget-analysis/quick", "application/json", bytes.NewReader(body))
}

func (c *HTTPClient) AnalyzeDocuments(ctx context.Context, kind budget.Kind, req DocumentRequest) (budget.Payload, error) {
	if len(req.Documents) == 0 {
		return nil, errors.New("at least one document is required")
	}
	path, field := "/budget-analysis/pdf", "file"
	if kind == budget.KindProject {
		path, field = "/budget-analysis/project", "files"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, doc := range req.Documents {
		if err := writeFile(mw, field, doc); err != nil {
			return nil, err
		}
	}
	fields := map[string]string{
		"analysisDepth":    req.AnalysisDepth,
		"projectType":      req.ProjectType,
		"projectLocation":  req.ProjectLocation,
		"includeProviders": strconv.FormatBool(req.IncludeProviders),
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := mw.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.post(ctx, kind, path, mw.FormDataContentType(), &buf)
}

func writeFile(mw *multipart.Writer, field string, doc Document) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, doc.FileName))
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(doc.Data)
	return err
}

func (c *HTTPClient) post(ctx context.Context, kind budget.Kind, path, contentType string, body io.Reader) (budget.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveUpstreamDuration(string(kind), time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("%w: request timeout: %v", ErrUpstream, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	tooLarge := len(data) > maxResponseBytes
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		telemetry.Warn("analyzer.non_2xx", map[string]any{
			"status": resp.StatusCode,
			"path":   path,
			"kind":   string(kind),
		})
		return nil, &UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(data, resp.Status)}
	}

	// a cut body could still be repaired into valid JSON, so never decode it
	if tooLarge {
		telemetry.Warn("analyzer.response_too_large", map[string]any{
			"path":  path,
			"kind":  string(kind),
			"limit": maxResponseBytes,
		})
		return nil, &UpstreamError{Message: "response too large"}
	}
	payload, err := DecodePayload(data)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func upstreamMessage(body []byte, fallback string) string {
	p, err := decodeStrict(body)
	if err != nil {
		return fallback
	}
	if msg := envelopeMessage(p); msg != "" {
		return msg
	}
	return fallback
}
