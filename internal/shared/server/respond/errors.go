package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"budget-analyzer/internal/shared/telemetry"
)

// Error codes returned in the error envelope.
const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeMarginRange  = "margin_out_of_range"
	CodeLimitReached = "limit_reached"
	CodeRateLimited  = "rate_limited"
	CodeTooLarge     = "file_too_large"
	CodeUnsupported  = "unsupported_media_type"
	CodeUpstream     = "upstream_error"
	CodeInternal     = "internal_error"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs and sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if ownerID := c.GetString("ownerId"); ownerID != "" {
		fields["owner_id"] = ownerID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Validation sends a 400 with per-field messages.
func Validation(c *gin.Context, message string, fields map[string]string) {
	var details any
	if len(fields) > 0 {
		details = gin.H{"fields": fields}
	}
	Error(c, http.StatusBadRequest, CodeValidation, message, details)
}

// Internal sends a 500 without leaking err to the client.
func Internal(c *gin.Context, err error) {
	if err != nil {
		telemetry.Error("http.internal", map[string]any{
			"request_id": c.GetString("requestId"),
			"err":        err,
		})
	}
	Error(c, http.StatusInternalServerError, CodeInternal, "Unexpected server error", nil)
}
