package respond

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SuccessResponse is the envelope for successful API responses.
type SuccessResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

var now = time.Now

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created writes a 201 Created JSON response.
func Created(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}

// Success wraps data in the success envelope.
func Success(c *gin.Context, status int, message string, data any) {
	JSON(c, status, SuccessResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: now().UTC(),
	})
}
