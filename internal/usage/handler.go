package usage

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"budget-analyzer/internal/shared/server/middleware"
	"budget-analyzer/internal/shared/server/respond"
)

// Handler exposes usage endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage/stats", h.getStats)
}

// RegisterDevRoutes attaches dev-only usage routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/usage/reset", h.resetUsage)
}

func (h *Handler) getStats(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	stats, err := h.Svc.Stats(c.Request.Context(), ownerID)
	if err != nil {
		h.fail(c, err, "failed to fetch usage")
		return
	}
	respond.Success(c, http.StatusOK, "Usage statistics retrieved", stats)
}

func (h *Handler) resetUsage(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	if err := h.Svc.Reset(c.Request.Context(), ownerID); err != nil {
		h.fail(c, err, "failed to reset usage")
		return
	}
	stats, err := h.Svc.Stats(c.Request.Context(), ownerID)
	if err != nil {
		h.fail(c, err, "failed to fetch usage")
		return
	}
	respond.Success(c, http.StatusOK, "Usage reset", stats)
}

func (h *Handler) fail(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, message, nil)
	}
}
