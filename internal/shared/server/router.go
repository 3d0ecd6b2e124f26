package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"budget-analyzer/internal/analyses"
	"budget-analyzer/internal/shared/auth"
	"budget-analyzer/internal/shared/config"
	"budget-analyzer/internal/shared/health"
	"budget-analyzer/internal/shared/metrics"
	"budget-analyzer/internal/shared/server/middleware"
	"budget-analyzer/internal/shared/server/respond"
	"budget-analyzer/internal/usage"
)

const (
	apiPrefix    = "/api/v1"
	budgetPrefix = apiPrefix + "/budget-analysis"
)

// RouterDeps lists the handlers and middleware dependencies of the router.
type RouterDeps struct {
	Config          config.Config
	Verifier        *auth.Verifier
	RateLimiter     *middleware.RateLimiter
	AnalysisHandler *analyses.Handler
	UsageHandler    *usage.Handler
	Health          *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Verifier, "/metrics", apiPrefix+"/health", budgetPrefix+"/health"),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group(apiPrefix)
	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	budget := api.Group("/budget-analysis")
	if deps.RateLimiter != nil {
		budget.Use(middleware.RateLimit(deps.RateLimiter))
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(budget)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(budget)
		if deps.Config.Env == "dev" {
			deps.UsageHandler.RegisterDevRoutes(api.Group("/dev"))
		}
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
