package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"budget-analyzer/internal/analyses"
	"budget-analyzer/internal/analyzer"
	"budget-analyzer/internal/budget"
	"budget-analyzer/internal/shared/auth"
	"budget-analyzer/internal/shared/config"
	"budget-analyzer/internal/shared/health"
	"budget-analyzer/internal/shared/server"
	"budget-analyzer/internal/shared/server/middleware"
	"budget-analyzer/internal/shared/storage/db"
	"budget-analyzer/internal/shared/storage/object"
	localstore "budget-analyzer/internal/shared/storage/object/local"
	s3store "budget-analyzer/internal/shared/storage/object/s3"
	"budget-analyzer/internal/shared/telemetry"
	"budget-analyzer/internal/usage"
	"budget-analyzer/internal/validation"
)

const (
	analyzerModeHTTP    = "http"
	analyzerModeOffline = "offline"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           object.Store
	Cache           analyses.Cache
	Analyzer        analyzer.Client
	AnalyzerMode    string
	AnalysesRepo    analyses.Repo
	UsageService    *usage.Service
	AnalysesService *analyses.Service
	AnalysisHandler *analyses.Handler
	UsageHandler    *usage.Handler
	Health          *health.Service

	closers []func() error
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.SetLogger(telemetry.New(cfg.LogLevel))
	ctx := context.Background()

	app := &App{Config: cfg, Health: health.NewService(2 * time.Second)}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.Health.Register("database", sqlDB.PingContext)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	app.Cache = app.buildCache(ctx)

	client, mode, err := buildAnalyzer(cfg)
	if err != nil {
		return nil, err
	}
	app.Analyzer, app.AnalyzerMode = client, mode

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	validator, err := validation.New()
	if err != nil {
		return nil, err
	}

	app.buildServices(validator)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Verifier:        verifier,
		RateLimiter:     middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		AnalysisHandler: app.AnalysisHandler,
		UsageHandler:    app.UsageHandler,
		Health:          app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"database":     sqlDB != nil,
		"object_store": cfg.ObjectStoreType,
		"analyzer":     mode,
	})
	return app, nil
}

// Close releases the database and cache connections.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		if err := a.DB.Close(); err != nil && first == nil {
			first = err
		}
	}
	telemetry.Sync()
	return first
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			log.Printf("bootstrap: migrations failed: %v", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildCache(ctx context.Context) analyses.Cache {
	if a.Config.RedisURL == "" {
		return analyses.NewMemoryCache(a.Config.CacheTTL)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cache, err := analyses.NewRedisCache(pingCtx, a.Config.RedisURL, a.Config.CacheTTL)
	if err != nil {
		log.Printf("bootstrap: redis unavailable, using in-memory cache: %v", err)
		return analyses.NewMemoryCache(a.Config.CacheTTL)
	}
	a.closers = append(a.closers, cache.Close)
	a.Health.Register("cache", func(ctx context.Context) error {
		return cache.Client.Ping(ctx).Err()
	})
	return cache
}

func buildAnalyzer(cfg config.Config) (analyzer.Client, string, error) {
	if cfg.AnalyzerBaseURL == "" {
		if !isDevLike(cfg.Env) {
			return nil, "", fmt.Errorf("ANALYZER_BASE_URL is required")
		}
		log.Printf("bootstrap: ANALYZER_BASE_URL empty; using offline estimator")
		return analyzer.NewEstimator(), analyzerModeOffline, nil
	}
	client, err := analyzer.NewHTTPClient(cfg.AnalyzerBaseURL, cfg.AnalyzerAPIKey, cfg.AnalyzerTimeout)
	if err != nil {
		return nil, "", err
	}
	return client, analyzerModeHTTP, nil
}

func (a *App) buildServices(validator *validation.Validator) {
	limits := usage.Limits{
		MonthlyAnalyses: a.Config.MonthlyQuickLimit,
		PDFAnalyses:     a.Config.MonthlyPDFLimit,
		MaxFileSizeMB:   int(a.Config.MaxUploadMB),
	}

	var analysisRepo analyses.Repo
	if a.DB != nil {
		analysisRepo = &analyses.PGRepo{DB: a.DB}
		a.UsageService = usage.NewPostgresService(usage.NewPGStore(a.DB), limits, a.Config.Env)
	} else {
		analysisRepo = analyses.NewMemoryRepo()
		a.UsageService = usage.NewService(limits, a.Config.Env)
	}

	defaults := budget.DefaultConfig()
	if a.Config.VATRate > 0 {
		defaults.VATRate = a.Config.VATRate
	}

	a.AnalysesRepo = analysisRepo
	a.AnalysesService = &analyses.Service{
		Repo:           analysisRepo,
		Cache:          a.Cache,
		Usage:          a.UsageService,
		Analyzer:       a.Analyzer,
		Store:          a.Store,
		Aggregator:     budget.NewAggregator(defaults),
		MaxUploadBytes: a.Config.MaxUploadMB << 20,
	}
	a.AnalysisHandler = analyses.NewHandler(a.AnalysesService, validator, a.AnalyzerMode)
	a.UsageHandler = usage.NewHandler(a.UsageService)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
