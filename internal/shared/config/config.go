package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	DatabaseURL     string
	RedisURL        string
	CacheTTL        time.Duration
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	JWTSecret       string

	AnalyzerBaseURL string
	AnalyzerAPIKey  string
	AnalyzerTimeout time.Duration

	VATRate           float64
	MonthlyQuickLimit int
	MonthlyPDFLimit   int
	MaxUploadMB       int64
	RateLimitRPS      float64
	RateLimitBurst    int
}

var defaults = map[string]any{
	"PORT":                "8080",
	"ENV":                 "dev",
	"LOG_LEVEL":           "info",
	"CORS_ALLOW_ORIGINS":  "http://localhost:5173",
	"DATABASE_URL":        "",
	"REDIS_URL":           "",
	"CACHE_TTL":           "24h",
	"OBJECT_STORE":        "local",
	"LOCAL_STORE_DIR":     "./data",
	"AWS_REGION":          "",
	"S3_BUCKET":           "",
	"S3_PREFIX":           "",
	"SSE_KMS_KEY_ID":      "",
	"JWT_SECRET":          "",
	"ANALYZER_BASE_URL":   "",
	"ANALYZER_API_KEY":    "",
	"ANALYZER_TIMEOUT":    "120s",
	"VAT_RATE":            0.19,
	"MONTHLY_QUICK_LIMIT": 50,
	"MONTHLY_PDF_LIMIT":   10,
	"MAX_UPLOAD_MB":       25,
	"RATE_LIMIT_RPS":      5.0,
	"RATE_LIMIT_BURST":    10,
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")
	return FromViper(newViper())
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:              v.GetString("PORT"),
		Env:               env,
		LogLevel:          strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		CORSAllowOrigin:   splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		DatabaseURL:       dbURL,
		RedisURL:          strings.TrimSpace(v.GetString("REDIS_URL")),
		CacheTTL:          positiveDuration(v, "CACHE_TTL"),
		ObjectStoreType:   normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:     v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:         v.GetString("AWS_REGION"),
		S3Bucket:          v.GetString("S3_BUCKET"),
		S3Prefix:          v.GetString("S3_PREFIX"),
		SSEKMSKeyID:       v.GetString("SSE_KMS_KEY_ID"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		AnalyzerBaseURL:   strings.TrimRight(strings.TrimSpace(v.GetString("ANALYZER_BASE_URL")), "/"),
		AnalyzerAPIKey:    v.GetString("ANALYZER_API_KEY"),
		AnalyzerTimeout:   positiveDuration(v, "ANALYZER_TIMEOUT"),
		VATRate:           v.GetFloat64("VAT_RATE"),
		MonthlyQuickLimit: v.GetInt("MONTHLY_QUICK_LIMIT"),
		MonthlyPDFLimit:   v.GetInt("MONTHLY_PDF_LIMIT"),
		MaxUploadMB:       v.GetInt64("MAX_UPLOAD_MB"),
		RateLimitRPS:      v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()
	return v
}

// loadEnvFiles loads KEY=VALUE pairs from the given files if they exist.
// Variables already present in the environment are not overwritten.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("loaded env file %s", path)
		}
	}
}

func positiveDuration(v *viper.Viper, key string) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		if def, err := time.ParseDuration(defaults[key].(string)); err == nil {
			return def
		}
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
