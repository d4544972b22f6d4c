package app

import (
	"time"

	"github.com/weboryskills/webory-backend/internal/pkg/envutil"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
)

type Config struct {
	Port         string
	JWTSecretKey string

	// Verification tunables. Thresholds are configuration so ops can adjust
	// them without a deploy.
	MinExtractionConfidence  float64
	TemplateSimilarityCutoff float64
	MinImageDimension        int
	NameSimilarity           float64
	TitleSimilarity          float64
	TemplateKey              string

	MaxIDAttempts  int
	LookupCacheTTL time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:         envutil.String("PORT", "8080"),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", "defaultsecret"),

		MinExtractionConfidence:  envutil.Float("VERIFY_MIN_EXTRACTION_CONFIDENCE", 30),
		TemplateSimilarityCutoff: envutil.Float("VERIFY_TEMPLATE_SIMILARITY_CUTOFF", 0.90),
		MinImageDimension:        envutil.Int("VERIFY_MIN_IMAGE_DIMENSION", 500),
		NameSimilarity:           envutil.Float("VERIFY_NAME_SIMILARITY", 0.70),
		TitleSimilarity:          envutil.Float("VERIFY_TITLE_SIMILARITY", 0.60),
		TemplateKey:              envutil.String("VERIFY_TEMPLATE_KEY", "certificate_template.png"),

		MaxIDAttempts:  envutil.Int("ISSUE_MAX_ID_ATTEMPTS", 5),
		LookupCacheTTL: time.Duration(envutil.Int("LOOKUP_CACHE_TTL_SECONDS", 300)) * time.Second,
	}
	log.Info("config loaded",
		"port", cfg.Port,
		"min_extraction_confidence", cfg.MinExtractionConfidence,
		"template_similarity_cutoff", cfg.TemplateSimilarityCutoff)
	return cfg
}
