package app

import (
	"os"
	"strings"

	"github.com/weboryskills/webory-backend/internal/clients/gcp"
	rediscache "github.com/weboryskills/webory-backend/internal/clients/redis"
	"github.com/weboryskills/webory-backend/internal/clients/sendgrid"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
)

// Clients holds the external providers. Vision and the buckets are required
// for the OCR pipeline; Redis and SendGrid are optional and left nil when
// unconfigured.
type Clients struct {
	Vision   gcp.Vision
	Bucket   gcp.BucketService
	Cache    rediscache.RecordCache
	SendGrid sendgrid.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	vision, err := gcp.NewVision(log)
	if err != nil {
		return Clients{}, err
	}
	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return Clients{}, err
	}

	cache, err := rediscache.NewRecordCache(log, cfg.LookupCacheTTL)
	if err != nil {
		log.Warn("redis cache unavailable, lookups go straight to the database", "error", err)
		cache = nil
	}

	var sg sendgrid.Client
	if strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")) != "" {
		sg, err = sendgrid.NewFromEnv(log)
		if err != nil {
			log.Warn("sendgrid client unavailable, certificate emails disabled", "error", err)
			sg = nil
		}
	}

	return Clients{
		Vision:   vision,
		Bucket:   bucket,
		Cache:    cache,
		SendGrid: sg,
	}, nil
}
