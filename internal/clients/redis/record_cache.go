package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/weboryskills/webory-backend/internal/pkg/ctxutil"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

// RecordCache fronts the read-mostly certificate stores for the direct
// lookup path. Misses and cache failures fall through to the database;
// entries are dropped on issuance.
type RecordCache interface {
	Get(ctx context.Context, certificateID string) (*types.CertificateRecord, bool)
	Set(ctx context.Context, certificateID string, record *types.CertificateRecord)
	Delete(ctx context.Context, certificateID string)
	Close() error
}

type recordCache struct {
	log    *logger.Logger
	client *goredis.Client
	ttl    time.Duration
}

// NewRecordCache returns (nil, nil) when REDIS_ADDR is unset; the lookup
// service treats a nil cache as a pass-through.
func NewRecordCache(log *logger.Logger, ttl time.Duration) (RecordCache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &recordCache{
		log:    log.With("client", "redis.RecordCache"),
		client: client,
		ttl:    ttl,
	}, nil
}

func cacheKey(certificateID string) string {
	return "certlookup:" + strings.ToUpper(strings.TrimSpace(certificateID))
}

func (rc *recordCache) Get(ctx context.Context, certificateID string) (*types.CertificateRecord, bool) {
	ctx = ctxutil.Default(ctx)
	raw, err := rc.client.Get(ctx, cacheKey(certificateID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			rc.log.Warn("cache get failed (ignored)", "error", err)
		}
		return nil, false
	}
	var rec types.CertificateRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		rc.log.Warn("cache entry corrupt, dropping", "certificate_id", certificateID, "error", err)
		rc.Delete(ctx, certificateID)
		return nil, false
	}
	return &rec, true
}

func (rc *recordCache) Set(ctx context.Context, certificateID string, record *types.CertificateRecord) {
	if record == nil {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := rc.client.Set(ctxutil.Default(ctx), cacheKey(certificateID), raw, rc.ttl).Err(); err != nil {
		rc.log.Warn("cache set failed (ignored)", "error", err)
	}
}

func (rc *recordCache) Delete(ctx context.Context, certificateID string) {
	if err := rc.client.Del(ctxutil.Default(ctx), cacheKey(certificateID)).Err(); err != nil {
		rc.log.Warn("cache delete failed (ignored)", "error", err)
	}
}

func (rc *recordCache) Close() error {
	return rc.client.Close()
}
