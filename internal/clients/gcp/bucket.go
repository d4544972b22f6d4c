package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/weboryskills/webory-backend/internal/pkg/ctxutil"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
)

type BucketCategory string

const (
	// BucketCategoryTemplate holds the pristine reference renders used by the
	// manipulation detector's perceptual diff.
	BucketCategoryTemplate BucketCategory = "template"
	// BucketCategoryCertificate holds generated certificate PNGs.
	BucketCategoryCertificate BucketCategory = "certificate"
)

type bucketConfig struct {
	name      string
	cdnDomain string
}

type BucketService interface {
	UploadFile(ctx context.Context, category BucketCategory, key string, file io.Reader) error
	DownloadFile(ctx context.Context, category BucketCategory, key string) ([]byte, error)
	Exists(ctx context.Context, category BucketCategory, key string) (bool, error)
	GetPublicURL(category BucketCategory, key string) string
}

type bucketService struct {
	log               *logger.Logger
	storageClient     *storage.Client
	templateBucket    bucketConfig
	certificateBucket bucketConfig
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("client", "gcp.Bucket")

	templateBucketName := os.Getenv("TEMPLATE_GCS_BUCKET_NAME")
	certificateBucketName := os.Getenv("CERTIFICATE_GCS_BUCKET_NAME")
	if templateBucketName == "" {
		return nil, fmt.Errorf("missing env var TEMPLATE_GCS_BUCKET_NAME")
	}
	if certificateBucketName == "" {
		return nil, fmt.Errorf("missing env var CERTIFICATE_GCS_BUCKET_NAME")
	}

	ctx := context.Background()
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		templateBucket: bucketConfig{
			name:      templateBucketName,
			cdnDomain: os.Getenv("TEMPLATE_CDN_DOMAIN"),
		},
		certificateBucket: bucketConfig{
			name:      certificateBucketName,
			cdnDomain: os.Getenv("CERTIFICATE_CDN_DOMAIN"),
		},
	}, nil
}

func (bs *bucketService) getBucketConfig(category BucketCategory) (bucketConfig, error) {
	switch category {
	case BucketCategoryTemplate:
		return bs.templateBucket, nil
	case BucketCategoryCertificate:
		return bs.certificateBucket, nil
	default:
		return bucketConfig{}, fmt.Errorf("unknown bucket category: %s", category)
	}
}

func (bs *bucketService) UploadFile(ctx context.Context, category BucketCategory, key string, file io.Reader) error {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(cfg.name).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer: %w", err)
	}
	return nil
}

func (bs *bucketService) DownloadFile(ctx context.Context, category BucketCategory, key string) ([]byte, error) {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 2*time.Minute)
	defer cancel()

	rc, err := bs.storageClient.Bucket(cfg.name).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object %s: %w", key, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (bs *bucketService) Exists(ctx context.Context, category BucketCategory, key string) (bool, error) {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 30*time.Second)
	defer cancel()

	_, err = bs.storageClient.Bucket(cfg.name).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (bs *bucketService) GetPublicURL(category BucketCategory, key string) string {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return ""
	}
	if cfg.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", strings.TrimSuffix(cfg.cdnDomain, "/"), key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.name, key)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	default:
		return ""
	}
}
