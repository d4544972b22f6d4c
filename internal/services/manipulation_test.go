package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/weboryskills/webory-backend/internal/clients/gcp"
)

// fakeBucket is an in-memory stand-in for GCS keyed by category/key.
type fakeBucket struct {
	objects map[string][]byte
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (fb *fakeBucket) key(category gcp.BucketCategory, key string) string {
	return string(category) + "/" + key
}

func (fb *fakeBucket) UploadFile(ctx context.Context, category gcp.BucketCategory, key string, file io.Reader) error {
	raw, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	fb.objects[fb.key(category, key)] = raw
	return nil
}

func (fb *fakeBucket) DownloadFile(ctx context.Context, category gcp.BucketCategory, key string) ([]byte, error) {
	raw, ok := fb.objects[fb.key(category, key)]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return raw, nil
}

func (fb *fakeBucket) Exists(ctx context.Context, category gcp.BucketCategory, key string) (bool, error) {
	_, ok := fb.objects[fb.key(category, key)]
	return ok, nil
}

func (fb *fakeBucket) GetPublicURL(category gcp.BucketCategory, key string) string {
	return "https://cdn.example/" + fb.key(category, key)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func newTestDetector(t *testing.T, bucket gcp.BucketService, templateKey string) ManipulationService {
	t.Helper()
	svc, err := NewManipulationService(newTestLogger(t), ManipulationConfig{
		MinDimension:     500,
		SimilarityCutoff: 0.90,
		TemplateKey:      templateKey,
	}, bucket)
	if err != nil {
		t.Fatalf("init manipulation service: %v", err)
	}
	return svc
}

func TestDetectGarbageBytesDegrades(t *testing.T) {
	svc := newTestDetector(t, nil, "")
	outcome := svc.Detect(t.Context(), []byte("definitely not an image"))
	if outcome.OK {
		t.Fatal("undecodable input must degrade, not succeed")
	}
	if outcome.DegradedReason == "" {
		t.Fatal("degraded outcome needs a reason")
	}
}

func TestDetectLowResolutionFlagged(t *testing.T) {
	svc := newTestDetector(t, nil, "")
	small := encodePNG(t, solidImage(200, 140, color.RGBA{R: 240, G: 240, B: 240, A: 255}))

	outcome := svc.Detect(t.Context(), small)
	if !outcome.OK {
		t.Fatalf("small but decodable image should not degrade: %s", outcome.DegradedReason)
	}
	found := false
	for _, issue := range outcome.Result.Issues {
		if strings.Contains(issue, "low resolution") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a low resolution issue, got %v", outcome.Result.Issues)
	}
	if outcome.Result.IsManipulated {
		t.Error("resolution alone must not mark the image manipulated")
	}
}

func TestDetectIdenticalTemplate(t *testing.T) {
	bucket := newFakeBucket()
	base := solidImage(1000, 700, color.RGBA{R: 245, G: 240, B: 230, A: 255})
	templatePNG := encodePNG(t, base)
	if err := bucket.UploadFile(t.Context(), gcp.BucketCategoryTemplate, "tpl.png", bytes.NewReader(templatePNG)); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	svc := newTestDetector(t, bucket, "tpl.png")
	outcome := svc.Detect(t.Context(), templatePNG)
	if !outcome.OK {
		t.Fatalf("detect degraded: %s", outcome.DegradedReason)
	}
	if outcome.Result.Template == nil {
		t.Fatal("template comparison missing")
	}
	if outcome.Result.Template.Similarity < 0.999 {
		t.Errorf("identical images should score ~1.0, got %.4f", outcome.Result.Template.Similarity)
	}
	if outcome.Result.IsManipulated {
		t.Error("identical image must not be flagged")
	}
}

func TestDetectEditedRegion(t *testing.T) {
	bucket := newFakeBucket()
	base := solidImage(1000, 700, color.RGBA{R: 245, G: 240, B: 230, A: 255})
	if err := bucket.UploadFile(t.Context(), gcp.BucketCategoryTemplate, "tpl.png", bytes.NewReader(encodePNG(t, base))); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	// Paint over a large block, the way a pasted-in name patch would look.
	edited := solidImage(1000, 700, color.RGBA{R: 245, G: 240, B: 230, A: 255})
	for y := 100; y < 400; y++ {
		for x := 100; x < 600; x++ {
			edited.SetRGBA(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}

	svc := newTestDetector(t, bucket, "tpl.png")
	outcome := svc.Detect(t.Context(), encodePNG(t, edited))
	if !outcome.OK {
		t.Fatalf("detect degraded: %s", outcome.DegradedReason)
	}
	if !outcome.Result.IsManipulated {
		t.Fatal("heavily edited image should be flagged")
	}
	if outcome.Result.Template == nil || len(outcome.Result.Template.SuspiciousRegions) == 0 {
		t.Fatal("expected at least one suspicious region")
	}
	region := outcome.Result.Template.SuspiciousRegions[0]
	if region.Width == 0 || region.Height == 0 {
		t.Errorf("region should have extent, got %+v", region)
	}
	// The edit covers x 100-600, y 100-400; the clustered box must overlap it.
	if region.X > 600 || region.X+region.Width < 100 || region.Y > 400 || region.Y+region.Height < 100 {
		t.Errorf("region %+v does not overlap the edited area", region)
	}
}

func TestDetectMissingTemplateSkipsComparison(t *testing.T) {
	svc := newTestDetector(t, newFakeBucket(), "tpl.png")
	img := encodePNG(t, solidImage(800, 600, color.RGBA{R: 200, G: 200, B: 200, A: 255}))

	outcome := svc.Detect(t.Context(), img)
	if !outcome.OK {
		t.Fatalf("missing template must not degrade: %s", outcome.DegradedReason)
	}
	if outcome.Result.Template != nil {
		t.Error("no template comparison expected without a stored template")
	}
}
