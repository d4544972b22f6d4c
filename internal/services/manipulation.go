package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/weboryskills/webory-backend/internal/clients/gcp"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

// Canonical comparison geometry. Both the candidate and the reference
// template are resized to this before the per-pixel diff.
const (
	diffWidth  = 1000
	diffHeight = 700

	// pixelDiffThreshold is the normalized per-pixel channel distance above
	// which a pixel counts as differing.
	pixelDiffThreshold = 0.1

	// diff clustering granularity
	diffCellSize = 50
)

type ManipulationConfig struct {
	// MinDimension is the smallest acceptable width or height in pixels.
	MinDimension int
	// SimilarityCutoff is the template similarity below which the image is
	// flagged as manipulated.
	SimilarityCutoff float64
	// TemplateKey names the reference render in the template bucket. Empty
	// disables the template comparison.
	TemplateKey string
}

// ManipulationService is a secondary signal: it reports an outcome, never an
// error. Anything that prevents analysis degrades the outcome and the
// verification pipeline continues without it.
type ManipulationService interface {
	Detect(ctx context.Context, img []byte) types.ManipulationOutcome
}

type manipulationService struct {
	log    *logger.Logger
	cfg    ManipulationConfig
	bucket gcp.BucketService
}

func NewManipulationService(log *logger.Logger, cfg ManipulationConfig, bucket gcp.BucketService) (ManipulationService, error) {
	if cfg.MinDimension <= 0 {
		cfg.MinDimension = 500
	}
	if cfg.SimilarityCutoff <= 0 || cfg.SimilarityCutoff > 1 {
		cfg.SimilarityCutoff = 0.90
	}
	return &manipulationService{
		log:    log.With("service", "ManipulationService"),
		cfg:    cfg,
		bucket: bucket,
	}, nil
}

func (ms *manipulationService) Detect(ctx context.Context, img []byte) types.ManipulationOutcome {
	decoded, format, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		ms.log.Warn("manipulation check degraded: undecodable image", "error", err)
		return types.ManipulationDegraded(fmt.Sprintf("image could not be decoded: %v", err))
	}

	result := types.ManipulationCheckResult{Issues: []string{}}

	bounds := decoded.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < ms.cfg.MinDimension || h < ms.cfg.MinDimension {
		result.Issues = append(result.Issues,
			fmt.Sprintf("low resolution (%dx%d), likely a screenshot or thumbnail", w, h))
	}

	comparison := ms.compareAgainstTemplate(ctx, decoded)
	if comparison != nil {
		result.Template = comparison
		if comparison.Similarity < ms.cfg.SimilarityCutoff {
			result.IsManipulated = true
			result.Issues = append(result.Issues,
				fmt.Sprintf("image deviates from the reference template (similarity %.2f)", comparison.Similarity))
		}
	}

	switch {
	case comparison != nil:
		result.Confidence = comparison.Similarity * 100
	case len(result.Issues) == 0:
		result.Confidence = 60
	default:
		result.Confidence = 40
	}

	ms.log.Debug("manipulation check finished",
		"format", format,
		"manipulated", result.IsManipulated,
		"issues", len(result.Issues))
	return types.ManipulationOK(result)
}

// compareAgainstTemplate returns nil when no reference template is available.
// Template-side failures are logged and skipped so a storage hiccup cannot
// poison an otherwise analyzable image.
func (ms *manipulationService) compareAgainstTemplate(ctx context.Context, candidate image.Image) *types.TemplateComparison {
	if ms.bucket == nil || strings.TrimSpace(ms.cfg.TemplateKey) == "" {
		return nil
	}

	exists, err := ms.bucket.Exists(ctx, gcp.BucketCategoryTemplate, ms.cfg.TemplateKey)
	if err != nil {
		ms.log.Warn("template existence check failed, skipping comparison", "error", err)
		return nil
	}
	if !exists {
		return nil
	}

	raw, err := ms.bucket.DownloadFile(ctx, gcp.BucketCategoryTemplate, ms.cfg.TemplateKey)
	if err != nil {
		ms.log.Warn("template download failed, skipping comparison", "error", err)
		return nil
	}
	template, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		ms.log.Warn("template undecodable, skipping comparison", "error", err)
		return nil
	}

	a := resizeForDiff(candidate)
	b := resizeForDiff(template)

	diffMask := make([]bool, diffWidth*diffHeight)
	diffPixels := 0
	for y := 0; y < diffHeight; y++ {
		for x := 0; x < diffWidth; x++ {
			if pixelDistance(a.RGBAAt(x, y), b.RGBAAt(x, y)) > pixelDiffThreshold {
				diffMask[y*diffWidth+x] = true
				diffPixels++
			}
		}
	}

	total := diffWidth * diffHeight
	comparison := &types.TemplateComparison{
		Similarity: 1 - float64(diffPixels)/float64(total),
		DiffPixels: diffPixels,
	}
	if comparison.Similarity < ms.cfg.SimilarityCutoff {
		comparison.SuspiciousRegions = clusterDiffRegions(diffMask)
	}
	return comparison
}

func resizeForDiff(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, diffWidth, diffHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// pixelDistance is the mean absolute RGB channel difference, normalized to 0-1.
func pixelDistance(a, b color.RGBA) float64 {
	dr := absDiff(a.R, b.R)
	dg := absDiff(a.G, b.G)
	db := absDiff(a.B, b.B)
	return float64(dr+dg+db) / (3 * 255)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// clusterDiffRegions buckets differing pixels into a coarse grid, keeps cells
// where enough of the cell changed, and merges adjacent cells into bounding
// boxes in canonical coordinates.
func clusterDiffRegions(diffMask []bool) []types.SuspiciousRegion {
	cols := diffWidth / diffCellSize
	rows := diffHeight / diffCellSize

	hot := make([]bool, cols*rows)
	cellThreshold := diffCellSize * diffCellSize / 10
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			count := 0
			for y := cy * diffCellSize; y < (cy+1)*diffCellSize; y++ {
				for x := cx * diffCellSize; x < (cx+1)*diffCellSize; x++ {
					if diffMask[y*diffWidth+x] {
						count++
					}
				}
			}
			if count >= cellThreshold {
				hot[cy*cols+cx] = true
			}
		}
	}

	visited := make([]bool, cols*rows)
	var regions []types.SuspiciousRegion
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			idx := cy*cols + cx
			if !hot[idx] || visited[idx] {
				continue
			}
			minX, minY, maxX, maxY := cx, cy, cx, cy
			stack := []int{idx}
			visited[idx] = true
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				ccx, ccy := cur%cols, cur/cols
				if ccx < minX {
					minX = ccx
				}
				if ccx > maxX {
					maxX = ccx
				}
				if ccy < minY {
					minY = ccy
				}
				if ccy > maxY {
					maxY = ccy
				}
				for _, n := range [][2]int{{ccx - 1, ccy}, {ccx + 1, ccy}, {ccx, ccy - 1}, {ccx, ccy + 1}} {
					nx, ny := n[0], n[1]
					if nx < 0 || ny < 0 || nx >= cols || ny >= rows {
						continue
					}
					nidx := ny*cols + nx
					if hot[nidx] && !visited[nidx] {
						visited[nidx] = true
						stack = append(stack, nidx)
					}
				}
			}
			regions = append(regions, types.SuspiciousRegion{
				X:      minX * diffCellSize,
				Y:      minY * diffCellSize,
				Width:  (maxX - minX + 1) * diffCellSize,
				Height: (maxY - minY + 1) * diffCellSize,
			})
		}
	}
	return regions
}
