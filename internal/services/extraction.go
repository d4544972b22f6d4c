package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/weboryskills/webory-backend/internal/clients/gcp"
	apperrors "github.com/weboryskills/webory-backend/internal/pkg/errors"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

// VisionProvider is the OCR boundary the extraction service depends on.
type VisionProvider interface {
	ExtractText(ctx context.Context, img []byte) (text string, confidence float64, err error)
}

// ExtractionService turns a certificate image into a best-effort structured
// guess. Missing fields are empty strings with a lowered confidence; only a
// provider failure is a Go error.
type ExtractionService interface {
	ExtractFromImage(ctx context.Context, img []byte) (*types.ExtractionResult, error)
	ExtractFromText(text string, providerConfidence float64) *types.ExtractionResult
}

type extractionService struct {
	log      *logger.Logger
	provider VisionProvider
}

func NewExtractionService(log *logger.Logger, provider VisionProvider) (ExtractionService, error) {
	if provider == nil {
		return nil, fmt.Errorf("vision provider required")
	}
	return &extractionService{
		log:      log.With("service", "ExtractionService"),
		provider: provider,
	}, nil
}

// gcpVisionProvider adapts the GCP client to the service-level boundary.
type gcpVisionProvider struct {
	vision gcp.Vision
}

func NewGCPVisionProvider(vision gcp.Vision) VisionProvider {
	return &gcpVisionProvider{vision: vision}
}

func (p *gcpVisionProvider) ExtractText(ctx context.Context, img []byte) (string, float64, error) {
	res, err := p.vision.OCRImageBytes(ctx, img)
	if err != nil {
		return "", 0, fmt.Errorf("%v: %w", err, apperrors.ErrProviderUnavailable)
	}
	return res.Text, res.Confidence, nil
}

func (es *extractionService) ExtractFromImage(ctx context.Context, img []byte) (*types.ExtractionResult, error) {
	text, providerConf, err := es.provider.ExtractText(ctx, img)
	if err != nil {
		return nil, err
	}
	result := es.ExtractFromText(text, providerConf)
	es.log.Debug("extraction finished",
		"certificate_id", result.CertificateID,
		"has_name", result.StudentName != "",
		"confidence", result.Confidence)
	return result, nil
}

func (es *extractionService) ExtractFromText(text string, providerConfidence float64) *types.ExtractionResult {
	result := &types.ExtractionResult{RawText: text}
	if strings.TrimSpace(text) == "" {
		return result
	}

	result.CertificateID = extractCertificateID(text)
	result.StudentName = extractStudentName(text)
	result.Title = extractTitle(text)
	result.Date = extractDate(text)
	result.Confidence = blendConfidence(providerConfidence, result)
	return result
}

// ---------- field extractors, tried in order of reliability ----------

var (
	// Tier 1: an explicit label next to the value.
	idLabeledRe = regexp.MustCompile(`(?i)certificate\s*(?:id|no\.?|number)?\s*[:#]\s*([A-Z0-9][A-Z0-9-]{5,})`)
	// Tier 2: a standalone cluster of dashed uppercase blocks, the issued shape.
	idClusterRe = regexp.MustCompile(`\b[A-Z]{2,}(?:-[A-Z0-9]+){2,}\b`)
	// Tier 3: anything that looks remotely like a dashed identifier.
	idBroadRe = regexp.MustCompile(`\b[A-Z0-9]{3,}-[A-Z0-9-]{4,}\b`)
)

func extractCertificateID(text string) string {
	if m := idLabeledRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(strings.Trim(m[1], "-"))
	}
	if m := idClusterRe.FindString(text); m != "" {
		return strings.ToUpper(m)
	}
	if m := idBroadRe.FindString(strings.ToUpper(text)); m != "" {
		return strings.Trim(m, "-")
	}
	return ""
}

var nameLabels = []string{
	"this is to certify that",
	"is to certify that",
	"certify that",
	"proudly presented to",
	"presented to",
	"awarded to",
	"is awarded to",
}

func extractStudentName(text string) string {
	lines := splitLines(text)
	lowered := make([]string, len(lines))
	for i, ln := range lines {
		lowered[i] = strings.ToLower(ln)
	}

	for i, ln := range lowered {
		for _, label := range nameLabels {
			idx := strings.Index(ln, label)
			if idx < 0 {
				continue
			}
			// Value may trail the label on the same line, often followed by
			// the next clause ("... presented to Jane Roe for ...").
			rest := strings.TrimSpace(lines[i][idx+len(label):])
			rest = strings.Trim(rest, ":,.")
			if cand := leadingTitleCasedWords(rest); isPlausibleName(cand) {
				return cand
			}
			// Otherwise take the next non-empty line.
			if i+1 < len(lines) {
				next := strings.Trim(strings.TrimSpace(lines[i+1]), ":,.")
				if isPlausibleName(next) {
					return next
				}
			}
		}
	}

	// Fallback: the longest line that reads like a personal name.
	best := ""
	for _, ln := range lines {
		candidate := strings.TrimSpace(ln)
		if isPlausibleName(candidate) && isTitleCased(candidate) && len(candidate) > len(best) {
			best = candidate
		}
	}
	return best
}

var titleLabels = []string{
	"for the successful completion of",
	"for the completion of",
	"has successfully completed",
	"successfully completed",
	"for completing",
	"completion of",
}

func extractTitle(text string) string {
	lines := splitLines(text)
	for i, ln := range lines {
		low := strings.ToLower(ln)
		for _, label := range titleLabels {
			idx := strings.Index(low, label)
			if idx < 0 {
				continue
			}
			rest := strings.Trim(strings.TrimSpace(ln[idx+len(label):]), ":,.\"")
			if len(rest) >= 3 {
				return rest
			}
			if i+1 < len(lines) {
				next := strings.Trim(strings.TrimSpace(lines[i+1]), ":,.\"")
				if len(next) >= 3 {
					return next
				}
			}
		}
	}
	return ""
}

var (
	dateNumericRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dateSlashRe     = regexp.MustCompile(`\b(\d{1,2})[/.](\d{1,2})[/.](\d{2,4})\b`)
	dateMonthNameRe = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dateDayFirstRe  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(January|February|March|April|May|June|July|August|September|October|November|December),?\s+(\d{4})\b`)
)

// extractDate normalizes to YYYY-MM-DD when a known format parses; otherwise
// the raw match is kept as-is.
func extractDate(text string) string {
	if m := dateNumericRe.FindString(text); m != "" {
		if _, err := time.Parse("2006-01-02", m); err == nil {
			return m
		}
	}
	if m := dateMonthNameRe.FindStringSubmatch(text); m != nil {
		raw := fmt.Sprintf("%s %s %s", m[1], m[2], m[3])
		if t, err := time.Parse("January 2 2006", normalizeMonth(raw)); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if m := dateDayFirstRe.FindStringSubmatch(text); m != nil {
		raw := fmt.Sprintf("%s %s %s", m[2], m[1], m[3])
		if t, err := time.Parse("January 2 2006", normalizeMonth(raw)); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if m := dateSlashRe.FindStringSubmatch(text); m != nil {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		for _, layout := range []string{"2/1/2006", "1/2/2006"} {
			if t, err := time.Parse(layout, fmt.Sprintf("%s/%s/%s", m[1], m[2], year)); err == nil {
				return t.Format("2006-01-02")
			}
		}
		return m[0]
	}
	return ""
}

func normalizeMonth(s string) string {
	fields := strings.Fields(s)
	if len(fields) > 0 {
		low := strings.ToLower(fields[0])
		fields[0] = strings.ToUpper(low[:1]) + low[1:]
	}
	return strings.Join(fields, " ")
}

// ---------- confidence ----------

// blendConfidence mixes provider confidence with field presence. A missing
// certificate id costs the most since nothing downstream works without it.
func blendConfidence(providerConfidence float64, r *types.ExtractionResult) float64 {
	if providerConfidence < 0 {
		providerConfidence = 0
	}
	if providerConfidence > 1 {
		providerConfidence = 1
	}

	fieldScore := 0.0
	if r.CertificateID != "" {
		fieldScore += 40
	}
	if r.StudentName != "" {
		fieldScore += 30
	}
	if r.Title != "" {
		fieldScore += 20
	}
	if r.Date != "" {
		fieldScore += 10
	}

	conf := 0.5*providerConfidence*100 + 0.5*fieldScore
	if conf > 100 {
		conf = 100
	}
	return conf
}

// ---------- text helpers ----------

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

var nameCharsRe = regexp.MustCompile(`^[\p{L}][\p{L} .'-]{1,59}$`)

func isPlausibleName(s string) bool {
	if s == "" || !nameCharsRe.MatchString(s) {
		return false
	}
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 5 {
		return false
	}
	for _, w := range words {
		low := strings.ToLower(w)
		if low == "certificate" || low == "completion" || low == "internship" || low == "course" {
			return false
		}
	}
	return true
}

// leadingTitleCasedWords keeps the run of capitalized words at the start of
// the string and drops everything from the first lowercase word on.
func leadingTitleCasedWords(s string) string {
	var kept []string
	for _, w := range strings.Fields(s) {
		r := []rune(w)[0]
		if !unicode.IsUpper(r) {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func isTitleCased(s string) bool {
	for _, w := range strings.Fields(s) {
		r := []rune(w)[0]
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
