package services

import (
	"fmt"
	"strings"

	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

type VerdictConfig struct {
	// MinExtractionConfidence is the floor below which extraction counts as a
	// low-confidence read.
	MinExtractionConfidence float64
	// NameSimilarity and TitleSimilarity are the normalized-Levenshtein
	// thresholds for the fuzzy field comparison fallback.
	NameSimilarity  float64
	TitleSimilarity float64
}

// VerdictService merges extraction, lookup and manipulation signals into a
// single outcome. Rules are evaluated in order; the first match wins.
type VerdictService interface {
	Synthesize(extraction *types.ExtractionResult, record *types.CertificateRecord, manipulation types.ManipulationOutcome) *types.VerificationVerdict
}

type verdictService struct {
	log *logger.Logger
	cfg VerdictConfig
}

func NewVerdictService(log *logger.Logger, cfg VerdictConfig) (VerdictService, error) {
	if cfg.MinExtractionConfidence <= 0 {
		cfg.MinExtractionConfidence = 30
	}
	if cfg.NameSimilarity <= 0 {
		cfg.NameSimilarity = 0.70
	}
	if cfg.TitleSimilarity <= 0 {
		cfg.TitleSimilarity = 0.60
	}
	return &verdictService{log: log.With("service", "VerdictService"), cfg: cfg}, nil
}

func (vs *verdictService) Synthesize(extraction *types.ExtractionResult, record *types.CertificateRecord, manipulation types.ManipulationOutcome) *types.VerificationVerdict {
	verdict := &types.VerificationVerdict{
		Extraction:   extraction,
		Record:       record,
		Manipulation: &manipulation,
	}
	if record != nil {
		verdict.CertificateType = record.Category
	}

	// Rule 1: nothing usable came out of the image.
	if extraction == nil || (extraction.CertificateID == "" && extraction.Confidence < vs.cfg.MinExtractionConfidence) {
		verdict.Verdict = types.VerdictUnknown
		verdict.Message = "Could not read this certificate reliably. Please verify using the certificate ID or the QR code instead."
		return verdict
	}

	// Rule 2: an ID was read but no store knows it.
	if record == nil {
		if extraction.CertificateID == "" {
			verdict.Verdict = types.VerdictUnknown
			verdict.Message = "No certificate ID could be found on the image. Please verify using the certificate ID or the QR code instead."
			return verdict
		}
		verdict.Verdict = types.VerdictInvalid
		verdict.Message = fmt.Sprintf("Certificate %s does not match any issued certificate.", extraction.CertificateID)
		return verdict
	}

	// Rule 3: the record exists, compare the visible fields against it.
	validation := vs.validateFields(extraction, record)
	verdict.Validation = validation
	if !validation.IsValid {
		verdict.Verdict = types.VerdictSuspicious
		verdict.Message = fmt.Sprintf("Certificate %s exists, but the following fields do not match the issued record: %s.",
			record.CertificateID, strings.Join(validation.MismatchedFields, ", "))
		return verdict
	}

	// Rule 5 (checked before declaring authentic): metadata matches but the
	// image itself looks tampered with. A degraded check never triggers this.
	if manipulation.OK && manipulation.Result.IsManipulated {
		verdict.Verdict = types.VerdictSuspicious
		verdict.Message = fmt.Sprintf("Certificate %s matches the issued record, but the image shows signs of possible photo manipulation.",
			record.CertificateID)
		return verdict
	}

	// Rule 4: everything lines up.
	verdict.Verdict = types.VerdictAuthentic
	verdict.Message = fmt.Sprintf("Certificate %s is authentic and was issued to %s.", record.CertificateID, record.StudentName)
	return verdict
}

// validateFields compares extracted values against the stored record. Exact
// normalized equality first, then a Levenshtein similarity fallback; absent
// extracted fields produce warnings, not mismatches.
func (vs *verdictService) validateFields(extraction *types.ExtractionResult, record *types.CertificateRecord) *types.ValidationResult {
	result := &types.ValidationResult{
		MatchedFields:    []string{},
		MismatchedFields: []string{},
		Warnings:         []string{},
	}

	result.MatchedFields = append(result.MatchedFields, "certificateId")

	if extraction.StudentName == "" {
		result.Warnings = append(result.Warnings, "student name could not be read from the image")
	} else if fieldsMatch(extraction.StudentName, record.StudentName, vs.cfg.NameSimilarity) {
		result.MatchedFields = append(result.MatchedFields, "studentName")
	} else {
		result.MismatchedFields = append(result.MismatchedFields, "studentName")
	}

	if extraction.Title == "" {
		result.Warnings = append(result.Warnings, "title could not be read from the image")
	} else if fieldsMatch(extraction.Title, record.Title, vs.cfg.TitleSimilarity) {
		result.MatchedFields = append(result.MatchedFields, "title")
	} else {
		result.MismatchedFields = append(result.MismatchedFields, "title")
	}

	if extraction.Date != "" && !strings.HasPrefix(extraction.Date, record.IssuedAt.Format("2006-01-02")) {
		result.Warnings = append(result.Warnings, "printed date differs from the issue date on record")
	}

	result.IsValid = len(result.MismatchedFields) == 0
	matchable := len(result.MatchedFields) + len(result.MismatchedFields)
	if matchable > 0 {
		result.Confidence = float64(len(result.MatchedFields)) / float64(matchable) * 100
	}
	return result
}

func fieldsMatch(extracted, stored string, minSimilarity float64) bool {
	a := normalizeField(extracted)
	b := normalizeField(stored)
	if a == b {
		return true
	}
	return levenshteinSimilarity(a, b) >= minSimilarity
}

func normalizeField(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// levenshteinSimilarity is 1 - distance/maxLen over runes.
func levenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(prev[len(rb)])/float64(maxLen)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
