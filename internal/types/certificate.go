package types

import "time"

type CertificateCategory string

const (
	CertificateCategoryCourse     CertificateCategory = "course"
	CertificateCategoryInternship CertificateCategory = "internship"
	CertificateCategoryCustom     CertificateCategory = "custom"
)

// CertificateRecord is the canonical cross-store view of an issued
// certificate, ready for direct display.
type CertificateRecord struct {
	Category       CertificateCategory `json:"category"`
	StudentName    string              `json:"student_name"`
	Title          string              `json:"title"`
	Company        string              `json:"company,omitempty"`
	IssuedAt       time.Time           `json:"issued_at"`
	CertificateID  string              `json:"certificate_id"`
	CertificateKey string              `json:"certificate_key"`
}

// ExtractionResult is the best-effort structured guess produced from a
// certificate image. It is request-scoped and never persisted. Absent fields
// are empty strings with a lowered confidence, never an error.
type ExtractionResult struct {
	CertificateID string  `json:"certificate_id,omitempty"`
	StudentName   string  `json:"student_name,omitempty"`
	Title         string  `json:"title,omitempty"`
	Date          string  `json:"date,omitempty"`
	RawText       string  `json:"raw_text"`
	Confidence    float64 `json:"confidence"` // 0-100
}

// SuspiciousRegion is a clustered area of differing pixels from the
// template comparison, in canonical (resized) coordinates.
type SuspiciousRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type TemplateComparison struct {
	Similarity        float64            `json:"similarity"` // 0-1
	DiffPixels        int                `json:"diff_pixels"`
	SuspiciousRegions []SuspiciousRegion `json:"suspicious_regions,omitempty"`
}

type ManipulationCheckResult struct {
	IsManipulated bool                `json:"is_manipulated"`
	Confidence    float64             `json:"confidence"` // 0-100
	Issues        []string            `json:"issues"`
	Template      *TemplateComparison `json:"template_comparison,omitempty"`
}

// ManipulationOutcome is the tagged result of the manipulation detector.
// The detector is a secondary signal: it degrades, it never fails the
// pipeline, so the "never block the primary verdict" rule lives in the type
// instead of in error-handling placement.
type ManipulationOutcome struct {
	OK             bool                    `json:"ok"`
	Result         ManipulationCheckResult `json:"result"`
	DegradedReason string                  `json:"degraded_reason,omitempty"`
}

func ManipulationOK(r ManipulationCheckResult) ManipulationOutcome {
	return ManipulationOutcome{OK: true, Result: r}
}

func ManipulationDegraded(reason string) ManipulationOutcome {
	return ManipulationOutcome{OK: false, DegradedReason: reason}
}

// ValidationResult reports how the OCR-extracted fields compare against the
// database record.
type ValidationResult struct {
	IsValid          bool     `json:"is_valid"`
	MatchedFields    []string `json:"matched_fields"`
	MismatchedFields []string `json:"mismatched_fields"`
	Confidence       float64  `json:"confidence"` // 0-100
	Warnings         []string `json:"warnings"`
}

type Verdict string

const (
	VerdictAuthentic  Verdict = "AUTHENTIC"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictInvalid    Verdict = "INVALID"
	VerdictUnknown    Verdict = "UNKNOWN"
)

// VerificationVerdict is the final merged outcome returned to the caller.
type VerificationVerdict struct {
	Verdict         Verdict              `json:"verdict"`
	Message         string               `json:"message"`
	Extraction      *ExtractionResult    `json:"extracted_data,omitempty"`
	Record          *CertificateRecord   `json:"database_data,omitempty"`
	Validation      *ValidationResult    `json:"validation,omitempty"`
	Manipulation    *ManipulationOutcome `json:"manipulation_check,omitempty"`
	CertificateType CertificateCategory  `json:"certificate_type,omitempty"`
}
