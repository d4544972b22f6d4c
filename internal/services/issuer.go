package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	apperrors "github.com/weboryskills/webory-backend/internal/pkg/errors"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/repos"
	"github.com/weboryskills/webory-backend/internal/types"
)

// IssuerService mints certificate ID/key pairs and persists them exactly once
// per record. EnsureIssued is the idempotent path used after an eligibility
// check; Reissue is the explicit admin path that refuses to touch an already
// issued record unless forced.
type IssuerService interface {
	EnsureIssued(ctx context.Context, category types.CertificateCategory, recordID uuid.UUID) (certificateID, certificateKey string, issuedNow bool, err error)
	Reissue(ctx context.Context, category types.CertificateCategory, recordID uuid.UUID, force bool) (certificateID, certificateKey string, err error)
	IssueCustom(ctx context.Context, studentName, title, description string) (*types.CustomCertificate, error)
}

type IssuerConfig struct {
	// MaxIDAttempts bounds collision-driven regeneration of candidate IDs.
	MaxIDAttempts int
}

type issuerService struct {
	log          *logger.Logger
	cfg          IssuerConfig
	enrollments  repos.EnrollmentRepo
	applications repos.ApplicationRepo
	customCerts  repos.CustomCertificateRepo
	courses      repos.CourseRepo
	internships  repos.InternshipRepo
	lookup       LookupService
	now          func() time.Time
}

func NewIssuerService(
	log *logger.Logger,
	cfg IssuerConfig,
	enrollments repos.EnrollmentRepo,
	applications repos.ApplicationRepo,
	customCerts repos.CustomCertificateRepo,
	courses repos.CourseRepo,
	internships repos.InternshipRepo,
	lookup LookupService,
) (IssuerService, error) {
	if lookup == nil {
		return nil, fmt.Errorf("lookup service required")
	}
	if cfg.MaxIDAttempts <= 0 {
		cfg.MaxIDAttempts = 5
	}
	return &issuerService{
		log:          log.With("service", "IssuerService"),
		cfg:          cfg,
		enrollments:  enrollments,
		applications: applications,
		customCerts:  customCerts,
		courses:      courses,
		internships:  internships,
		lookup:       lookup,
		now:          time.Now,
	}, nil
}

func (is *issuerService) EnsureIssued(ctx context.Context, category types.CertificateCategory, recordID uuid.UUID) (string, string, bool, error) {
	switch category {
	case types.CertificateCategoryCourse:
		return is.ensureCourse(ctx, recordID)
	case types.CertificateCategoryInternship:
		return is.ensureInternship(ctx, recordID)
	default:
		return "", "", false, fmt.Errorf("category %q cannot be issued by record id: %w", category, apperrors.ErrInvalidArgument)
	}
}

func (is *issuerService) Reissue(ctx context.Context, category types.CertificateCategory, recordID uuid.UUID, force bool) (string, string, error) {
	var existing string
	switch category {
	case types.CertificateCategoryCourse:
		enrollment, err := is.enrollments.GetByID(ctx, nil, recordID)
		if err != nil {
			return "", "", mapRecordNotFound(err)
		}
		existing = enrollment.CertificateID
	case types.CertificateCategoryInternship:
		application, err := is.applications.GetByID(ctx, nil, recordID)
		if err != nil {
			return "", "", mapRecordNotFound(err)
		}
		existing = application.CertificateID
	default:
		return "", "", fmt.Errorf("category %q cannot be issued by record id: %w", category, apperrors.ErrInvalidArgument)
	}

	// A certificate id is immutable once set. Force only overrides the
	// guard below and hands back the stored pair; it never mints a new one.
	if existing != "" && !force {
		return "", "", fmt.Errorf("record %s already holds certificate %s: %w", recordID, existing, apperrors.ErrAlreadyIssued)
	}
	if existing != "" && force {
		is.log.Warn("forced re-issue, returning stored pair", "category", category, "record_id", recordID, "certificate_id", existing)
	}

	id, key, _, err := is.EnsureIssued(ctx, category, recordID)
	return id, key, err
}

func (is *issuerService) ensureCourse(ctx context.Context, enrollmentID uuid.UUID) (string, string, bool, error) {
	enrollment, err := is.enrollments.GetByID(ctx, nil, enrollmentID)
	if err != nil {
		return "", "", false, mapRecordNotFound(err)
	}
	if enrollment.CertificateID != "" {
		return enrollment.CertificateID, enrollment.CertificateKey, false, nil
	}
	if ok, reason := CourseEligibility(enrollment); !ok {
		return "", "", false, fmt.Errorf("%s: %w", reason, apperrors.ErrOwnerNotEligible)
	}

	course, err := is.courses.GetByID(ctx, nil, enrollment.CourseID)
	if err != nil {
		return "", "", false, mapDanglingReference("course", err)
	}

	prefix := titleInitials(course.Title)
	id, err := is.uniqueID(ctx, prefix, ownerBlock(enrollment.StudentID))
	if err != nil {
		return "", "", false, err
	}
	key := generateCertificateKey()

	won, err := is.enrollments.SetCertificate(ctx, nil, enrollmentID, id, key, is.now())
	if err != nil {
		return "", "", false, fmt.Errorf("persist course certificate: %w", err)
	}
	if !won {
		stored, err := is.enrollments.GetByID(ctx, nil, enrollmentID)
		if err != nil {
			return "", "", false, fmt.Errorf("re-read after lost issuance race: %w", err)
		}
		return stored.CertificateID, stored.CertificateKey, false, nil
	}
	is.lookup.InvalidateCache(ctx, id)
	is.log.Info("issued course certificate", "enrollment_id", enrollmentID, "certificate_id", id)
	return id, key, true, nil
}

func (is *issuerService) ensureInternship(ctx context.Context, applicationID uuid.UUID) (string, string, bool, error) {
	application, err := is.applications.GetByID(ctx, nil, applicationID)
	if err != nil {
		return "", "", false, mapRecordNotFound(err)
	}
	if application.CertificateID != "" {
		return application.CertificateID, application.CertificateKey, false, nil
	}
	if ok, reason := InternshipEligibility(application); !ok {
		return "", "", false, fmt.Errorf("%s: %w", reason, apperrors.ErrOwnerNotEligible)
	}

	internship, err := is.internships.GetByID(ctx, nil, application.InternshipID)
	if err != nil {
		return "", "", false, mapDanglingReference("internship", err)
	}

	prefix := "INT-" + titleInitials(internship.Title)
	id, err := is.uniqueID(ctx, prefix, ownerBlock(application.StudentID))
	if err != nil {
		return "", "", false, err
	}
	key := generateCertificateKey()

	won, err := is.applications.SetCertificate(ctx, nil, applicationID, id, key, is.now())
	if err != nil {
		return "", "", false, fmt.Errorf("persist internship certificate: %w", err)
	}
	if !won {
		stored, err := is.applications.GetByID(ctx, nil, applicationID)
		if err != nil {
			return "", "", false, fmt.Errorf("re-read after lost issuance race: %w", err)
		}
		return stored.CertificateID, stored.CertificateKey, false, nil
	}
	is.lookup.InvalidateCache(ctx, id)
	is.log.Info("issued internship certificate", "application_id", applicationID, "certificate_id", id)
	return id, key, true, nil
}

func (is *issuerService) IssueCustom(ctx context.Context, studentName, title, description string) (*types.CustomCertificate, error) {
	studentName = strings.TrimSpace(studentName)
	title = strings.TrimSpace(title)
	if studentName == "" || title == "" {
		return nil, fmt.Errorf("student name and title required: %w", apperrors.ErrInvalidArgument)
	}

	prefix := "CUSTOM-" + titleInitials(title)
	id, err := is.uniqueID(ctx, prefix, randomBlock(6))
	if err != nil {
		return nil, err
	}

	cert := &types.CustomCertificate{
		StudentName:    studentName,
		Title:          title,
		Description:    strings.TrimSpace(description),
		CertificateID:  id,
		CertificateKey: generateCertificateKey(),
		IssuedAt:       is.now(),
	}
	created, err := is.customCerts.Create(ctx, nil, cert)
	if err != nil {
		return nil, fmt.Errorf("persist custom certificate: %w", err)
	}
	is.lookup.InvalidateCache(ctx, id)
	is.log.Info("issued custom certificate", "certificate_id", id)
	return created, nil
}

// uniqueID builds `<prefix>-<owner>-<tsuffix>` candidates and scans every
// store until one is unused. The first attempt derives the suffix from the
// clock; retries switch to random digits so two issuances in the same
// millisecond cannot spin.
func (is *issuerService) uniqueID(ctx context.Context, prefix, owner string) (string, error) {
	for attempt := 0; attempt < is.cfg.MaxIDAttempts; attempt++ {
		suffix := timeSuffix(is.now())
		if attempt > 0 {
			suffix = randomDigits(len(suffix))
		}
		candidate := fmt.Sprintf("%s-%s-%s", prefix, owner, suffix)
		taken, err := is.lookup.ExistsAnywhere(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("collision scan for %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		is.log.Warn("certificate id collision, regenerating", "candidate", candidate, "attempt", attempt+1)
	}
	return "", fmt.Errorf("could not generate a unique certificate id after %d attempts", is.cfg.MaxIDAttempts)
}

// ---------- id and key building blocks ----------

// titleInitials takes the first letter of up to four words, uppercased.
// Non-letter words are skipped; an unusable title falls back to "CERT".
func titleInitials(title string) string {
	var b strings.Builder
	for _, word := range strings.Fields(title) {
		for _, r := range word {
			if unicode.IsLetter(r) {
				b.WriteRune(unicode.ToUpper(r))
				break
			}
		}
		if b.Len() >= 4 {
			break
		}
	}
	if b.Len() == 0 {
		return "CERT"
	}
	return b.String()
}

// ownerBlock is the first six characters of the owner UUID, uppercased.
func ownerBlock(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:6])
}

// timeSuffix drops the leading eight digits of the unix-millisecond timestamp,
// keeping the fast-moving tail.
func timeSuffix(t time.Time) string {
	ms := fmt.Sprintf("%d", t.UnixMilli())
	if len(ms) <= 8 {
		return ms
	}
	return ms[8:]
}

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomBlock(n int) string {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(keyAlphabet))))
		if err != nil {
			// crypto/rand failing means the platform entropy source is broken;
			// there is no sensible recovery path for key material.
			panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
		}
		b[i] = keyAlphabet[idx.Int64()]
	}
	return string(b)
}

func randomDigits(n int) string {
	const digits = "0123456789"
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
		}
		b[i] = digits[idx.Int64()]
	}
	return string(b)
}

// generateCertificateKey concatenates two independent 8-character blocks.
func generateCertificateKey() string {
	return randomBlock(8) + randomBlock(8)
}
