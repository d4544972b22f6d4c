package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weboryskills/webory-backend/internal/clients/gcp"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/repos"
	"github.com/weboryskills/webory-backend/internal/types"
)

// CourseEligibilityStatus is what the eligibility endpoint reports back:
// where the student stands and, once unlocked, the issued pair.
type CourseEligibilityStatus struct {
	Eligible       bool   `json:"eligible"`
	Reason         string `json:"reason,omitempty"`
	CertificateID  string `json:"certificate_id,omitempty"`
	CertificateKey string `json:"certificate_key,omitempty"`
}

/// CertificateService ties issuance into the product flows: the student-facing
// eligibility check that issues on first unlock, the internship certificate
// fetch, and the admin custom-certificate generation with a rendered PNG.
type CertificateService interface {
	EvaluateCourseEligibility(ctx context.Context, studentID, courseID uuid.UUID) (*CourseEligibilityStatus, error)
	GetInternshipCertificate(ctx context.Context, applicationID uuid.UUID) (*types.CertificateRecord, error)
	GenerateCustomCertificate(ctx context.Context, studentName, title, description string) (*types.CertificateRecord, string, error)
}

type certificateService struct {
	log          *logger.Logger
	issuer       IssuerService
	render       CertificateRenderService
	mailer       CertificateMailer
	bucket       gcp.BucketService
	enrollments  repos.EnrollmentRepo
	applications repos.ApplicationRepo
	users        repos.UserRepo
	courses      repos.CourseRepo
	internships  repos.InternshipRepo
}

// NewCertificateService accepts a nil mailer, render service and bucket;
// the corresponding side effects are skipped.
func NewCertificateService(
	log *logger.Logger,
	issuer IssuerService,
	render CertificateRenderService,
	mailer CertificateMailer,
	bucket gcp.BucketService,
	enrollments repos.EnrollmentRepo,
	applications repos.ApplicationRepo,
	users repos.UserRepo,
	courses repos.CourseRepo,
	internships repos.InternshipRepo,
) (CertificateService, error) {
	if issuer == nil {
		return nil, fmt.Errorf("issuer service required")
	}
	return &certificateService{
		log:          log.With("service", "CertificateService"),
		issuer:       issuer,
		render:       render,
		mailer:       mailer,
		bucket:       bucket,
		enrollments:  enrollments,
		applications: applications,
		users:        users,
		courses:      courses,
		internships:  internships,
	}, nil
}

func (cs *certificateService) EvaluateCourseEligibility(ctx context.Context, studentID, courseID uuid.UUID) (*CourseEligibilityStatus, error) {
	enrollment, err := cs.enrollments.GetByStudentAndCourse(ctx, nil, studentID, courseID)
	if err != nil {
		return nil, mapRecordNotFound(err)
	}

	if ok, reason := CourseEligibility(enrollment); !ok {
		return &CourseEligibilityStatus{Eligible: false, Reason: reason}, nil
	}

	id, key, issuedNow, err := cs.issuer.EnsureIssued(ctx, types.CertificateCategoryCourse, enrollment.ID)
	if err != nil {
		return nil, err
	}
	if issuedNow || !enrollment.CertificateEmailSent {
		cs.sendUnlockEmail(ctx, enrollment, id)
	}

	return &CourseEligibilityStatus{
		Eligible:       true,
		CertificateID:  id,
		CertificateKey: key,
	}, nil
}

// sendUnlockEmail is best effort; a mail outage never blocks the eligibility
// response. The sent flag is only set after a successful send so the next
// eligibility check retries.
func (cs *certificateService) sendUnlockEmail(ctx context.Context, enrollment *types.Enrollment, certificateID string) {
	if cs.mailer == nil {
		return
	}
	user, err := cs.users.GetByID(ctx, nil, enrollment.StudentID)
	if err != nil {
		cs.log.Warn("unlock email skipped, student unavailable", "enrollment_id", enrollment.ID, "error", err)
		return
	}
	course, err := cs.courses.GetByID(ctx, nil, enrollment.CourseID)
	if err != nil {
		cs.log.Warn("unlock email skipped, course unavailable", "enrollment_id", enrollment.ID, "error", err)
		return
	}
	if err := cs.mailer.SendCertificateUnlocked(ctx, user.Email, user.DisplayName(), course.Title, certificateID); err != nil {
		cs.log.Warn("unlock email failed (ignored)", "enrollment_id", enrollment.ID, "error", err)
		return
	}
	if err := cs.enrollments.MarkCertificateEmailSent(ctx, nil, enrollment.ID); err != nil {
		cs.log.Warn("could not mark unlock email as sent", "enrollment_id", enrollment.ID, "error", err)
	}
}

func (cs *certificateService) GetInternshipCertificate(ctx context.Context, applicationID uuid.UUID) (*types.CertificateRecord, error) {
	id, key, _, err := cs.issuer.EnsureIssued(ctx, types.CertificateCategoryInternship, applicationID)
	if err != nil {
		return nil, err
	}

	application, err := cs.applications.GetByID(ctx, nil, applicationID)
	if err != nil {
		return nil, mapRecordNotFound(err)
	}
	user, err := cs.users.GetByID(ctx, nil, application.StudentID)
	if err != nil {
		return nil, mapDanglingReference("student", err)
	}
	internship, err := cs.internships.GetByID(ctx, nil, application.InternshipID)
	if err != nil {
		return nil, mapDanglingReference("internship", err)
	}

	issuedAt := application.UpdatedAt
	if application.CompletedAt != nil {
		issuedAt = *application.CompletedAt
	}
	return &types.CertificateRecord{
		Category:       types.CertificateCategoryInternship,
		StudentName:    user.DisplayName(),
		Title:          internship.Title,
		Company:        internship.Company,
		IssuedAt:       issuedAt,
		CertificateID:  id,
		CertificateKey: key,
	}, nil
}

func (cs *certificateService) GenerateCustomCertificate(ctx context.Context, studentName, title, description string) (*types.CertificateRecord, string, error) {
	cert, err := cs.issuer.IssueCustom(ctx, studentName, title, description)
	if err != nil {
		return nil, "", err
	}

	record := &types.CertificateRecord{
		Category:       types.CertificateCategoryCustom,
		StudentName:    cert.StudentName,
		Title:          cert.Title,
		IssuedAt:       cert.IssuedAt,
		CertificateID:  cert.CertificateID,
		CertificateKey: cert.CertificateKey,
	}

	if cs.render == nil || cs.bucket == nil {
		return record, "", nil
	}
	png, err := cs.render.Render(record)
	if err != nil {
		return nil, "", fmt.Errorf("render custom certificate: %w", err)
	}
	key := fmt.Sprintf("custom/%s/%d.png", cert.ID.String(), time.Now().UnixNano())
	if err := cs.bucket.UploadFile(ctx, gcp.BucketCategoryCertificate, key, bytes.NewReader(png)); err != nil {
		return nil, "", fmt.Errorf("upload custom certificate: %w", err)
	}
	return record, cs.bucket.GetPublicURL(gcp.BucketCategoryCertificate, key), nil
}
