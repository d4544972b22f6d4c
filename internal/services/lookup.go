package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	rediscache "github.com/weboryskills/webory-backend/internal/clients/redis"
	apperrors "github.com/weboryskills/webory-backend/internal/pkg/errors"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/repos"
	"github.com/weboryskills/webory-backend/internal/types"
)

// CertificateSource is one certificate store viewed through the canonical
// record shape. Find distinguishes "no such certificate" (ErrNotFound) from
// "certificate exists but its referenced rows are gone" (ErrIncompleteRecord).
type CertificateSource interface {
	Category() types.CertificateCategory
	Find(ctx context.Context, certificateID string) (*types.CertificateRecord, error)
	Exists(ctx context.Context, certificateID string) (bool, error)
}

// LookupService resolves a certificate ID against all stores in a fixed,
// documented order: course, then internship, then custom.
type LookupService interface {
	Lookup(ctx context.Context, certificateID string) (*types.CertificateRecord, error)
	ExistsAnywhere(ctx context.Context, certificateID string) (bool, error)
	InvalidateCache(ctx context.Context, certificateID string)
}

type lookupService struct {
	log     *logger.Logger
	sources []CertificateSource
	cache   rediscache.RecordCache
}

func NewLookupService(log *logger.Logger, cache rediscache.RecordCache, sources ...CertificateSource) (LookupService, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one certificate source required")
	}
	return &lookupService{
		log:     log.With("service", "LookupService"),
		sources: sources,
		cache:   cache,
	}, nil
}

func (ls *lookupService) Lookup(ctx context.Context, certificateID string) (*types.CertificateRecord, error) {
	id := strings.TrimSpace(certificateID)
	if id == "" {
		return nil, fmt.Errorf("empty certificate id: %w", apperrors.ErrInvalidArgument)
	}

	if ls.cache != nil {
		if rec, ok := ls.cache.Get(ctx, id); ok {
			return rec, nil
		}
	}

	for _, src := range ls.sources {
		rec, err := src.Find(ctx, id)
		if err == nil {
			if ls.cache != nil {
				ls.cache.Set(ctx, id, rec)
			}
			return rec, nil
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		// Incomplete records and infrastructure failures stop the scan; the
		// certificate id is unique across stores, so no later source can win.
		return nil, fmt.Errorf("lookup in %s store: %w", src.Category(), err)
	}
	return nil, fmt.Errorf("certificate %s: %w", id, apperrors.ErrNotFound)
}

func (ls *lookupService) ExistsAnywhere(ctx context.Context, certificateID string) (bool, error) {
	id := strings.TrimSpace(certificateID)
	if id == "" {
		return false, fmt.Errorf("empty certificate id: %w", apperrors.ErrInvalidArgument)
	}
	for _, src := range ls.sources {
		found, err := src.Exists(ctx, id)
		if err != nil {
			return false, fmt.Errorf("existence check in %s store: %w", src.Category(), err)
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func (ls *lookupService) InvalidateCache(ctx context.Context, certificateID string) {
	if ls.cache != nil {
		ls.cache.Delete(ctx, certificateID)
	}
}

// ---------- course store adapter ----------

type courseSource struct {
	enrollments repos.EnrollmentRepo
	users       repos.UserRepo
	courses     repos.CourseRepo
}

func NewCourseSource(enrollments repos.EnrollmentRepo, users repos.UserRepo, courses repos.CourseRepo) CertificateSource {
	return &courseSource{enrollments: enrollments, users: users, courses: courses}
}

func (cs *courseSource) Category() types.CertificateCategory {
	return types.CertificateCategoryCourse
}

func (cs *courseSource) Find(ctx context.Context, certificateID string) (*types.CertificateRecord, error) {
	enrollment, err := cs.enrollments.FindByCertificateID(ctx, nil, certificateID)
	if err != nil {
		return nil, mapRecordNotFound(err)
	}
	user, err := cs.users.GetByID(ctx, nil, enrollment.StudentID)
	if err != nil {
		return nil, mapDanglingReference("student", err)
	}
	course, err := cs.courses.GetByID(ctx, nil, enrollment.CourseID)
	if err != nil {
		return nil, mapDanglingReference("course", err)
	}

	issuedAt := enrollment.UpdatedAt
	if enrollment.CompletedAt != nil {
		issuedAt = *enrollment.CompletedAt
	}
	return &types.CertificateRecord{
		Category:       types.CertificateCategoryCourse,
		StudentName:    user.DisplayName(),
		Title:          course.Title,
		IssuedAt:       issuedAt,
		CertificateID:  enrollment.CertificateID,
		CertificateKey: enrollment.CertificateKey,
	}, nil
}

func (cs *courseSource) Exists(ctx context.Context, certificateID string) (bool, error) {
	return cs.enrollments.CertificateIDExists(ctx, nil, certificateID)
}

// ---------- internship store adapter ----------

type internshipSource struct {
	applications repos.ApplicationRepo
	users        repos.UserRepo
	internships  repos.InternshipRepo
}

func NewInternshipSource(applications repos.ApplicationRepo, users repos.UserRepo, internships repos.InternshipRepo) CertificateSource {
	return &internshipSource{applications: applications, users: users, internships: internships}
}

func (is *internshipSource) Category() types.CertificateCategory {
	return types.CertificateCategoryInternship
}

func (is *internshipSource) Find(ctx context.Context, certificateID string) (*types.CertificateRecord, error) {
	application, err := is.applications.FindByCertificateID(ctx, nil, certificateID)
	if err != nil {
		return nil, mapRecordNotFound(err)
	}
	user, err := is.users.GetByID(ctx, nil, application.StudentID)
	if err != nil {
		return nil, mapDanglingReference("student", err)
	}
	internship, err := is.internships.GetByID(ctx, nil, application.InternshipID)
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
		CertificateID:  application.CertificateID,
		CertificateKey: application.CertificateKey,
	}, nil
}

func (is *internshipSource) Exists(ctx context.Context, certificateID string) (bool, error) {
	return is.applications.CertificateIDExists(ctx, nil, certificateID)
}

// ---------- custom store adapter ----------

type customSource struct {
	customCerts repos.CustomCertificateRepo
}

func NewCustomSource(customCerts repos.CustomCertificateRepo) CertificateSource {
	return &customSource{customCerts: customCerts}
}

func (cu *customSource) Category() types.CertificateCategory {
	return types.CertificateCategoryCustom
}

func (cu *customSource) Find(ctx context.Context, certificateID string) (*types.CertificateRecord, error) {
	cert, err := cu.customCerts.FindByCertificateID(ctx, nil, certificateID)
	if err != nil {
		return nil, mapRecordNotFound(err)
	}
	return &types.CertificateRecord{
		Category:       types.CertificateCategoryCustom,
		StudentName:    cert.StudentName,
		Title:          cert.Title,
		IssuedAt:       cert.IssuedAt,
		CertificateID:  cert.CertificateID,
		CertificateKey: cert.CertificateKey,
	}, nil
}

func (cu *customSource) Exists(ctx context.Context, certificateID string) (bool, error) {
	return cu.customCerts.CertificateIDExists(ctx, nil, certificateID)
}

// ---------- shared mapping helpers ----------

func mapRecordNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return err
}

func mapDanglingReference(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("referenced %s no longer exists: %w", entity, apperrors.ErrIncompleteRecord)
	}
	return err
}
