package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

type EnrollmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *types.Enrollment) (*types.Enrollment, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Enrollment, error)
	GetByStudentAndCourse(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) (*types.Enrollment, error)
	FindByCertificateID(ctx context.Context, tx *gorm.DB, certificateID string) (*types.Enrollment, error)
	CertificateIDExists(ctx context.Context, tx *gorm.DB, certificateID string) (bool, error)
	// SetCertificate assigns the pair only when certificate_id is still unset
	// and reports whether this call won the assignment. Losing the race is not
	// an error; the caller re-reads the stored pair.
	SetCertificate(ctx context.Context, tx *gorm.DB, id uuid.UUID, certificateID, certificateKey string, completedAt time.Time) (bool, error)
	MarkCertificateEmailSent(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (er *enrollmentRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return er.db
}

func (er *enrollmentRepo) Create(ctx context.Context, tx *gorm.DB, enrollment *types.Enrollment) (*types.Enrollment, error) {
	if err := er.conn(tx).WithContext(ctx).Create(enrollment).Error; err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (er *enrollmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Enrollment, error) {
	var result types.Enrollment
	if err := er.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (er *enrollmentRepo) GetByStudentAndCourse(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) (*types.Enrollment, error) {
	var result types.Enrollment
	if err := er.conn(tx).WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (er *enrollmentRepo) FindByCertificateID(ctx context.Context, tx *gorm.DB, certificateID string) (*types.Enrollment, error) {
	var result types.Enrollment
	if err := er.conn(tx).WithContext(ctx).
		Where("certificate_id = ?", certificateID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (er *enrollmentRepo) CertificateIDExists(ctx context.Context, tx *gorm.DB, certificateID string) (bool, error) {
	var count int64
	if err := er.conn(tx).WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("certificate_id = ?", certificateID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (er *enrollmentRepo) SetCertificate(ctx context.Context, tx *gorm.DB, id uuid.UUID, certificateID, certificateKey string, completedAt time.Time) (bool, error) {
	res := er.conn(tx).WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("id = ? AND (certificate_id IS NULL OR certificate_id = '')", id).
		Updates(map[string]any{
			"certificate_id":  certificateID,
			"certificate_key": certificateKey,
			"completed_at":    completedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (er *enrollmentRepo) MarkCertificateEmailSent(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return er.conn(tx).WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("id = ?", id).
		Update("certificate_email_sent", true).Error
}
