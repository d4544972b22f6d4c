package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

type ApplicationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, application *types.Application) (*types.Application, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Application, error)
	FindByCertificateID(ctx context.Context, tx *gorm.DB, certificateID string) (*types.Application, error)
	CertificateIDExists(ctx context.Context, tx *gorm.DB, certificateID string) (bool, error)
	SetCertificate(ctx context.Context, tx *gorm.DB, id uuid.UUID, certificateID, certificateKey string, completedAt time.Time) (bool, error)
}

type applicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApplicationRepo(db *gorm.DB, baseLog *logger.Logger) ApplicationRepo {
	return &applicationRepo{db: db, log: baseLog.With("repo", "ApplicationRepo")}
}

func (ar *applicationRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

func (ar *applicationRepo) Create(ctx context.Context, tx *gorm.DB, application *types.Application) (*types.Application, error) {
	if err := ar.conn(tx).WithContext(ctx).Create(application).Error; err != nil {
		return nil, err
	}
	return application, nil
}

func (ar *applicationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Application, error) {
	var result types.Application
	if err := ar.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *applicationRepo) FindByCertificateID(ctx context.Context, tx *gorm.DB, certificateID string) (*types.Application, error) {
	var result types.Application
	if err := ar.conn(tx).WithContext(ctx).
		Where("certificate_id = ?", certificateID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *applicationRepo) CertificateIDExists(ctx context.Context, tx *gorm.DB, certificateID string) (bool, error) {
	var count int64
	if err := ar.conn(tx).WithContext(ctx).
		Model(&types.Application{}).
		Where("certificate_id = ?", certificateID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ar *applicationRepo) SetCertificate(ctx context.Context, tx *gorm.DB, id uuid.UUID, certificateID, certificateKey string, completedAt time.Time) (bool, error) {
	res := ar.conn(tx).WithContext(ctx).
		Model(&types.Application{}).
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
