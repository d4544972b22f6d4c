package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

type CustomCertificateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cert *types.CustomCertificate) (*types.CustomCertificate, error)
	FindByCertificateID(ctx context.Context, tx *gorm.DB, certificateID string) (*types.CustomCertificate, error)
	CertificateIDExists(ctx context.Context, tx *gorm.DB, certificateID string) (bool, error)
}

type customCertificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CustomCertificateRepo {
	return &customCertificateRepo{db: db, log: baseLog.With("repo", "CustomCertificateRepo")}
}

func (cr *customCertificateRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return cr.db
}

func (cr *customCertificateRepo) Create(ctx context.Context, tx *gorm.DB, cert *types.CustomCertificate) (*types.CustomCertificate, error) {
	if err := cr.conn(tx).WithContext(ctx).Create(cert).Error; err != nil {
		return nil, err
	}
	return cert, nil
}

func (cr *customCertificateRepo) FindByCertificateID(ctx context.Context, tx *gorm.DB, certificateID string) (*types.CustomCertificate, error) {
	var result types.CustomCertificate
	if err := cr.conn(tx).WithContext(ctx).
		Where("certificate_id = ?", certificateID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *customCertificateRepo) CertificateIDExists(ctx context.Context, tx *gorm.DB, certificateID string) (bool, error) {
	var count int64
	if err := cr.conn(tx).WithContext(ctx).
		Model(&types.CustomCertificate{}).
		Where("certificate_id = ?", certificateID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
