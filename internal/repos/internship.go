package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

type InternshipRepo interface {
	Create(ctx context.Context, tx *gorm.DB, internship *types.Internship) (*types.Internship, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Internship, error)
}

type internshipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInternshipRepo(db *gorm.DB, baseLog *logger.Logger) InternshipRepo {
	return &internshipRepo{db: db, log: baseLog.With("repo", "InternshipRepo")}
}

func (ir *internshipRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ir.db
}

func (ir *internshipRepo) Create(ctx context.Context, tx *gorm.DB, internship *types.Internship) (*types.Internship, error) {
	if err := ir.conn(tx).WithContext(ctx).Create(internship).Error; err != nil {
		return nil, err
	}
	return internship, nil
}

func (ir *internshipRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Internship, error) {
	var result types.Internship
	if err := ir.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
