package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/weboryskills/webory-backend/internal/pkg/envutil"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "webory")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...", "host", host, "db", name)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.Course{},
		&types.Internship{},
		&types.Enrollment{},
		&types.Application{},
		&types.CustomCertificate{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// Unissued rows store '' for certificate_id, so plain unique indexes
	// would collide; partial indexes keep the issued subset unique per store.
	// Cross-store uniqueness is the issuer's job.
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_enrollment_certificate_id
		   ON "enrollment"("certificate_id") WHERE "certificate_id" <> ''`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_application_certificate_id
		   ON "application"("certificate_id") WHERE "certificate_id" <> ''`,
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create certificate index: %w", err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
