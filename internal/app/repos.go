package app

import (
	"gorm.io/gorm"

	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/repos"
)

type Repos struct {
	User        repos.UserRepo
	Course      repos.CourseRepo
	Internship  repos.InternshipRepo
	Enrollment  repos.EnrollmentRepo
	Application repos.ApplicationRepo
	CustomCert  repos.CustomCertificateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        repos.NewUserRepo(db, log),
		Course:      repos.NewCourseRepo(db, log),
		Internship:  repos.NewInternshipRepo(db, log),
		Enrollment:  repos.NewEnrollmentRepo(db, log),
		Application: repos.NewApplicationRepo(db, log),
		CustomCert:  repos.NewCustomCertificateRepo(db, log),
	}
}
