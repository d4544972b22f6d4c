package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/repos"
	"github.com/weboryskills/webory-backend/internal/types"
)

// The production schema runs on postgres with uuid/now defaults, so tests
// create an equivalent sqlite schema by hand and always set ids explicitly.
var testSchema = []string{
	`CREATE TABLE "user" (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE "course" (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE "internship" (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE "enrollment" (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		progress REAL NOT NULL DEFAULT 0,
		score REAL NOT NULL DEFAULT 0,
		graded_items INTEGER NOT NULL DEFAULT 0,
		certificate_id TEXT NOT NULL DEFAULT '',
		certificate_key TEXT NOT NULL DEFAULT '',
		certificate_email_sent BOOLEAN NOT NULL DEFAULT 0,
		completed_at DATETIME,
		enrolled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE "application" (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		internship_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'applied',
		approved_tasks INTEGER NOT NULL DEFAULT 0,
		total_tasks INTEGER NOT NULL DEFAULT 0,
		certificate_id TEXT NOT NULL DEFAULT '',
		certificate_key TEXT NOT NULL DEFAULT '',
		completed_at DATETIME,
		applied_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE "custom_certificate" (
		id TEXT PRIMARY KEY,
		student_name TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		certificate_id TEXT NOT NULL UNIQUE,
		certificate_key TEXT NOT NULL DEFAULT '',
		metadata TEXT,
		issued_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// A second connection to :memory: would be a second database.
	sqlDB.SetMaxOpenConns(1)
	for _, stmt := range testSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create test schema: %v", err)
		}
	}
	return db
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type testEnv struct {
	db           *gorm.DB
	log          *logger.Logger
	users        repos.UserRepo
	courses      repos.CourseRepo
	internships  repos.InternshipRepo
	enrollments  repos.EnrollmentRepo
	applications repos.ApplicationRepo
	customCerts  repos.CustomCertificateRepo
	lookup       LookupService
	issuer       IssuerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)

	env := &testEnv{
		db:           db,
		log:          log,
		users:        repos.NewUserRepo(db, log),
		courses:      repos.NewCourseRepo(db, log),
		internships:  repos.NewInternshipRepo(db, log),
		enrollments:  repos.NewEnrollmentRepo(db, log),
		applications: repos.NewApplicationRepo(db, log),
		customCerts:  repos.NewCustomCertificateRepo(db, log),
	}

	lookup, err := NewLookupService(log, nil,
		NewCourseSource(env.enrollments, env.users, env.courses),
		NewInternshipSource(env.applications, env.users, env.internships),
		NewCustomSource(env.customCerts),
	)
	if err != nil {
		t.Fatalf("init lookup service: %v", err)
	}
	env.lookup = lookup

	issuer, err := NewIssuerService(log, IssuerConfig{MaxIDAttempts: 5},
		env.enrollments, env.applications, env.customCerts, env.courses, env.internships, lookup)
	if err != nil {
		t.Fatalf("init issuer service: %v", err)
	}
	env.issuer = issuer
	return env
}

func (env *testEnv) seedUser(t *testing.T, first, last string) *types.User {
	t.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     uuid.New().String() + "@example.com",
		FirstName: first,
		LastName:  last,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if _, err := env.users.Create(t.Context(), nil, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (env *testEnv) seedCourse(t *testing.T, title string) *types.Course {
	t.Helper()
	c := &types.Course{ID: uuid.New(), Title: title, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if _, err := env.courses.Create(t.Context(), nil, c); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c
}

func (env *testEnv) seedInternship(t *testing.T, title, company string) *types.Internship {
	t.Helper()
	i := &types.Internship{ID: uuid.New(), Title: title, Company: company, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if _, err := env.internships.Create(t.Context(), nil, i); err != nil {
		t.Fatalf("seed internship: %v", err)
	}
	return i
}

func (env *testEnv) seedEnrollment(t *testing.T, studentID, courseID uuid.UUID, progress, score float64, gradedItems int) *types.Enrollment {
	t.Helper()
	e := &types.Enrollment{
		ID:          uuid.New(),
		StudentID:   studentID,
		CourseID:    courseID,
		Progress:    progress,
		Score:       score,
		GradedItems: gradedItems,
		EnrolledAt:  time.Now(),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if _, err := env.enrollments.Create(t.Context(), nil, e); err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	return e
}

func (env *testEnv) seedApplication(t *testing.T, studentID, internshipID uuid.UUID, status string, approved, total int) *types.Application {
	t.Helper()
	a := &types.Application{
		ID:            uuid.New(),
		StudentID:     studentID,
		InternshipID:  internshipID,
		Status:        status,
		ApprovedTasks: approved,
		TotalTasks:    total,
		AppliedAt:     time.Now(),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if _, err := env.applications.Create(t.Context(), nil, a); err != nil {
		t.Fatalf("seed application: %v", err)
	}
	return a
}
