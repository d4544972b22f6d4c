package types

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment is the course-category certificate store. A certificate exists on
// an enrollment once CertificateID is set; CertificateID is immutable after
// that point.
type Enrollment struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index;column:student_id" json:"student_id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index;column:course_id" json:"course_id"`

	// Progress is video completion 0-100; Score is the blended quiz/assignment
	// percentage used for certificate eligibility. GradedItems counts the quizzes
	// and assignments behind Score; a course with zero graded items treats Score
	// as a full 100.
	Progress    float64 `gorm:"not null;default:0;column:progress" json:"progress"`
	Score       float64 `gorm:"not null;default:0;column:score" json:"score"`
	GradedItems int     `gorm:"not null;default:0;column:graded_items" json:"graded_items"`

	// Uniqueness is enforced by a partial unique index (certificate_id <> '')
	// created alongside the schema; an unissued enrollment stores ''.
	CertificateID        string     `gorm:"index;column:certificate_id" json:"certificate_id,omitempty"`
	CertificateKey       string     `gorm:"column:certificate_key" json:"certificate_key,omitempty"`
	CertificateEmailSent bool       `gorm:"not null;default:false;column:certificate_email_sent" json:"certificate_email_sent"`
	CompletedAt          *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	EnrolledAt time.Time `gorm:"not null;default:now();column:enrolled_at" json:"enrolled_at"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Enrollment) TableName() string {
	return "enrollment"
}
