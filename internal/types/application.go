package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ApplicationStatusApplied   = "applied"
	ApplicationStatusActive    = "active"
	ApplicationStatusCompleted = "completed"
)

// Application is the internship-category certificate store.
type Application struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;index;column:student_id" json:"student_id"`
	InternshipID uuid.UUID `gorm:"type:uuid;not null;index;column:internship_id" json:"internship_id"`

	Status string `gorm:"not null;default:'applied';column:status" json:"status"`

	// Graded task counters drive certificate eligibility (>= 80% approved).
	ApprovedTasks int `gorm:"not null;default:0;column:approved_tasks" json:"approved_tasks"`
	TotalTasks    int `gorm:"not null;default:0;column:total_tasks" json:"total_tasks"`

	CertificateID  string     `gorm:"index;column:certificate_id" json:"certificate_id,omitempty"`
	CertificateKey string     `gorm:"column:certificate_key" json:"certificate_key,omitempty"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	AppliedAt time.Time `gorm:"not null;default:now();column:applied_at" json:"applied_at"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Application) TableName() string {
	return "application"
}
