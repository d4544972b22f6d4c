package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CustomCertificate is the admin-issued certificate store. Unlike the course
// and internship stores it has no owner reference; the recipient name is
// stored as free text.
type CustomCertificate struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentName string    `gorm:"not null;column:student_name" json:"student_name"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description,omitempty"`

	CertificateID  string `gorm:"uniqueIndex;not null;column:certificate_id" json:"certificate_id"`
	CertificateKey string `gorm:"not null;column:certificate_key" json:"certificate_key"`

	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	IssuedAt  time.Time `gorm:"not null;default:now();column:issued_at" json:"issued_at"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CustomCertificate) TableName() string {
	return "custom_certificate"
}
