package types

import (
	"time"

	"github.com/google/uuid"
)

type Internship struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title     string    `gorm:"not null;column:title" json:"title"`
	Company   string    `gorm:"column:company" json:"company"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Internship) TableName() string {
	return "internship"
}
