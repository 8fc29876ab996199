package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PersonStudent = "student"
	PersonTeacher = "teacher"
)

// Person is the eligibility-relevant subset of a library member.
type Person struct {
	PersonID   uuid.UUID `gorm:"column:person_id;type:uuid;primaryKey" json:"id"`
	FullName   string    `gorm:"column:full_name;not null" json:"fullName"`
	PersonType string    `gorm:"column:person_type;type:varchar(20);not null" json:"personType"`
	Active     bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Person) TableName() string {
	return "people"
}

func (p *Person) BeforeCreate(tx *gorm.DB) error {
	if p.PersonID == uuid.Nil {
		p.PersonID = uuid.New()
	}
	return nil
}
