package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoanStatus is the stored lifecycle state. Overdue is never stored; see overdue.IsOverdue.
type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
	LoanLost     LoanStatus = "lost"
)

// Closed reports whether the status is terminal.
func (s LoanStatus) Closed() bool {
	return s == LoanReturned || s == LoanLost
}

// Valid reports whether s is one of the stored statuses.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanActive, LoanReturned, LoanLost:
		return true
	}
	return false
}

// ResourceCondition is recorded when a loan is closed.
type ResourceCondition string

const (
	ConditionGood         ResourceCondition = "good"
	ConditionDeteriorated ResourceCondition = "deteriorated"
	ConditionDamaged      ResourceCondition = "damaged"
	ConditionLost         ResourceCondition = "lost"
)

func (c ResourceCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionDeteriorated, ConditionDamaged, ConditionLost:
		return true
	}
	return false
}

// NeedsReview reports whether the returned copy should be looked at by cataloguing.
func (c ResourceCondition) NeedsReview() bool {
	return c == ConditionDamaged || c == ConditionDeteriorated
}

// Loan is a person borrowing Quantity units of one resource.
// ReturnedDate is set if and only if Status is returned or lost.
type Loan struct {
	LoanID            uuid.UUID          `gorm:"column:loan_id;type:uuid;primaryKey" json:"id"`
	PersonID          uuid.UUID          `gorm:"column:person_id;type:uuid;not null;index" json:"personId"`
	ResourceID        uuid.UUID          `gorm:"column:resource_id;type:uuid;not null;index" json:"resourceId"`
	Quantity          int                `gorm:"column:quantity;not null" json:"quantity"`
	LoanDate          time.Time          `gorm:"column:loan_date;not null;index" json:"loanDate"`
	DueDate           time.Time          `gorm:"column:due_date;not null;index" json:"dueDate"`
	ReturnedDate      *time.Time         `gorm:"column:returned_date" json:"returnedDate"`
	Status            LoanStatus         `gorm:"column:status;type:varchar(20);not null;default:'active';index" json:"status"`
	Observations      string             `gorm:"column:observations;type:text" json:"observations,omitempty"`
	ResourceCondition *ResourceCondition `gorm:"column:resource_condition;type:varchar(20)" json:"resourceCondition,omitempty"`
	RenewalCount      int                `gorm:"column:renewal_count;not null;default:0" json:"renewalCount"`
	CreatedBy         *string            `gorm:"column:created_by" json:"createdBy,omitempty"`
	CreatedAt         time.Time          `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt         time.Time          `gorm:"column:updated_at" json:"updatedAt"`
}

func (Loan) TableName() string {
	return "loans"
}

func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	if l.LoanID == uuid.Nil {
		l.LoanID = uuid.New()
	}
	return nil
}
