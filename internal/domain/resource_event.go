package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Resource event types raised when a loan closes. Cataloguing owns the reaction.
const (
	EventTotalQuantityAdjustment = "TOTAL_QUANTITY_ADJUSTMENT"
	EventStateReview             = "STATE_REVIEW"
)

// ResourceEvent is an outbox row: written in the same transaction as the loan
// change, dispatched after commit. DispatchedAt stays nil until an emitter accepts it;
// Attempts and LastError record refused dispatches.
type ResourceEvent struct {
	EventID      uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ResourceID   uuid.UUID      `gorm:"column:resource_id;type:uuid;not null;index" json:"resource_id"`
	LoanID       uuid.UUID      `gorm:"column:loan_id;type:uuid;not null" json:"loan_id"`
	EventType    string         `gorm:"column:event_type;type:varchar(40);not null" json:"event_type"`
	EventData    datatypes.JSON `gorm:"column:event_data;type:json" json:"event_data"`
	DispatchedAt *time.Time     `gorm:"column:dispatched_at;index" json:"dispatched_at"`
	Attempts     int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError    string         `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (ResourceEvent) TableName() string {
	return "resource_events"
}

func (e *ResourceEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
