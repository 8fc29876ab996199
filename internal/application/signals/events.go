// Package signals carries the effects of a closed loan that belong to
// cataloguing: removing lost units from the collection and reviewing the
// state of damaged copies. Events are stored in an outbox table in the same
// transaction as the loan change and dispatched once that transaction commits.
package signals

import (
	"encoding/json"
	"fmt"

	"library-backend/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdjustmentData is the payload of a TOTAL_QUANTITY_ADJUSTMENT event.
type AdjustmentData struct {
	Delta    int `json:"delta"`
	Quantity int `json:"quantity"`
}

// ReviewData is the payload of a STATE_REVIEW event.
type ReviewData struct {
	Condition domain.ResourceCondition `json:"condition"`
	Quantity  int                      `json:"quantity"`
}

// EventsFor returns the events a closed loan raises. An active loan or a copy
// returned in good condition raises none.
func EventsFor(loan domain.Loan) ([]domain.ResourceEvent, error) {
	if !loan.Status.Closed() || loan.ResourceCondition == nil {
		return nil, nil
	}
	cond := *loan.ResourceCondition
	var (
		eventType string
		payload   interface{}
	)
	switch {
	case cond == domain.ConditionLost:
		eventType = domain.EventTotalQuantityAdjustment
		payload = AdjustmentData{Delta: -loan.Quantity, Quantity: loan.Quantity}
	case cond.NeedsReview():
		eventType = domain.EventStateReview
		payload = ReviewData{Condition: cond, Quantity: loan.Quantity}
	default:
		return nil, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return []domain.ResourceEvent{{
		ResourceID: loan.ResourceID,
		LoanID:     loan.LoanID,
		EventType:  eventType,
		EventData:  datatypes.JSON(b),
	}}, nil
}

// Record writes events inside tx. IDs are assigned by BeforeCreate and written
// back into the slice.
func Record(tx *gorm.DB, events []domain.ResourceEvent) error {
	for i := range events {
		if err := tx.Create(&events[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
