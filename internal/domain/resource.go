package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource holds the stock columns of a catalogued resource. Catalogue metadata
// (categories, authors, locations) is owned elsewhere; only Title is kept for display.
type Resource struct {
	ResourceID        uuid.UUID `gorm:"column:resource_id;type:uuid;primaryKey" json:"id"`
	Title             string    `gorm:"column:title;not null" json:"title"`
	TotalQuantity     int       `gorm:"column:total_quantity;not null;default:0" json:"totalQuantity"`
	AvailableQuantity int       `gorm:"column:available_quantity;not null;default:0" json:"availableQuantity"`
	TotalLoans        int       `gorm:"column:total_loans;not null;default:0" json:"totalLoans"`
	Active            bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt         time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt         time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Resource) TableName() string {
	return "resources"
}

// Available is derived; it is never stored.
func (r Resource) Available() bool {
	return r.AvailableQuantity > 0
}

func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ResourceID == uuid.Nil {
		r.ResourceID = uuid.New()
	}
	return nil
}
