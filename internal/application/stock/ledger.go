// Package stock owns the available unit count of resources. Every change to
// available_quantity goes through Ledger as one conditional UPDATE, so two
// concurrent reservations can never both pass the same availability check.
package stock

import (
	"context"
	"errors"
	"fmt"

	"library-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Stock is the quantity view of one resource.
type Stock struct {
	ResourceID        uuid.UUID `json:"resourceId"`
	TotalQuantity     int       `json:"totalQuantity"`
	AvailableQuantity int       `json:"availableQuantity"`
	Available         bool      `json:"available"`
}

type Ledger struct {
	DB *gorm.DB
}

// conn uses tx when the caller is inside a transaction.
func (l *Ledger) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return l.DB.WithContext(ctx)
}

// Stock reads the current quantities of a resource.
func (l *Ledger) Stock(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) (*Stock, error) {
	res, err := l.load(ctx, tx, resourceID)
	if err != nil {
		return nil, err
	}
	return &Stock{
		ResourceID:        res.ResourceID,
		TotalQuantity:     res.TotalQuantity,
		AvailableQuantity: res.AvailableQuantity,
		Available:         res.Available(),
	}, nil
}

// Reserve takes quantity units out of available stock. The check runs in the
// UPDATE itself against the stored value, never against a previously read one.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return domain.Validationf("quantity must be a positive integer")
	}
	res := l.conn(ctx, tx).Model(&domain.Resource{}).
		Where("resource_id = ? AND active = ? AND available_quantity >= ?", resourceID, true, quantity).
		Update("available_quantity", gorm.Expr("available_quantity - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	current, err := l.load(ctx, tx, resourceID)
	if err != nil {
		return err
	}
	if !current.Active {
		return fmt.Errorf("%w: %s", domain.ErrResourceNotLoanable, current.Title)
	}
	return fmt.Errorf("%w: requested %d, available %d", domain.ErrInsufficientStock, quantity, current.AvailableQuantity)
}

// Release puts quantity units back. It refuses to push available above total:
// that can only happen through a bug or a lost update, so it is logged and
// reported instead of clamped.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return domain.Validationf("quantity must be a positive integer")
	}
	res := l.conn(ctx, tx).Model(&domain.Resource{}).
		Where("resource_id = ? AND available_quantity + ? <= total_quantity", resourceID, quantity).
		Update("available_quantity", gorm.Expr("available_quantity + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	current, err := l.load(ctx, tx, resourceID)
	if err != nil {
		return err
	}
	log.Error().
		Str("resource_id", resourceID.String()).
		Int("quantity", quantity).
		Int("available_quantity", current.AvailableQuantity).
		Int("total_quantity", current.TotalQuantity).
		Msg("Stock release would exceed total quantity")
	return fmt.Errorf("%w: releasing %d units of resource %s would exceed its total quantity", domain.ErrInvariantViolation, quantity, resourceID)
}

// AdjustTotalQuantity adds delta (negative when units leave the collection) to
// both the total and the available count. It is the catalogue-side reaction to a
// lost loan and refuses any change that would leave either count negative.
func (l *Ledger) AdjustTotalQuantity(ctx context.Context, resourceID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	res := l.DB.WithContext(ctx).Model(&domain.Resource{}).
		Where("resource_id = ? AND total_quantity + ? >= 0 AND available_quantity + ? >= 0", resourceID, delta, delta).
		Updates(map[string]interface{}{
			"total_quantity":     gorm.Expr("total_quantity + ?", delta),
			"available_quantity": gorm.Expr("available_quantity + ?", delta),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	current, err := l.load(ctx, nil, resourceID)
	if err != nil {
		return err
	}
	log.Error().
		Str("resource_id", resourceID.String()).
		Int("delta", delta).
		Int("available_quantity", current.AvailableQuantity).
		Int("total_quantity", current.TotalQuantity).
		Msg("Total quantity adjustment rejected")
	return fmt.Errorf("%w: adjusting resource %s by %d would leave a negative quantity", domain.ErrInvariantViolation, resourceID, delta)
}

func (l *Ledger) load(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) (*domain.Resource, error) {
	var res domain.Resource
	if err := l.conn(ctx, tx).Where("resource_id = ?", resourceID).First(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("resource %s not found", resourceID)
		}
		return nil, err
	}
	return &res, nil
}
