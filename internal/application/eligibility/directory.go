package eligibility

import (
	"context"
	"errors"

	"library-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDirectory reads people and their loans from the database.
type GormDirectory struct {
	DB *gorm.DB
}

// GetPerson locks the person row when called inside a transaction so two loans
// for the same person are checked against the ceiling one at a time.
func (d *GormDirectory) GetPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (*domain.Person, error) {
	q := d.DB.WithContext(ctx)
	if tx != nil {
		q = tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p domain.Person
	if err := q.Where("person_id = ?", personID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("person %s not found", personID)
		}
		return nil, err
	}
	return &p, nil
}

func (d *GormDirectory) CountActiveLoans(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (int, error) {
	q := d.DB.WithContext(ctx)
	if tx != nil {
		q = tx.WithContext(ctx)
	}
	var n int64
	if err := q.Model(&domain.Loan{}).
		Where("person_id = ? AND status = ?", personID, domain.LoanActive).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}
