package eligibility

import (
	"context"
	"fmt"

	"library-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReasonInactive        = "person account is inactive"
	reasonCeilingFmt      = "active loan limit reached (%d of %d)"
	defaultMaxActiveLoans = 3
)

// Policy is the single source of the active-loan ceiling.
type Policy struct {
	MaxActiveLoans int
	// ByPersonType overrides MaxActiveLoans for a person type, e.g. "teacher".
	ByPersonType map[string]int
}

// CeilingFor returns the ceiling that applies to personType.
func (p Policy) CeilingFor(personType string) int {
	if n, ok := p.ByPersonType[personType]; ok && n > 0 {
		return n
	}
	if p.MaxActiveLoans > 0 {
		return p.MaxActiveLoans
	}
	return defaultMaxActiveLoans
}

// Directory is what the checker needs from the person store.
type Directory interface {
	GetPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (*domain.Person, error)
	CountActiveLoans(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (int, error)
}

// Decision is the outcome of CanBorrow. Reason is set when Eligible is false.
type Decision struct {
	Eligible       bool   `json:"eligible"`
	Reason         string `json:"reason,omitempty"`
	ActiveLoans    int    `json:"activeLoans"`
	MaxActiveLoans int    `json:"maxActiveLoans"`
}

type Checker struct {
	Directory Directory
	Policy    Policy
}

// CanBorrow checks, in order, that the person is active and below the ceiling.
// The first failing check decides the reason. A missing person is an error, not a decision.
func (c *Checker) CanBorrow(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (*Decision, error) {
	person, err := c.Directory.GetPerson(ctx, tx, personID)
	if err != nil {
		return nil, err
	}
	ceiling := c.Policy.CeilingFor(person.PersonType)
	if !person.Active {
		return &Decision{Reason: ReasonInactive, MaxActiveLoans: ceiling}, nil
	}

	active, err := c.Directory.CountActiveLoans(ctx, tx, personID)
	if err != nil {
		return nil, err
	}
	d := &Decision{ActiveLoans: active, MaxActiveLoans: ceiling}
	if active >= ceiling {
		d.Reason = fmt.Sprintf(reasonCeilingFmt, active, ceiling)
		return d, nil
	}
	d.Eligible = true
	return d, nil
}

// Require is CanBorrow as an error: nil when eligible, *domain.IneligibleError otherwise.
func (c *Checker) Require(ctx context.Context, tx *gorm.DB, personID uuid.UUID) error {
	d, err := c.CanBorrow(ctx, tx, personID)
	if err != nil {
		return err
	}
	if !d.Eligible {
		return &domain.IneligibleError{Reason: d.Reason}
	}
	return nil
}
