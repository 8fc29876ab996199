package loans

import (
	"context"
	"errors"
	"strings"
	"time"

	"library-backend/internal/application/eligibility"
	"library-backend/internal/application/overdue"
	"library-backend/internal/application/stock"
	"library-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultLoanPeriodDays = 15
	DefaultMaxQuantity    = 5
)

// Policy holds the loan rules that come from configuration.
type Policy struct {
	LoanPeriodDays int
	MaxQuantity    int
	// Location decides where a calendar day starts for overdue checks. Nil means UTC.
	Location *time.Location
}

func (p Policy) period() int {
	if p.LoanPeriodDays > 0 {
		return p.LoanPeriodDays
	}
	return DefaultLoanPeriodDays
}

func (p Policy) maxQuantity() int {
	if p.MaxQuantity > 0 {
		return p.MaxQuantity
	}
	return DefaultMaxQuantity
}

type Service struct {
	DB          *gorm.DB
	Ledger      *stock.Ledger
	Eligibility *eligibility.Checker
	Policy      Policy
	Now         func() time.Time
}

// now is the service clock in the policy location.
func (s *Service) now() time.Time {
	t := time.Now()
	if s.Now != nil {
		t = s.Now()
	}
	if s.Policy.Location != nil {
		return t.In(s.Policy.Location)
	}
	return t.UTC()
}

// View is a loan with its derived overdue fields.
type View struct {
	domain.Loan
	IsOverdue   bool `json:"isOverdue"`
	DaysOverdue int  `json:"daysOverdue"`
}

// ViewOf derives the overdue fields at the service clock.
func (s *Service) ViewOf(loan domain.Loan) View {
	now := s.now()
	return View{
		Loan:        loan,
		IsOverdue:   overdue.IsOverdue(loan, now),
		DaysOverdue: overdue.DaysOverdue(loan, now),
	}
}

type CreateInput struct {
	PersonID     uuid.UUID
	ResourceID   uuid.UUID
	Quantity     int
	Observations string
	CreatedBy    *string
}

// CreateLoan checks eligibility, reserves stock and stores the loan in one
// transaction. Any failure rolls back the reservation as well.
func (s *Service) CreateLoan(ctx context.Context, in CreateInput) (*View, error) {
	if in.PersonID == uuid.Nil || in.ResourceID == uuid.Nil {
		return nil, domain.Validationf("personId and resourceId are required")
	}
	if limit := s.Policy.maxQuantity(); in.Quantity < 1 || in.Quantity > limit {
		return nil, domain.Validationf("quantity must be between 1 and %d", limit)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	loan := domain.Loan{
		PersonID:     in.PersonID,
		ResourceID:   in.ResourceID,
		Quantity:     in.Quantity,
		LoanDate:     now,
		DueDate:      now.AddDate(0, 0, s.Policy.period()),
		Status:       domain.LoanActive,
		Observations: strings.TrimSpace(in.Observations),
		CreatedBy:    in.CreatedBy,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Eligibility.Require(ctx, tx, in.PersonID); err != nil {
			return err
		}
		if err := s.Ledger.Reserve(ctx, tx, in.ResourceID, in.Quantity); err != nil {
			return err
		}
		if err := tx.Model(&domain.Resource{}).
			Where("resource_id = ?", in.ResourceID).
			Update("total_loans", gorm.Expr("total_loans + 1")).Error; err != nil {
			return err
		}
		return tx.Create(&loan).Error
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("loan_id", loan.LoanID.String()).
		Str("person_id", loan.PersonID.String()).
		Str("resource_id", loan.ResourceID.String()).
		Int("quantity", loan.Quantity).
		Msg("Loan created")
	v := s.ViewOf(loan)
	return &v, nil
}

// GetLoan returns one loan.
func (s *Service) GetLoan(ctx context.Context, loanID uuid.UUID) (*View, error) {
	loan, err := s.load(ctx, s.DB.WithContext(ctx), loanID, false)
	if err != nil {
		return nil, err
	}
	v := s.ViewOf(*loan)
	return &v, nil
}

type CloseInput struct {
	LoanID     uuid.UUID
	ReturnDate time.Time
	// DateOnly marks a ReturnDate given as a calendar day without a time.
	DateOnly     bool
	Condition    domain.ResourceCondition
	Observations string
}

// Outcome is the terminal status a close with this condition leads to.
func (in CloseInput) Outcome() domain.LoanStatus {
	if in.Condition == domain.ConditionLost {
		return domain.LoanLost
	}
	return domain.LoanReturned
}

// ReturnedDateFor is the instant stored as the loan's returned date. Stored
// timestamps keep microseconds. A plain date on the day the loan was made
// means the loan was returned that day, so it never lands before the loan date.
func (s *Service) ReturnedDateFor(loan domain.Loan, in CloseInput) time.Time {
	returned := in.ReturnDate.UTC().Truncate(time.Microsecond)
	if in.DateOnly && returned.Before(loan.LoanDate) && overdue.SameDay(in.ReturnDate, loan.LoanDate, s.Policy.Location) {
		return loan.LoanDate.UTC().Truncate(time.Microsecond)
	}
	return returned
}

// CloseTx moves an active loan to returned or lost inside tx. Stock is not
// touched here; the returns processor releases it in the same transaction.
func (s *Service) CloseTx(ctx context.Context, tx *gorm.DB, in CloseInput) (*domain.Loan, error) {
	if !in.Condition.Valid() {
		return nil, domain.Validationf("resourceCondition must be one of good, deteriorated, damaged, lost")
	}
	loan, err := s.load(ctx, tx.WithContext(ctx), in.LoanID, true)
	if err != nil {
		return nil, err
	}
	if loan.Status.Closed() {
		return nil, domain.ErrAlreadyClosed
	}

	returned := s.ReturnedDateFor(*loan, in)
	if returned.Before(loan.LoanDate.Truncate(time.Microsecond)) {
		return nil, domain.Validationf("return date cannot be before the loan date")
	}
	if returned.After(s.now()) {
		return nil, domain.Validationf("return date cannot be in the future")
	}

	status := in.Outcome()
	cond := in.Condition
	notes := appendObservations(loan.Observations, in.Observations)
	res := tx.WithContext(ctx).Model(&domain.Loan{}).
		Where("loan_id = ? AND status = ?", loan.LoanID, domain.LoanActive).
		Updates(map[string]interface{}{
			"status":             status,
			"returned_date":      returned,
			"resource_condition": cond,
			"observations":       notes,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrAlreadyClosed
	}

	loan.Status = status
	loan.ReturnedDate = &returned
	loan.ResourceCondition = &cond
	loan.Observations = notes
	return loan, nil
}

// RenewLoan moves the due date of an active, not overdue loan. Without
// newDueDate the loan period restarts from now.
func (s *Service) RenewLoan(ctx context.Context, loanID uuid.UUID, newDueDate *time.Time) (*View, error) {
	now := s.now()
	var renewed *domain.Loan

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loan, err := s.load(ctx, tx, loanID, true)
		if err != nil {
			return err
		}
		if loan.Status.Closed() {
			return domain.ErrAlreadyClosed
		}
		if overdue.IsOverdue(*loan, now) {
			return domain.ErrLoanOverdue
		}

		due := now.AddDate(0, 0, s.Policy.period()).UTC()
		if newDueDate != nil {
			due = newDueDate.UTC()
			if !due.After(now) {
				return domain.Validationf("new due date must be in the future")
			}
		}

		res := tx.Model(&domain.Loan{}).
			Where("loan_id = ? AND status = ?", loanID, domain.LoanActive).
			Updates(map[string]interface{}{
				"due_date":      due,
				"renewal_count": gorm.Expr("renewal_count + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrAlreadyClosed
		}
		loan.DueDate = due
		loan.RenewalCount++
		renewed = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("loan_id", renewed.LoanID.String()).
		Time("due_date", renewed.DueDate).
		Int("renewal_count", renewed.RenewalCount).
		Msg("Loan renewed")
	v := s.ViewOf(*renewed)
	return &v, nil
}

// CanBorrow is the advisory eligibility check shown before a loan is created.
// CreateLoan always repeats it inside its own transaction.
func (s *Service) CanBorrow(ctx context.Context, personID uuid.UUID) (*eligibility.Decision, error) {
	return s.Eligibility.CanBorrow(ctx, nil, personID)
}

func (s *Service) load(ctx context.Context, db *gorm.DB, loanID uuid.UUID, lock bool) (*domain.Loan, error) {
	q := db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var loan domain.Loan
	if err := q.Where("loan_id = ?", loanID).First(&loan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("loan %s not found", loanID)
		}
		return nil, err
	}
	return &loan, nil
}

func appendObservations(existing, note string) string {
	note = strings.TrimSpace(note)
	switch {
	case note == "":
		return existing
	case existing == "":
		return note
	default:
		return existing + "\n" + note
	}
}
