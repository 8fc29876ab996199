package loans

import (
	"context"
	"time"

	"library-backend/internal/application/overdue"
	"library-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Sort keys accepted by List.
const (
	SortLoanDate    = "loanDate"
	SortDueDate     = "dueDate"
	SortDaysOverdue = "daysOverdue"
)

// ListFilter narrows List. Nil fields are not filtered on. DateFrom and DateTo
// bound the loan date, both inclusive.
type ListFilter struct {
	Status     *domain.LoanStatus
	IsOverdue  *bool
	PersonID   *uuid.UUID
	ResourceID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	Limit      int
	SortBy     string
	SortDesc   bool
}

// Page is one page of List results.
type Page struct {
	Items      []View `json:"items"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int64  `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// Normalize fills in paging defaults and caps the page size.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	switch f.SortBy {
	case SortLoanDate, SortDueDate, SortDaysOverdue:
	default:
		f.SortBy = SortLoanDate
		f.SortDesc = true
	}
}

// overdueBoundary is the first instant that is not overdue today, in UTC for
// comparison with stored dates.
func (s *Service) overdueBoundary() time.Time {
	return overdue.StartOfDay(s.now()).UTC()
}

// List returns loans matching f. Overdue is evaluated at the service clock,
// the same way ViewOf derives it.
func (s *Service) List(ctx context.Context, f ListFilter) (*Page, error) {
	f.Normalize()

	var total int64
	if err := s.filtered(s.DB.WithContext(ctx).Model(&domain.Loan{}), f).Count(&total).Error; err != nil {
		return nil, err
	}

	var loans []domain.Loan
	if err := s.filtered(s.DB.WithContext(ctx), f).Order(orderClause(f)).
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&loans).Error; err != nil {
		return nil, err
	}

	items := make([]View, len(loans))
	for i, l := range loans {
		items[i] = s.ViewOf(l)
	}
	pages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return &Page{Items: items, Page: f.Page, Limit: f.Limit, Total: total, TotalPages: pages}, nil
}

func (s *Service) filtered(q *gorm.DB, f ListFilter) *gorm.DB {
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.PersonID != nil {
		q = q.Where("person_id = ?", *f.PersonID)
	}
	if f.ResourceID != nil {
		q = q.Where("resource_id = ?", *f.ResourceID)
	}
	if f.DateFrom != nil {
		q = q.Where("loan_date >= ?", f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		q = q.Where("loan_date <= ?", f.DateTo.UTC())
	}
	if f.IsOverdue != nil {
		boundary := s.overdueBoundary()
		if *f.IsOverdue {
			q = q.Where("status = ? AND due_date < ?", domain.LoanActive, boundary)
		} else {
			q = q.Where("(status <> ? OR due_date >= ?)", domain.LoanActive, boundary)
		}
	}
	return q
}

// orderClause maps a sort key to SQL. Days overdue grows as the due date gets
// older, so it sorts on due_date in the opposite direction.
func orderClause(f ListFilter) string {
	col, desc := "loan_date", f.SortDesc
	switch f.SortBy {
	case SortDueDate:
		col = "due_date"
	case SortDaysOverdue:
		col, desc = "due_date", !f.SortDesc
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

// OverdueStats aggregates the loans overdue right now.
func (s *Service) OverdueStats(ctx context.Context) (*overdue.Stats, error) {
	var loans []domain.Loan
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND due_date < ?", domain.LoanActive, s.overdueBoundary()).
		Find(&loans).Error; err != nil {
		return nil, err
	}

	personTypes := map[string]string{}
	if len(loans) > 0 {
		seen := map[uuid.UUID]bool{}
		ids := make([]uuid.UUID, 0, len(loans))
		for _, l := range loans {
			if !seen[l.PersonID] {
				seen[l.PersonID] = true
				ids = append(ids, l.PersonID)
			}
		}
		var people []domain.Person
		if err := s.DB.WithContext(ctx).Where("person_id IN ?", ids).Select("person_id, person_type").Find(&people).Error; err != nil {
			return nil, err
		}
		for _, p := range people {
			personTypes[p.PersonID.String()] = p.PersonType
		}
	}

	stats := overdue.Collect(loans, personTypes, s.now())
	return &stats, nil
}

// Summary counts loans per status, with overdue split out of active.
type Summary struct {
	Active   int64 `json:"active"`
	Overdue  int64 `json:"overdue"`
	Returned int64 `json:"returned"`
	Lost     int64 `json:"lost"`
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var rows []struct {
		Status domain.LoanStatus
		N      int64
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Loan{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	var sum Summary
	for _, r := range rows {
		switch r.Status {
		case domain.LoanActive:
			sum.Active = r.N
		case domain.LoanReturned:
			sum.Returned = r.N
		case domain.LoanLost:
			sum.Lost = r.N
		}
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Loan{}).
		Where("status = ? AND due_date < ?", domain.LoanActive, s.overdueBoundary()).
		Count(&sum.Overdue).Error; err != nil {
		return nil, err
	}
	return &sum, nil
}
