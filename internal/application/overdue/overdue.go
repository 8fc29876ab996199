// Package overdue derives the overdue label and statistics of loans from an
// injected "now". Nothing here reads a clock or touches storage.
package overdue

import (
	"math"
	"time"

	"library-backend/internal/domain"
)

const day = 24 * time.Hour

// Day ranges used by the overdue statistics.
const (
	Range1To7   = "1-7"
	Range8To14  = "8-14"
	Range15To30 = "15-30"
	Range30Plus = "30+"
)

// Ranges lists the buckets in display order.
var Ranges = []string{Range1To7, Range8To14, Range15To30, Range30Plus}

// IsOverdue is true for an active loan whose due date's calendar day is before now's.
// Both dates are compared in now's location.
func IsOverdue(loan domain.Loan, now time.Time) bool {
	if loan.Status != domain.LoanActive {
		return false
	}
	return dateOf(now, now.Location()).After(dateOf(loan.DueDate, now.Location()))
}

// DaysOverdue is the number of whole days since the due date, never negative.
// Closed loans are never overdue.
func DaysOverdue(loan domain.Loan, now time.Time) int {
	if loan.Status != domain.LoanActive {
		return 0
	}
	d := now.Sub(loan.DueDate)
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d.Hours() / 24))
}

// RangeOf returns the bucket for an overdue loan. A loan overdue by less than a
// full day falls into the first bucket.
func RangeOf(days int) string {
	switch {
	case days <= 7:
		return Range1To7
	case days <= 14:
		return Range8To14
	case days <= 30:
		return Range15To30
	default:
		return Range30Plus
	}
}

// StartOfDay is midnight of t's calendar day in t's location. Loans due before it are overdue.
func StartOfDay(t time.Time) time.Time {
	return dateOf(t, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in loc (UTC when nil).
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	return dateOf(a, loc).Equal(dateOf(b, loc))
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
