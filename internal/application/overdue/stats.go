package overdue

import (
	"math"
	"time"

	"library-backend/internal/domain"
)

// Stats aggregates overdue loans.
type Stats struct {
	TotalOverdue       int            `json:"totalOverdue"`
	AverageDaysOverdue float64        `json:"averageDaysOverdue"`
	ByRange            map[string]int `json:"byRange"`
	ByPersonType       map[string]int `json:"byPersonType"`
}

// Collect builds Stats from loans. personTypes maps person id to person type;
// loans whose person is unknown are counted under "unknown". Loans that are
// not overdue at now are ignored.
func Collect(loans []domain.Loan, personTypes map[string]string, now time.Time) Stats {
	stats := Stats{
		ByRange:      make(map[string]int, len(Ranges)),
		ByPersonType: map[string]int{},
	}
	for _, r := range Ranges {
		stats.ByRange[r] = 0
	}

	totalDays := 0
	for _, l := range loans {
		if !IsOverdue(l, now) {
			continue
		}
		days := DaysOverdue(l, now)
		stats.TotalOverdue++
		totalDays += days
		stats.ByRange[RangeOf(days)]++

		pt, ok := personTypes[l.PersonID.String()]
		if !ok || pt == "" {
			pt = "unknown"
		}
		stats.ByPersonType[pt]++
	}
	if stats.TotalOverdue > 0 {
		stats.AverageDaysOverdue = math.Round(float64(totalDays)/float64(stats.TotalOverdue)*100) / 100
	}
	return stats
}
