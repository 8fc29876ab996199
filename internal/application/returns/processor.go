// Package returns closes loans. Marking the loan closed and releasing its
// units happen in one transaction, retried as a whole on transient failures,
// so a loan is never left returned while its stock is still reserved.
package returns

import (
	"context"
	"errors"
	"time"

	"library-backend/internal/application/loans"
	"library-backend/internal/application/signals"
	"library-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Releaser gives units back to available stock inside tx.
type Releaser interface {
	Release(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, quantity int) error
}

type Processor struct {
	DB          *gorm.DB
	Loans       *loans.Service
	Stock       Releaser
	Outbox      *signals.Outbox
	MaxAttempts int
	BaseDelay   time.Duration
	Now         func() time.Time
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

type ReturnInput struct {
	LoanID uuid.UUID
	// ReturnDate defaults to now.
	ReturnDate *time.Time
	// DateOnly marks a ReturnDate given as a plain calendar day.
	DateOnly     bool
	Condition    domain.ResourceCondition
	Observations string
}

// Return records a loan as returned, or lost when the condition is lost.
func (p *Processor) Return(ctx context.Context, in ReturnInput) (*loans.View, error) {
	returned, dateOnly := p.now(), false
	if in.ReturnDate != nil {
		returned, dateOnly = *in.ReturnDate, in.DateOnly
	}
	return p.close(ctx, loans.CloseInput{
		LoanID:       in.LoanID,
		ReturnDate:   returned,
		DateOnly:     dateOnly,
		Condition:    in.Condition,
		Observations: in.Observations,
	})
}

// MarkLost closes a loan that was never brought back.
func (p *Processor) MarkLost(ctx context.Context, loanID uuid.UUID, observations string) (*loans.View, error) {
	return p.close(ctx, loans.CloseInput{
		LoanID:       loanID,
		ReturnDate:   p.now(),
		Condition:    domain.ConditionLost,
		Observations: observations,
	})
}

func (p *Processor) close(ctx context.Context, in loans.CloseInput) (*loans.View, error) {
	// Stored timestamps keep microseconds.
	in.ReturnDate = in.ReturnDate.UTC().Truncate(time.Microsecond)
	var (
		closed *domain.Loan
		events []domain.ResourceEvent
	)

	err := retry(ctx, p.MaxAttempts, p.BaseDelay, func(ctx context.Context, attempt int) error {
		events = nil
		err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			loan, err := p.Loans.CloseTx(ctx, tx, in)
			if err != nil {
				return err
			}
			if err := p.Stock.Release(ctx, tx, loan.ResourceID, loan.Quantity); err != nil {
				return err
			}
			evs, err := signals.EventsFor(*loan)
			if err != nil {
				return err
			}
			if err := signals.Record(tx, evs); err != nil {
				return err
			}
			closed, events = loan, evs
			return nil
		})

		// A commit can succeed even though its acknowledgement was lost. If an
		// earlier attempt already closed the loan exactly as asked, that is success.
		if attempt > 0 && errors.Is(err, domain.ErrAlreadyClosed) {
			if loan, ok := p.closedAsRequested(ctx, in); ok {
				closed = loan
				events = nil
				return nil
			}
		}
		if err != nil && isRetryable(err) {
			log.Warn().Err(err).
				Str("loan_id", in.LoanID.String()).
				Int("attempt", attempt+1).
				Msg("Loan close failed, retrying")
		}
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) {
			log.Error().Err(err).Str("loan_id", in.LoanID.String()).Msg("Loan close aborted by stock invariant")
		}
		return nil, err
	}

	log.Info().
		Str("loan_id", closed.LoanID.String()).
		Str("resource_id", closed.ResourceID.String()).
		Str("status", string(closed.Status)).
		Int("quantity", closed.Quantity).
		Msg("Loan closed")

	p.Outbox.Dispatch(ctx, events)
	v := p.Loans.ViewOf(*closed)
	return &v, nil
}

func (p *Processor) closedAsRequested(ctx context.Context, in loans.CloseInput) (*domain.Loan, bool) {
	v, err := p.Loans.GetLoan(ctx, in.LoanID)
	if err != nil {
		return nil, false
	}
	l := v.Loan
	if l.Status != in.Outcome() || l.ReturnedDate == nil {
		return nil, false
	}
	if !l.ReturnedDate.UTC().Truncate(time.Microsecond).Equal(p.Loans.ReturnedDateFor(l, in)) {
		return nil, false
	}
	if l.ResourceCondition == nil || *l.ResourceCondition != in.Condition {
		return nil, false
	}
	return &l, true
}
