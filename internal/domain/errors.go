package domain

import (
	"errors"
	"fmt"
)

// Loan core error kinds. Packages wrap them with detail (fmt.Errorf("%w: ...")),
// callers branch with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrPersonNotEligible   = errors.New("person not eligible")
	ErrValidation          = errors.New("validation failed")
	ErrAlreadyClosed       = errors.New("loan already closed")
	ErrLoanOverdue         = errors.New("loan is overdue")
	ErrResourceNotLoanable = errors.New("resource not available for loan")
	ErrInvariantViolation  = errors.New("invariant violation")
)

// IneligibleError carries the user-facing reason a person cannot borrow.
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string {
	return ErrPersonNotEligible.Error() + ": " + e.Reason
}

func (e *IneligibleError) Unwrap() error {
	return ErrPersonNotEligible
}

// Validationf builds an ErrValidation with a message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds an ErrNotFound with a message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Detail strips the kind prefix so the message can be shown to an end user.
func Detail(err error) string {
	var ie *IneligibleError
	if errors.As(err, &ie) {
		return ie.Reason
	}
	msg := err.Error()
	for _, kind := range []error{ErrNotFound, ErrInsufficientStock, ErrValidation, ErrAlreadyClosed, ErrLoanOverdue, ErrResourceNotLoanable} {
		prefix := kind.Error() + ": "
		if errors.Is(err, kind) && len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return msg
}
