package middleware

import (
	"errors"

	"library-backend/internal/domain"
	"library-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// errorKinds maps loan core errors to HTTP status and a stable code for clients.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrResourceNotLoanable, fiber.StatusConflict, "RESOURCE_NOT_LOANABLE"},
	{domain.ErrPersonNotEligible, fiber.StatusUnprocessableEntity, "NOT_ELIGIBLE"},
	{domain.ErrValidation, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrAlreadyClosed, fiber.StatusConflict, "ALREADY_CLOSED"},
	{domain.ErrLoanOverdue, fiber.StatusConflict, "LOAN_OVERDUE"},
	{domain.ErrInvariantViolation, fiber.StatusInternalServerError, "INVARIANT_VIOLATION"},
}

// StatusFor returns the HTTP status an error is reported with.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler is the global error handler. Returns the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	details := map[string]interface{}{}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		for _, k := range errorKinds {
			if !errors.Is(err, k.err) {
				continue
			}
			code = k.status
			details["code"] = k.code
			if code < fiber.StatusInternalServerError {
				message = domain.Detail(err)
			}
			var ie *domain.IneligibleError
			if errors.As(err, &ie) {
				message = "Person is not eligible to borrow"
				details["reason"] = ie.Reason
			}
			break
		}
	}

	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).
			Str("trace_id", GetTraceID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("Request failed")
	}
	return response.Error(c, message, code, details)
}
