package validation

import (
	"strconv"
	"strings"
	"time"

	"library-backend/internal/domain"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// UUID parses a required uuid field.
func UUID(field, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, domain.Validationf("%s is required", field)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, domain.Validationf("%s must be a valid UUID", field)
	}
	return id, nil
}

// OptionalUUID parses a uuid field that may be empty.
func OptionalUUID(field, s string) (*uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := UUID(field, s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Time accepts RFC 3339 timestamps or plain dates. A plain date means the
// start of that day in loc.
func Time(field, s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return &t, nil
	}
	return nil, domain.Validationf("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", field)
}

// IsDate reports whether s is a plain YYYY-MM-DD date without a time of day.
func IsDate(s string) bool {
	_, err := time.Parse(dateLayout, strings.TrimSpace(s))
	return err == nil
}

// PositiveInt parses an optional query integer; empty yields def.
func PositiveInt(field, s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, domain.Validationf("%s must be a positive integer", field)
	}
	return n, nil
}

// OptionalBool parses "true"/"false"; empty yields nil.
func OptionalBool(field, s string) (*bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, domain.Validationf("%s must be true or false", field)
	}
	return &b, nil
}

// OneOf checks s against the allowed values; empty is allowed.
func OneOf(field, s string, allowed ...string) error {
	if s == "" {
		return nil
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return domain.Validationf("%s must be one of %s", field, strings.Join(allowed, ", "))
}
