package validation

import (
	"testing"
	"time"
	_ "time/tzdata"

	"library-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID(t *testing.T) {
	_, err := UUID("personId", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "personId is required")

	_, err = UUID("personId", "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrValidation)

	id, err := UUID("personId", " 550e8400-e29b-41d4-a716-446655440000 ")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())

	opt, err := OptionalUUID("resourceId", "")
	require.NoError(t, err)
	assert.Nil(t, opt)
}

func TestTime(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)

	d, err := Time("dateFrom", "2025-03-01", bogota)
	require.NoError(t, err)
	assert.True(t, d.Equal(time.Date(2025, 3, 1, 5, 0, 0, 0, time.UTC)))

	ts, err := Time("returnDate", "2025-03-01T10:30:00Z", bogota)
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)))

	none, err := Time("dueDate", "", nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = Time("dueDate", "03/01/2025", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIsDate(t *testing.T) {
	assert.True(t, IsDate("2025-03-20"))
	assert.True(t, IsDate(" 2025-03-20 "))
	assert.False(t, IsDate("2025-03-20T00:00:00Z"))
	assert.False(t, IsDate(""))
}

func TestPositiveIntAndBool(t *testing.T) {
	n, err := PositiveInt("page", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = PositiveInt("page", "0", 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	b, err := OptionalBool("isOverdue", "true")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, *b)

	_, err = OptionalBool("isOverdue", "maybe")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOneOf(t *testing.T) {
	assert.NoError(t, OneOf("sortOrder", "", "asc", "desc"))
	assert.NoError(t, OneOf("sortOrder", "asc", "asc", "desc"))
	err := OneOf("sortOrder", "up", "asc", "desc")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "asc, desc")
}
