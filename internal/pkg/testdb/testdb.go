// Package testdb opens a migrated in-memory database for tests.
package testdb

import (
	"fmt"
	"testing"
	"time"

	"library-backend/internal/domain"
	"library-backend/internal/infrastructure/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a private in-memory sqlite database. It is limited to a single
// connection, so concurrent transactions run one after the other the way row
// locks serialise them on Postgres.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Resource inserts a resource with total and available units.
func Resource(t *testing.T, db *gorm.DB, total, available int) domain.Resource {
	t.Helper()
	res := domain.Resource{
		Title:             "Cien años de soledad",
		TotalQuantity:     total,
		AvailableQuantity: available,
		Active:            true,
	}
	require.NoError(t, db.Create(&res).Error)
	return res
}

// Person inserts an active person of the given type.
func Person(t *testing.T, db *gorm.DB, personType string) domain.Person {
	t.Helper()
	p := domain.Person{FullName: "Ana Torres", PersonType: personType, Active: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// ActiveLoan inserts an active loan directly, without touching stock.
func ActiveLoan(t *testing.T, db *gorm.DB, personID, resourceID uuid.UUID, quantity int, loanDate time.Time, periodDays int) domain.Loan {
	t.Helper()
	loan := domain.Loan{
		PersonID:   personID,
		ResourceID: resourceID,
		Quantity:   quantity,
		LoanDate:   loanDate,
		DueDate:    loanDate.AddDate(0, 0, periodDays),
		Status:     domain.LoanActive,
	}
	require.NoError(t, db.Create(&loan).Error)
	return loan
}

// Reload reads the current stored state of a resource.
func Reload(t *testing.T, db *gorm.DB, resourceID uuid.UUID) domain.Resource {
	t.Helper()
	var res domain.Resource
	require.NoError(t, db.Where("resource_id = ?", resourceID).First(&res).Error)
	return res
}
