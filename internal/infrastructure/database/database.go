package database

import (
	"library-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres or a pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers such as PgBouncer.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate creates or updates the tables used by the loan core.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Person{},
		&domain.Resource{},
		&domain.Loan{},
		&domain.ResourceEvent{},
	)
}
