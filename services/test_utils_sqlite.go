package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupSQLiteTestDB creates an in-memory SQLite database for testing.
// Note: SQLite doesn't support PostgreSQL-specific features like uuid,
// so the tables are created with simplified column types.
func SetupSQLiteTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// A fresh :memory: database exists per connection; cap the pool at one
	// so every goroutine in a test sees the same database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to access underlying sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.Exec(`
		CREATE TABLE IF NOT EXISTS login_requests (
			id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			account TEXT NOT NULL,
			password TEXT NOT NULL,
			otp_code TEXT,
			status TEXT NOT NULL CHECK(status IN ('pending', 'pending_otp', 'approved', 'rejected', 'expired')),
			note TEXT,
			chrome_profile TEXT,
			link_name TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		)
	`).Error
	if err != nil {
		t.Fatalf("Failed to create login_requests table: %v", err)
	}

	err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			action TEXT NOT NULL,
			actor TEXT NOT NULL CHECK(actor IN ('visitor', 'admin', 'system')),
			actor_id TEXT,
			login_id TEXT,
			payload_summary TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`).Error
	if err != nil {
		t.Fatalf("Failed to create audit_logs table: %v", err)
	}

	t.Cleanup(func() {
		CleanupTestData(t, db)
	})

	return db
}

// CleanupTestData removes all rows written by a test
func CleanupTestData(t *testing.T, db *gorm.DB) {
	for _, table := range []string{"login_requests", "audit_logs"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Logf("Failed to clean up table %s: %v", table, err)
		}
	}
}
