// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/configs/db/migration"
	"github.com/go-petr/sca-bank/pkg/dbpkg"
)

// ConfigPath is the location of app.env relative to a package two levels below the module root.
const ConfigPath = "../../configs"

var (
	migrateOnce sync.Once
	migrateErr  error
)

// Context returns a context carrying a logger that discards its output.
func Context() context.Context {
	logger := zerolog.New(io.Discard)
	return logger.WithContext(context.Background())
}

func migrate(t *testing.T, db *sql.DB) {
	t.Helper()

	migrateOnce.Do(func() {
		migrateErr = dbpkg.Migrate(db, migration.FS)
	})

	if migrateErr != nil {
		t.Fatalf("dbpkg.Migrate returned error: %v", migrateErr)
	}
}

// SetupDB sets up a connection with a migrated database for testing.
//
// Tests sharing the database must seed their own users and accounts, since
// rows are not removed afterwards.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	migrate(t, db)

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// SetupTX sets up a database transaction to be used in tests.
//
// Once the tests are done it will rollback the transaction.
func SetupTX(t *testing.T, driver, source string) *sql.Tx {
	t.Helper()

	db := SetupDB(t, driver, source)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("db.Begin() failed: %v", err)
	}

	// Registered after SetupDB's cleanup, so it runs before the db is closed.
	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil {
			t.Errorf("tx.Rollback() failed: %v", err)
		}
	})

	return tx
}
