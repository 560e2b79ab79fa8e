// Package drivertest opens throwaway databases for package tests.
package drivertest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
)

// OpenSQLite returns a migrated SQLite database living in the test's temp dir.
//
// a single connection keeps writers serialized the way a real unique index would
// arbitrate them, without SQLITE_BUSY noise
func OpenSQLite(t testing.TB) driver.ITransactionalDB {
	t.Helper()

	conn, err := driver.NewSQLiteConn(filepath.Join(t.TempDir(), "course.db"), &driver.DBConfig{MaxConn: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(context.Background()) })

	if err := driver.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}
