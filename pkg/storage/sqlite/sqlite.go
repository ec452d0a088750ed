// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fileybot/filey/pkg/storage/sqlstore"
)

// Driver implements storage.Store using SQLite.
type Driver struct {
	*sqlstore.SQLStore
}

// NewDriver creates a new SQLite-backed store. The dbPath can be a file path
// or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	// Foreign keys are off by default in SQLite; the cascade on
	// DeleteDirectoryTree depends on them. The DSN parameter applies the
	// pragma to every pooled connection, not just the first one.
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := sqlstore.New(db, sqlstore.DialectSQLite)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{SQLStore: store}, nil
}
