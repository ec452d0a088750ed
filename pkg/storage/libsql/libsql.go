// Package libsql provides a libSQL-backed storage driver for remote
// sqld/Turso databases.
package libsql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/tursodatabase/go-libsql" // register the libSQL driver as "libsql"

	"github.com/fileybot/filey/pkg/storage/sqlstore"
)

// Driver implements storage.Store using libSQL. It speaks the SQLite dialect
// over the wire, so it shares the sqlite query shapes.
type Driver struct {
	*sqlstore.SQLStore
}

// NewDriver creates a new libSQL-backed store. The url is a libsql:// or
// https:// database URL, with the auth token embedded as a query parameter.
func NewDriver(ctx context.Context, url string) (*Driver, error) {
	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := sqlstore.New(db, sqlstore.DialectSQLite)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{SQLStore: store}, nil
}
