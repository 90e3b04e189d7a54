// Package sqlite implements store.Driver on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/tripsense/store"
)

// DB stores each document as a single row in the document table.
type DB struct {
	db *sql.DB
}

// NewDB opens (and if needed creates) the SQLite database at the given DSN.
//
// Connection settings:
// - busy_timeout prevents immediate SQLITE_BUSY under concurrent access.
// - WAL journal mode is the recommended mode for most applications.
// - With the `modernc.org/sqlite` driver, each pragma must be prefixed with `_pragma=`.
func NewDB(dsn string) (store.Driver, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", dsn+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", dsn)
	}

	// Single connection is optimal for SQLite with WAL; documents are tiny
	// and all writers already serialize at the component level.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)

	driver := &DB{db: sqliteDB}
	if err := driver.migrate(context.Background()); err != nil {
		_ = sqliteDB.Close()
		return nil, errors.Wrap(err, "failed to migrate document table")
	}
	return driver, nil
}

func (d *DB) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS document (
			name TEXT PRIMARY KEY,
			blob BLOB NOT NULL,
			updated_ts BIGINT NOT NULL
		)
	`)
	return err
}

// LoadDocument returns the stored blob for name, or store.ErrNotFound.
func (d *DB) LoadDocument(ctx context.Context, name string) ([]byte, error) {
	var blob []byte
	err := d.db.QueryRowContext(ctx, "SELECT blob FROM document WHERE name = ?", name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load document %s", name)
	}
	return blob, nil
}

// SaveDocument replaces the stored blob for name.
func (d *DB) SaveDocument(ctx context.Context, name string, data []byte) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO document (name, blob, updated_ts) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET blob = excluded.blob, updated_ts = excluded.updated_ts
	`, name, data, time.Now().Unix())
	if err != nil {
		return errors.Wrapf(err, "failed to save document %s", name)
	}
	return nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}
