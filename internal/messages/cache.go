package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrCacheEmpty is returned by Cache.Load when nothing has been stored yet.
var ErrCacheEmpty = errors.New("message cache is empty")

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	seq        INTEGER PRIMARY KEY,
	id         TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	user_name  TEXT NOT NULL,
	text       TEXT NOT NULL,
	timestamp  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cache_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const metaFetchedAt = "fetched_at"

// Cache persists the last fetched message set in SQLite.
//
// The whole set is replaced atomically on every Store, preserving the
// order the API returned.
type Cache struct {
	db   *sql.DB
	path string
}

// OpenCache opens or creates the cache database at path. The special path
// ":memory:" keeps the cache in memory.
func OpenCache(path string) (*Cache, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	// An in-memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return &Cache{db: db, path: path}, nil
}

// Path returns the database path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Store replaces the cached set with records and stamps it with fetchedAt.
func (c *Cache) Store(ctx context.Context, records []Record, fetchedAt time.Time) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (seq, id, user_id, user_name, text, timestamp) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err = stmt.ExecContext(ctx, i, r.ID, r.UserID, r.UserName, r.Text, r.Timestamp); err != nil {
			return fmt.Errorf("inserting message %s: %w", r.ID, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO cache_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaFetchedAt, strconv.FormatInt(fetchedAt.UnixNano(), 10)); err != nil {
		return fmt.Errorf("stamping cache: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing cache: %w", err)
	}
	return nil
}

// Load returns the cached records in their original order and when they
// were fetched. It returns ErrCacheEmpty if Store was never called.
func (c *Cache) Load(ctx context.Context) ([]Record, time.Time, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM cache_meta WHERE key = ?`, metaFetchedAt).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrCacheEmpty
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache stamp: %w", err)
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing cache stamp %q: %w", raw, err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, user_id, user_name, text, timestamp FROM messages ORDER BY seq`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.UserName, &r.Text, &r.Timestamp); err != nil {
			return nil, time.Time{}, fmt.Errorf("scanning message: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterating messages: %w", err)
	}
	return records, time.Unix(0, nanos), nil
}
