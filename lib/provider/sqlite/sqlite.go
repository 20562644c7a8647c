// Package sqlite implements a durable provider on top of modernc.org/sqlite.
//
// Each store gets its own table named after the store. Values are stored as
// JSON text, insertion order is the rowid order (an upsert keeps the rowid of
// an existing key), and the autoKey sequence lives in a shared meta table.
//
// Use ":memory:" as path for a throwaway database, e.g. in tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/provider/engine"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// KindSQLiteError is the error kind for failures of the database
const KindSQLiteError payload.ErrorKind = "SQLiteError"

// KindSQLiteBusy is the error kind for a database that stayed locked
const KindSQLiteBusy payload.ErrorKind = "SQLiteBusy"

// New opens (or creates) the database at path and returns a provider on top of it
func New(path string, opts ...engine.Option) (*engine.Engine, error) {
	table, err := NewTable(path)
	if err != nil {
		return nil, err
	}
	return engine.New(table, append([]engine.Option{engine.WithErrorKind(KindSQLiteError)}, opts...)...), nil
}

var _ engine.Batcher = (*Table)(nil)

// querier is the part of *sql.DB and *sql.Tx the table runs statements on
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Table is an engine.Table stored in a SQLite database
type Table struct {
	db    *sql.DB
	q     querier // db, or the transaction of a batch
	name  string
	quote string // quoted table name
}

// NewTable opens (or creates) the database at path
func NewTable(path string) (*Table, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// the engine serializes access, and every connection to ":memory:" is a new database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &Table{db: db, q: db}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see engine.Table)
// --------------------------------------------------------------------------

func (t *Table) Init(ctx context.Context, name string) error {
	if name == "" {
		return payload.NewError(payload.KindMissingName, "", "sqlite tables require a store name")
	}
	t.name = name
	t.quote = `"` + strings.ReplaceAll("store_"+name, `"`, `""`) + `"`

	schema := `
	CREATE TABLE IF NOT EXISTS ` + t.quote + ` (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS mkv_meta (
		store    TEXT PRIMARY KEY,
		sequence INTEGER NOT NULL
	);`

	if _, err := t.q.ExecContext(ctx, schema); err != nil {
		return t.wrap("create schema", err)
	}
	return nil
}

func (t *Table) Load(ctx context.Context, key string) (any, bool, error) {
	var raw string
	err := t.q.QueryRowContext(ctx, "SELECT value FROM "+t.quote+" WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, t.wrap("load", err)
	}
	v, err := decode(raw)
	if err != nil {
		return nil, false, t.wrap("decode", err)
	}
	return v, true, nil
}

func (t *Table) Store(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return payload.NewError(payload.KindInvalidValueType, "", "encode value: %v", err)
	}
	_, err = t.q.ExecContext(ctx,
		"INSERT INTO "+t.quote+" (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, string(raw))
	if err != nil {
		return t.wrap("store", err)
	}
	return nil
}

func (t *Table) Delete(ctx context.Context, key string) (bool, error) {
	res, err := t.q.ExecContext(ctx, "DELETE FROM "+t.quote+" WHERE key = ?", key)
	if err != nil {
		return false, t.wrap("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, t.wrap("delete", err)
	}
	return n > 0, nil
}

func (t *Table) Range(ctx context.Context, fn func(key string, value any) bool) error {
	rows, err := t.q.QueryContext(ctx, "SELECT key, value FROM "+t.quote+" ORDER BY rowid")
	if err != nil {
		return t.wrap("range", err)
	}

	// read everything first so fn never runs while the connection is busy
	type row struct{ key, raw string }
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key, &r.raw); err != nil {
			rows.Close()
			return t.wrap("range", err)
		}
		all = append(all, r)
	}
	if err := rows.Close(); err != nil {
		return t.wrap("range", err)
	}
	if err := rows.Err(); err != nil {
		return t.wrap("range", err)
	}

	for _, r := range all {
		v, err := decode(r.raw)
		if err != nil {
			return t.wrap("decode", err)
		}
		if !fn(r.key, v) {
			break
		}
	}
	return nil
}

func (t *Table) Len(ctx context.Context) (int, error) {
	var n int
	if err := t.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.quote).Scan(&n); err != nil {
		return 0, t.wrap("count", err)
	}
	return n, nil
}

func (t *Table) Clear(ctx context.Context) error {
	if _, ok := t.q.(*sql.Tx); ok {
		return fmt.Errorf("%s clear: not allowed inside a batch", t.name)
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return t.wrap("clear", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.quote); err != nil {
		return t.wrap("clear", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM mkv_meta WHERE store = ?", t.name); err != nil {
		return t.wrap("clear", err)
	}
	if err := tx.Commit(); err != nil {
		return t.wrap("clear", err)
	}
	return nil
}

func (t *Table) Sequence(ctx context.Context) (uint64, error) {
	var seq int64
	err := t.q.QueryRowContext(ctx, "SELECT sequence FROM mkv_meta WHERE store = ?", t.name).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, t.wrap("sequence", err)
	}
	return uint64(seq), nil
}

func (t *Table) SetSequence(ctx context.Context, seq uint64) error {
	_, err := t.q.ExecContext(ctx,
		"INSERT INTO mkv_meta (store, sequence) VALUES (?, ?) ON CONFLICT(store) DO UPDATE SET sequence = excluded.sequence",
		t.name, int64(seq))
	if err != nil {
		return t.wrap("sequence", err)
	}
	return nil
}

func (t *Table) Close() error {
	return t.db.Close()
}

// Batch runs fn inside a transaction (docu see engine.Batcher)
func (t *Table) Batch(ctx context.Context, fn func(tbl engine.Table) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return t.wrap("begin", err)
	}
	defer tx.Rollback()

	if err := fn(&Table{db: t.db, q: tx, name: t.name, quote: t.quote}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return t.wrap("commit", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// wrap classifies a database error
func (t *Table) wrap(op string, err error) error {
	if IsBusyError(err) {
		return payload.NewError(KindSQLiteBusy, "", "%s %s: %v", t.name, op, err)
	}
	return fmt.Errorf("%s %s: %w", t.name, op, err)
}

// IsBusyError returns true if the error is a SQLITE_BUSY error
func IsBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_BUSY
	}
	return false
}
