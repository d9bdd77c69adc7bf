package providers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/keshon/piecebot/internal/core"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite keeps one table per gateway with the record serialised as JSON.
type SQLite struct {
	core.NoAliases

	path string

	mu sync.Mutex
	db *sql.DB
}

var _ core.Provider = (*SQLite)(nil)

// NewSQLite returns a provider backed by the database file at path.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

func (p *SQLite) Name() string { return "sqlite" }

// Init opens the database when sqlite is the configured provider. Otherwise
// the file is opened on first use.
func (p *SQLite) Init(ctx context.Context, c *core.Client) error {
	if c.Options.ProviderName != p.Name() {
		return nil
	}
	_, err := p.open(ctx)
	return err
}

func (p *SQLite) open(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db != nil {
		return p.db, nil
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := filepath.Clean(p.path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	p.db = db
	return db, nil
}

func (p *SQLite) Shutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

func (p *SQLite) conn(ctx context.Context, table string) (*sql.DB, string, error) {
	if !tableName.MatchString(table) {
		return nil, "", fmt.Errorf("invalid table name %q", table)
	}
	db, err := p.open(ctx)
	if err != nil {
		return nil, "", err
	}
	return db, `"` + table + `"`, nil
}

// =============================================================================
// Tables
// =============================================================================

func (p *SQLite) HasTable(ctx context.Context, table string) (bool, error) {
	db, _, err := p.conn(ctx, table)
	if err != nil {
		return false, err
	}
	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

func (p *SQLite) CreateTable(ctx context.Context, table string) error {
	db, quoted, err := p.conn(ctx, table)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+quoted+` (id TEXT PRIMARY KEY, data TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (p *SQLite) DeleteTable(ctx context.Context, table string) error {
	db, quoted, err := p.conn(ctx, table)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoted); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}

// =============================================================================
// Reads
// =============================================================================

func (p *SQLite) GetAll(ctx context.Context, table string) (map[string]core.Record, error) {
	db, quoted, err := p.conn(ctx, table)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT id, data FROM `+quoted+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	out := map[string]core.Record{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", table, id, err)
		}
		out[id] = rec
	}
	return out, rows.Err()
}

func (p *SQLite) GetKeys(ctx context.Context, table string) ([]string, error) {
	db, quoted, err := p.conn(ctx, table)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT id FROM `+quoted+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		keys = append(keys, id)
	}
	return keys, rows.Err()
}

func (p *SQLite) Get(ctx context.Context, table, id string) (core.Record, bool, error) {
	db, quoted, err := p.conn(ctx, table)
	if err != nil {
		return nil, false, err
	}
	return p.get(ctx, db, quoted, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *SQLite) get(ctx context.Context, q querier, quoted, id string) (core.Record, bool, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM `+quoted+` WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", id, err)
	}
	rec, err := decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", id, err)
	}
	return rec, true, nil
}

func (p *SQLite) Has(ctx context.Context, table, id string) (bool, error) {
	_, ok, err := p.Get(ctx, table, id)
	return ok, err
}

// =============================================================================
// Writes
// =============================================================================

func (p *SQLite) Create(ctx context.Context, table, id string, data core.Record) error {
	db, quoted, err := p.conn(ctx, table)
	if err != nil {
		return err
	}
	raw, err := encode(withoutNil(data))
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO `+quoted+` (id, data) VALUES (?, ?)`, id, raw); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s/%s: %w", table, id, ErrExists)
		}
		return fmt.Errorf("create %s/%s: %w", table, id, err)
	}
	return nil
}

// Update merges data into the stored record inside one transaction, creating
// it when missing.
func (p *SQLite) Update(ctx context.Context, table, id string, data core.Record) error {
	db, quoted, err := p.conn(ctx, table)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	rec, _, err := p.get(ctx, tx, quoted, id)
	if err != nil {
		return err
	}
	raw, err := encode(merge(rec, data))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+quoted+` (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`, id, raw); err != nil {
		return fmt.Errorf("update %s/%s: %w", table, id, err)
	}
	return tx.Commit()
}

func (p *SQLite) Replace(ctx context.Context, table, id string, data core.Record) error {
	db, quoted, err := p.conn(ctx, table)
	if err != nil {
		return err
	}
	raw, err := encode(withoutNil(data))
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO `+quoted+` (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`, id, raw); err != nil {
		return fmt.Errorf("replace %s/%s: %w", table, id, err)
	}
	return nil
}

func (p *SQLite) Delete(ctx context.Context, table, id string) error {
	db, quoted, err := p.conn(ctx, table)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM `+quoted+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, id, err)
	}
	return nil
}

func encode(rec core.Record) (string, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(raw), nil
}

func decode(data string) (core.Record, error) {
	rec := core.Record{}
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}
