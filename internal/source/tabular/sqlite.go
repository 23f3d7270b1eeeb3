package tabular

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/waveform80/structa/internal/pattern"
)

// SQLiteLoader reads every user table of a SQLite database, one record per
// row. Supported extensions: .sqlite .db .sqlite3.
type SQLiteLoader struct {
	cfg Config
}

func NewSQLiteLoader(cfg Config) *SQLiteLoader { return &SQLiteLoader{cfg: cfg} }

func (l *SQLiteLoader) Extensions() []string { return []string{".sqlite", ".db", ".sqlite3"} }

func (l *SQLiteLoader) Load(ctx context.Context, absPath string) ([]any, error) {
	slog.Debug("loading sqlite database", "path", absPath)

	dsn := fmt.Sprintf("file:%s?mode=ro", absPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tables, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, err
	}
	defer tables.Close()

	var names []string
	for tables.Next() {
		var table string
		if err := tables.Scan(&table); err != nil {
			continue
		}
		names = append(names, table)
	}
	if err := tables.Err(); err != nil {
		return nil, err
	}

	var all []any
	limit := l.cfg.maxRows()
	for _, table := range names {
		rows, err := l.loadTable(ctx, db, table, limit-len(all))
		if err != nil {
			slog.Warn("skipping table", "table", table, "err", err)
			continue
		}
		all = append(all, rows...)
		if len(all) >= limit {
			break
		}
	}
	return all, nil
}

func (l *SQLiteLoader) loadTable(ctx context.Context, db *sql.DB, table string, limit int) ([]any, error) {
	if limit <= 0 {
		return nil, nil
	}
	r, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %q`, table))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	cols, err := r.Columns()
	if err != nil {
		return nil, err
	}
	var rows []any
	for r.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := r.Scan(ptrs...); err != nil {
			continue
		}
		values := make([]any, len(cols))
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			values[i] = pattern.Normalize(v)
		}
		rows = append(rows, pattern.NewNamedRecord(append([]string{}, cols...), values))
		if len(rows) >= limit {
			break
		}
	}
	return rows, r.Err()
}
