package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/muster/internal/db"
	"github.com/BrandonDHaskell/muster/internal/muster/store"
)

var (
	_ store.Workbook = (*Workbook)(nil)
	_ store.Sheet    = (*Sheet)(nil)
)

// Workbook is the durable store.Workbook. Reads go straight to db; every
// write is funnelled through the single-writer Worker.
type Workbook struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewWorkbook(db *sql.DB, writer *dbpkg.Worker) *Workbook {
	return &Workbook{db: db, writer: writer}
}

func (w *Workbook) Sheet(ctx context.Context, name string) (store.Sheet, error) {
	name = strings.TrimSpace(name)
	if _, err := loadHeader(ctx, w.db, name); err != nil {
		return nil, err
	}
	return &Sheet{db: w.db, writer: w.writer, name: name}, nil
}

func (w *Workbook) EnsureSheet(ctx context.Context, name string, header []string) (store.Sheet, error) {
	name = strings.TrimSpace(name)
	h, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("EnsureSheet encode header: %w", err)
	}

	err = w.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO sheets(name, header_json, created_at_ms)
VALUES (?, ?, ?);
`, name, string(h), time.Now().UTC().UnixMilli()); err != nil {
			return fmt.Errorf("EnsureSheet insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Sheet{db: w.db, writer: w.writer, name: name}, nil
}

// SheetNames lists every sheet, oldest first.
func (w *Workbook) SheetNames(ctx context.Context) ([]string, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT name FROM sheets ORDER BY created_at_ms, name;`)
	if err != nil {
		return nil, fmt.Errorf("SheetNames query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("SheetNames scan: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadHeader(ctx context.Context, q queryer, name string) ([]string, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT header_json FROM sheets WHERE name = ?;`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSheetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load header %q: %w", name, err)
	}
	var header []string
	if err := json.Unmarshal([]byte(raw), &header); err != nil {
		return nil, fmt.Errorf("decode header %q: %w", name, err)
	}
	return header, nil
}
