package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/muster/internal/db"
	"github.com/BrandonDHaskell/muster/internal/muster/store"
)

// Sheet stores rows in sheet_rows with cells and notes as JSON text.
type Sheet struct {
	db     *sql.DB
	writer *dbpkg.Worker
	name   string
}

func (s *Sheet) Name() string { return s.name }

func (s *Sheet) Snapshot(ctx context.Context) (store.Snapshot, error) {
	header, err := loadHeader(ctx, s.db, s.name)
	if err != nil {
		return store.Snapshot{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT row_index, cells_json, notes_json, version
FROM sheet_rows
WHERE sheet = ?
ORDER BY row_index;
`, s.name)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("Snapshot query %q: %w", s.name, err)
	}
	defer rows.Close()

	snap := store.Snapshot{Header: header}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("Snapshot %q: %w", s.name, err)
		}
		snap.Rows = append(snap.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return store.Snapshot{}, fmt.Errorf("Snapshot rows %q: %w", s.name, err)
	}
	return snap, nil
}

func (s *Sheet) AppendRow(ctx context.Context, cells []string) (int, error) {
	raw, err := json.Marshal(cells)
	if err != nil {
		return 0, fmt.Errorf("AppendRow encode: %w", err)
	}

	var idx int
	err = s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT next_row_index FROM sheets WHERE name = ?;`, s.name,
		).Scan(&idx)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrSheetNotFound
		}
		if err != nil {
			return fmt.Errorf("AppendRow next index: %w", err)
		}

		now := time.Now().UTC().UnixMilli()
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sheet_rows(sheet, row_index, cells_json, version, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, 1, ?, ?);
`, s.name, idx, string(raw), now, now); err != nil {
			return fmt.Errorf("AppendRow insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE sheets SET next_row_index = ? WHERE name = ?;`, idx+1, s.name,
		); err != nil {
			return fmt.Errorf("AppendRow bump index: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return idx, nil
}

func (s *Sheet) WriteCell(ctx context.Context, row, col int, value string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		r, width, err := s.loadRow(ctx, tx, row)
		if err != nil {
			return err
		}
		if err := setCell(&r, width, col, value); err != nil {
			return err
		}
		return s.saveCells(ctx, tx, r, r.Version)
	})
}

func (s *Sheet) CompareAndWrite(ctx context.Context, row int, version int64, cells map[int]string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		r, width, err := s.loadRow(ctx, tx, row)
		if err != nil {
			return err
		}
		if r.Version != version {
			return store.ErrVersionConflict
		}
		for col, v := range cells {
			if err := setCell(&r, width, col, v); err != nil {
				return err
			}
		}
		return s.saveCells(ctx, tx, r, version)
	})
}

func (s *Sheet) SetNote(ctx context.Context, row, col int, note string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		r, width, err := s.loadRow(ctx, tx, row)
		if err != nil {
			return err
		}
		if col < 0 || col >= width {
			return store.ErrColumnRange
		}
		if r.Notes == nil {
			r.Notes = make(map[int]string)
		}
		r.Notes[col] = note

		raw, err := json.Marshal(r.Notes)
		if err != nil {
			return fmt.Errorf("SetNote encode: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE sheet_rows SET notes_json = ?, updated_at_ms = ?
WHERE sheet = ? AND row_index = ?;
`, string(raw), time.Now().UTC().UnixMilli(), s.name, row); err != nil {
			return fmt.Errorf("SetNote update: %w", err)
		}
		return nil
	})
}

func (s *Sheet) DeleteRows(ctx context.Context, match func(store.Row) bool) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
SELECT row_index, cells_json, notes_json, version
FROM sheet_rows WHERE sheet = ? ORDER BY row_index;
`, s.name)
		if err != nil {
			return fmt.Errorf("DeleteRows query: %w", err)
		}

		var doomed []int
		for rows.Next() {
			r, err := scanRow(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("DeleteRows: %w", err)
			}
			if match(r) {
				doomed = append(doomed, r.Index)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("DeleteRows rows: %w", err)
		}

		for _, idx := range doomed {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM sheet_rows WHERE sheet = ? AND row_index = ?;`, s.name, idx)
			if err != nil {
				return fmt.Errorf("DeleteRows delete %d: %w", idx, err)
			}
			n, _ := res.RowsAffected()
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// loadRow reads one row inside tx and returns it with the header width.
func (s *Sheet) loadRow(ctx context.Context, tx *sql.Tx, row int) (store.Row, int, error) {
	header, err := loadHeader(ctx, tx, s.name)
	if err != nil {
		return store.Row{}, 0, err
	}

	var cellsRaw, notesRaw string
	var version int64
	err = tx.QueryRowContext(ctx, `
SELECT cells_json, notes_json, version FROM sheet_rows
WHERE sheet = ? AND row_index = ?;
`, s.name, row).Scan(&cellsRaw, &notesRaw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Row{}, 0, store.ErrRowNotFound
	}
	if err != nil {
		return store.Row{}, 0, fmt.Errorf("load row %d: %w", row, err)
	}

	r, err := decodeRow(row, cellsRaw, notesRaw, version)
	if err != nil {
		return store.Row{}, 0, err
	}
	return r, len(header), nil
}

func (s *Sheet) saveCells(ctx context.Context, tx *sql.Tx, r store.Row, version int64) error {
	raw, err := json.Marshal(r.Cells)
	if err != nil {
		return fmt.Errorf("encode cells: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
UPDATE sheet_rows
SET cells_json = ?, version = version + 1, updated_at_ms = ?
WHERE sheet = ? AND row_index = ? AND version = ?;
`, string(raw), time.Now().UTC().UnixMilli(), s.name, r.Index, version)
	if err != nil {
		return fmt.Errorf("update row %d: %w", r.Index, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(sc rowScanner) (store.Row, error) {
	var (
		idx                int
		cellsRaw, notesRaw string
		version            int64
	)
	if err := sc.Scan(&idx, &cellsRaw, &notesRaw, &version); err != nil {
		return store.Row{}, err
	}
	return decodeRow(idx, cellsRaw, notesRaw, version)
}

func decodeRow(idx int, cellsRaw, notesRaw string, version int64) (store.Row, error) {
	r := store.Row{Index: idx, Version: version}
	if err := json.Unmarshal([]byte(cellsRaw), &r.Cells); err != nil {
		return store.Row{}, fmt.Errorf("decode cells row %d: %w", idx, err)
	}
	if notesRaw != "" && notesRaw != "{}" {
		if err := json.Unmarshal([]byte(notesRaw), &r.Notes); err != nil {
			return store.Row{}, fmt.Errorf("decode notes row %d: %w", idx, err)
		}
	}
	return r, nil
}

func setCell(r *store.Row, width, col int, value string) error {
	if col < 0 || col >= width {
		return store.ErrColumnRange
	}
	for len(r.Cells) <= col {
		r.Cells = append(r.Cells, "")
	}
	r.Cells[col] = value
	return nil
}
