package store

import (
	"context"
	"errors"
)

var (
	ErrSheetNotFound   = errors.New("sheet not found")
	ErrRowNotFound     = errors.New("row not found")
	ErrVersionConflict = errors.New("row version conflict")
	ErrColumnRange     = errors.New("column out of range")
)

// Row is one data row of a sheet. Index is assigned on append, starts at 1
// and is never reused, so it orders rows by recency. Version increments on
// every cell write and backs CompareAndWrite.
type Row struct {
	Index   int
	Cells   []string
	Notes   map[int]string
	Version int64
}

// Cell returns the value at col, or "" when col is outside the row.
func (r Row) Cell(col int) string {
	if col < 0 || col >= len(r.Cells) {
		return ""
	}
	return r.Cells[col]
}

func (r Row) clone() Row {
	out := Row{Index: r.Index, Version: r.Version}
	out.Cells = append([]string(nil), r.Cells...)
	if len(r.Notes) > 0 {
		out.Notes = make(map[int]string, len(r.Notes))
		for k, v := range r.Notes {
			out.Notes[k] = v
		}
	}
	return out
}

// Snapshot is a point-in-time copy of a sheet. Mutating it never touches the
// underlying store.
type Snapshot struct {
	Header []string
	Rows   []Row
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Header: append([]string(nil), s.Header...)}
	out.Rows = make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		out.Rows[i] = r.clone()
	}
	return out
}

// Sheet is a header-addressed, append-mostly table. Columns are positional;
// callers resolve positions from the header on every operation.
type Sheet interface {
	Name() string
	Snapshot(ctx context.Context) (Snapshot, error)
	AppendRow(ctx context.Context, cells []string) (int, error)
	WriteCell(ctx context.Context, row, col int, value string) error
	// CompareAndWrite applies all cells atomically if the row is still at
	// version, otherwise it returns ErrVersionConflict.
	CompareAndWrite(ctx context.Context, row int, version int64, cells map[int]string) error
	SetNote(ctx context.Context, row, col int, note string) error
	// DeleteRows removes every row for which match returns true. Retention only.
	DeleteRows(ctx context.Context, match func(Row) bool) (int64, error)
}

type Workbook interface {
	Sheet(ctx context.Context, name string) (Sheet, error)
	// EnsureSheet returns the named sheet, creating it with header if absent.
	EnsureSheet(ctx context.Context, name string, header []string) (Sheet, error)
}
