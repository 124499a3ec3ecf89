// Package ledger reads and writes the access-event sheet. Column positions
// are resolved from the header on every Load; mutations go through the
// methods here so the dry-run guard is always checked.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/muster/internal/muster/identity"
	"github.com/BrandonDHaskell/muster/internal/muster/store"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

type Ledger struct {
	wb    store.Workbook
	sheet string
	loc   *time.Location
}

func New(wb store.Workbook, sheet string, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{wb: wb, sheet: sheet, loc: loc}
}

func (l *Ledger) SheetName() string        { return l.sheet }
func (l *Ledger) Location() *time.Location { return l.loc }

// View is one read of the ledger: the schema resolved from its header and
// every row as an event, in append order.
type View struct {
	Schema Schema
	Events []types.AccessEvent

	sheet store.Sheet
}

// Load snapshots the ledger. A missing sheet or a header without identity
// and entry columns is a NotFound error; a storage failure is a Processing
// error.
func (l *Ledger) Load(ctx context.Context) (*View, error) {
	sh, err := l.wb.Sheet(ctx, l.sheet)
	if errors.Is(err, store.ErrSheetNotFound) {
		return nil, types.NotFound(fmt.Sprintf("sheet %q not found", l.sheet), err)
	}
	if err != nil {
		return nil, types.Processing("open ledger", err)
	}

	snap, err := sh.Snapshot(ctx)
	if err != nil {
		return nil, types.Processing("read ledger", err)
	}

	schema := Resolve(snap.Header)
	if !schema.Parsable() {
		return nil, types.NotFound(
			fmt.Sprintf("sheet %q has no identity/entry columns", l.sheet), nil)
	}

	v := &View{Schema: schema, sheet: sh, Events: make([]types.AccessEvent, 0, len(snap.Rows))}
	for _, r := range snap.Rows {
		v.Events = append(v.Events, l.event(schema, r))
	}
	return v, nil
}

func (l *Ledger) event(s Schema, r store.Row) types.AccessEvent {
	cell := func(f Field) string {
		i, ok := s.Col(f)
		if !ok {
			return ""
		}
		return strings.TrimSpace(r.Cell(i))
	}

	ev := types.AccessEvent{
		RowIndex:      r.Index,
		Version:       r.Version,
		IdentityRaw:   cell(FieldIdentity),
		Name:          cell(FieldName),
		Company:       cell(FieldCompany),
		Status:        cell(FieldStatus),
		EntryRaw:      cell(FieldEntry),
		ExitRaw:       cell(FieldExit),
		DurationLabel: cell(FieldDuration),
	}
	ev.IdentityNormalized = identity.Normalize(ev.IdentityRaw)
	ev.EntryAt = ParseTimestamp(ev.EntryRaw, l.loc)
	ev.ExitAt = ParseTimestamp(ev.ExitRaw, l.loc)
	return ev
}

// CloseOptions carries the extras written alongside the exit.
type CloseOptions struct {
	Note  string           // attached to the exit cell
	Extra map[Field]string // e.g. company backfilled from the directory
}

// CloseSession writes exitAt into ev's row, plus a duration label when the
// entry time is known (see EntryTime), as one compare-and-swap on the row version. It
// returns the label written ("" when none). A lost race is a Conflict error.
func (l *Ledger) CloseSession(ctx context.Context, v *View, ev types.AccessEvent, exitAt time.Time, opts CloseOptions) (string, error) {
	if IsDryRun(ctx) {
		return "", types.ErrBlockedBySimulation
	}
	exitCol, ok := v.Schema.Col(FieldExit)
	if !ok {
		return "", types.Processing(fmt.Sprintf("sheet %q has no exit column", l.sheet), nil)
	}

	values := make(map[Field]string, len(opts.Extra)+2)
	for f, val := range opts.Extra {
		values[f] = val
	}
	values[FieldExit] = FormatTimestamp(exitAt, l.loc)

	var label string
	if entry := EntryTime(ev, exitAt, l.loc); entry != nil {
		label = DurationLabel(*entry, exitAt)
		values[FieldDuration] = label
	}

	err := v.sheet.CompareAndWrite(ctx, ev.RowIndex, ev.Version, v.Schema.Cells(values))
	switch {
	case errors.Is(err, store.ErrVersionConflict), errors.Is(err, store.ErrRowNotFound):
		return "", types.NewError(types.KindConflict,
			fmt.Sprintf("row %d changed since it was read", ev.RowIndex), err)
	case err != nil:
		return "", types.Processing(fmt.Sprintf("close row %d", ev.RowIndex), err)
	}

	if opts.Note != "" {
		if err := v.sheet.SetNote(ctx, ev.RowIndex, exitCol, opts.Note); err != nil {
			return label, types.Processing(fmt.Sprintf("note row %d", ev.RowIndex), err)
		}
	}
	return label, nil
}

// Append adds a row built from values and returns its index.
func (l *Ledger) Append(ctx context.Context, v *View, values map[Field]string) (int, error) {
	if IsDryRun(ctx) {
		return 0, types.ErrBlockedBySimulation
	}
	idx, err := v.sheet.AppendRow(ctx, v.Schema.Row(values))
	if err != nil {
		return 0, types.Processing("append ledger row", err)
	}
	return idx, nil
}

// EnsureSheet creates the ledger with DefaultHeader when it does not exist.
func (l *Ledger) EnsureSheet(ctx context.Context) error {
	if IsDryRun(ctx) {
		return types.ErrBlockedBySimulation
	}
	if _, err := l.wb.EnsureSheet(ctx, l.sheet, DefaultHeader); err != nil {
		return types.Processing("ensure ledger sheet", err)
	}
	return nil
}
