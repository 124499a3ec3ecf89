package audit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/store"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

const defaultRecentLimit = 50

// Recent returns up to limit entries of kind, newest first. A sheet that
// was never written yields an empty list.
func (w *Writer) Recent(ctx context.Context, kind types.AuditKind, limit int) ([]types.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	all, err := w.entries(ctx, kind)
	if err != nil {
		return nil, err
	}

	out := make([]types.AuditEntry, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Verify walks the hash chain of an evacuation sheet. It returns the row
// position of the first broken entry, or -1 when the chain is intact.
func (w *Writer) Verify(ctx context.Context, kind types.AuditKind) (int, error) {
	if kind == types.AuditLogError {
		return -1, types.Validation("error log is not hash chained")
	}
	all, err := w.entries(ctx, kind)
	if err != nil {
		return -1, err
	}
	return VerifyChain(all), nil
}

// PruneErrorsBefore deletes error-log rows dated before cutoff. Rows with an
// unreadable date are kept.
func (w *Writer) PruneErrorsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	sh, err := w.wb.Sheet(ctx, w.sheets.Errors)
	if errors.Is(err, store.ErrSheetNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("PruneErrorsBefore open: %w", err)
	}
	snap, err := sh.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("PruneErrorsBefore read: %w", err)
	}
	cols := index(snap.Header)

	n, err := sh.DeleteRows(ctx, func(r store.Row) bool {
		ts := ledger.ParseTimestamp(cellByName(r, cols, colErrDate), w.loc)
		return ts != nil && ts.Before(cutoff)
	})
	if err != nil {
		return 0, fmt.Errorf("PruneErrorsBefore delete: %w", err)
	}
	return n, nil
}

func (w *Writer) entries(ctx context.Context, kind types.AuditKind) ([]types.AuditEntry, error) {
	name := w.sheetFor(kind)
	sh, err := w.wb.Sheet(ctx, name)
	if errors.Is(err, store.ErrSheetNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, types.Processing(fmt.Sprintf("open %q", name), err)
	}
	snap, err := sh.Snapshot(ctx)
	if err != nil {
		return nil, types.Processing(fmt.Sprintf("read %q", name), err)
	}

	cols := index(snap.Header)
	cell := func(r store.Row, col string) string { return cellByName(r, cols, col) }

	out := make([]types.AuditEntry, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		if kind == types.AuditLogError {
			e := types.AuditEntry{
				Kind:         types.AuditLogError,
				Observations: cell(r, colErrType),
				Notes:        cell(r, colErrMessage),
				Detail:       cell(r, colErrDetail),
			}
			if ts := ledger.ParseTimestamp(cell(r, colErrDate), w.loc); ts != nil {
				e.Timestamp = *ts
			}
			out = append(out, e)
			continue
		}

		affected, _ := strconv.Atoi(cell(r, colAffected))
		e := types.AuditEntry{
			SessionID:     cell(r, colSession),
			Kind:          types.AuditKind(cell(r, colKind)),
			Operator:      cell(r, colOperator),
			AffectedCount: affected,
			Detail:        cell(r, colDetail),
			Status:        cell(r, colStatus),
			Observations:  cell(r, colObserv),
			Notes:         cell(r, colNotes),
			PrevHash:      cell(r, colPrevHash),
			Hash:          cell(r, colHash),
		}
		if ts := ledger.ParseTimestamp(cell(r, colTimestamp), w.loc); ts != nil {
			e.Timestamp = *ts
		}
		out = append(out, e)
	}
	return out, nil
}
