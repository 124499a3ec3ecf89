package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SeedDevOptions names the sheets to pre-create in dev. The personnel header
// must list identity, name and company in that order; devPersonnel rows
// follow it.
type SeedDevOptions struct {
	LedgerSheet     string
	LedgerHeader    []string
	PersonnelSheet  string
	PersonnelHeader []string
}

var devPersonnel = [][]string{
	{"8-123-456", "Ana Pérez", "Contratistas del Istmo"},
	{"8-234-567", "Luis Gómez", "Mantenimiento Central"},
	{"PE-456-789", "Marta Ríos", "Visitante"},
}

// SeedDev creates the ledger and personnel sheets when missing and fills an
// empty personnel sheet with a few fixed people. Existing data is left alone.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	if err := ensureSheet(ctx, db, opt.LedgerSheet, opt.LedgerHeader, now); err != nil {
		return err
	}
	if err := ensureSheet(ctx, db, opt.PersonnelSheet, opt.PersonnelHeader, now); err != nil {
		return err
	}

	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sheet_rows WHERE sheet = ?;`, opt.PersonnelSheet,
	).Scan(&n); err != nil {
		return fmt.Errorf("seed count personnel: %w", err)
	}
	if n > 0 {
		return nil
	}

	for i, p := range devPersonnel {
		cells, _ := json.Marshal(p)
		if _, err := db.ExecContext(ctx, `
INSERT INTO sheet_rows(sheet, row_index, cells_json, version, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, 1, ?, ?);`, opt.PersonnelSheet, i+1, string(cells), now, now); err != nil {
			return fmt.Errorf("seed person %s: %w", p[0], err)
		}
	}
	if _, err := db.ExecContext(ctx,
		`UPDATE sheets SET next_row_index = ? WHERE name = ?;`, len(devPersonnel)+1, opt.PersonnelSheet,
	); err != nil {
		return fmt.Errorf("seed personnel sequence: %w", err)
	}
	return nil
}

func ensureSheet(ctx context.Context, db *sql.DB, name string, header []string, nowMs int64) error {
	if name == "" {
		return nil
	}
	h, _ := json.Marshal(header)
	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO sheets(name, header_json, created_at_ms)
VALUES (?, ?, ?);`, name, string(h), nowMs); err != nil {
		return fmt.Errorf("seed sheet %s: %w", name, err)
	}
	return nil
}
