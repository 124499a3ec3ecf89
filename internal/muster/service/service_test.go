package service_test

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/muster/internal/muster/directory"
	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/store"
	"github.com/BrandonDHaskell/muster/internal/muster/store/memory"
)

var panama, _ = time.LoadLocation("America/Panama")

func at(h, m int) time.Time { return time.Date(2026, 3, 2, h, m, 0, 0, panama) }

type fixture struct {
	wb  *memory.Workbook
	l   *ledger.Ledger
	dir *directory.Directory
}

// newFixture builds a workbook with a personnel sheet and, when withLedger
// is set, an empty ledger.
func newFixture(t *testing.T, withLedger bool) fixture {
	t.Helper()
	ctx := context.Background()
	wb := memory.NewWorkbook()

	people := memory.NewSheet("Base de Datos", directory.Header)
	for _, p := range [][]string{
		{"8-123-456", "Ana Pérez", "ACME"},
		{"8-123-457", "Luis Gómez", "ACME"},
	} {
		_, err := people.AppendRow(ctx, p)
		require.NoError(t, err)
	}
	wb.Add(people)
	if withLedger {
		wb.Add(memory.NewSheet("Historial", ledger.DefaultHeader))
	}

	return fixture{
		wb:  wb,
		l:   ledger.New(wb, "Historial", panama),
		dir: directory.New(wb, "Base de Datos"),
	}
}

func (f fixture) rows(t *testing.T) []store.Row {
	t.Helper()
	sh, err := f.wb.Sheet(context.Background(), "Historial")
	require.NoError(t, err)
	snap, err := sh.Snapshot(context.Background())
	require.NoError(t, err)
	return snap.Rows
}
