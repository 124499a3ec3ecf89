package occupancy_test

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/muster/internal/muster/identity"
	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/occupancy"
	"github.com/BrandonDHaskell/muster/internal/muster/store/memory"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

var panama, _ = time.LoadLocation("America/Panama")

func at(h, m int) time.Time { return time.Date(2026, 3, 2, h, m, 0, 0, panama) }

func ev(idx int, id, entry, exit string) types.AccessEvent {
	return types.AccessEvent{
		RowIndex:           idx,
		IdentityRaw:        id,
		IdentityNormalized: identity.Normalize(id),
		EntryRaw:           entry,
		ExitRaw:            exit,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reconcile
// ═══════════════════════════════════════════════════════════════════════════

func TestReconcile_ScenarioFromLedger(t *testing.T) {
	events := []types.AccessEvent{
		ev(1, "8-1-1", "08:00", ""),
		ev(2, "8-2-2", "09:00", "10:00"),
	}

	got := occupancy.Reconcile(events)
	require.Len(t, got, 1)
	assert.Equal(t, "8-1-1", got["8-1-1"].Identity)
	assert.Equal(t, "08:00", got["8-1-1"].EntryRaw)
}

func TestReconcile_LatestRowWins(t *testing.T) {
	cases := []struct {
		name   string
		events []types.AccessEvent
		inside bool
	}{
		{"re-entered after exit", []types.AccessEvent{
			ev(1, "8-1-1", "08:00", "09:00"),
			ev(2, "8-1-1", "10:00", ""),
		}, true},
		{"stale open row behind a closed one", []types.AccessEvent{
			ev(1, "8-1-1", "08:00", ""),
			ev(2, "8-1-1", "10:00", "11:00"),
		}, false},
		{"stale open row behind an orphan exit", []types.AccessEvent{
			ev(1, "8-1-1", "08:00", ""),
			ev(2, "8-1-1", "", "12:00"),
		}, false},
		{"denied row after open entry", []types.AccessEvent{
			ev(1, "8-1-1", "08:00", ""),
			ev(2, "8-1-1", "", ""),
		}, true},
		{"blank row after closed entry", []types.AccessEvent{
			ev(1, "8-1-1", "07:00", ""),
			ev(2, "8-1-1", "08:00", "09:00"),
			ev(3, "8-1-1", "", ""),
		}, false},
		{"raw formats differ, key matches", []types.AccessEvent{
			ev(1, `{"cedula":"8-1-1"}`, "08:00", ""),
			ev(2, "Cédula: 8-1-1", "08:00", "09:00"),
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, inside := occupancy.Reconcile(tc.events)["8-1-1"]
			assert.Equal(t, tc.inside, inside)
		})
	}
}

func TestReconcile_EachOpenIdentityOnce(t *testing.T) {
	events := []types.AccessEvent{
		ev(1, "8-1-1", "07:00", ""),
		ev(2, "8-1-1", "08:00", ""),
		ev(3, "8-2-2", "08:30", ""),
		ev(4, "", "09:00", ""),
		ev(5, "8-3-3", "", ""),
	}

	ordered := occupancy.Ordered(events)
	require.Len(t, ordered, 2)
	assert.Equal(t, "8-2-2", ordered[0].Identity)
	assert.Equal(t, "8-1-1", ordered[1].Identity)
	assert.Equal(t, 2, ordered[1].RowIndex)
}

func TestReconcile_Idempotent(t *testing.T) {
	events := []types.AccessEvent{
		ev(1, "8-1-1", "08:00", ""),
		ev(2, "PE-456-789", "09:00", ""),
		ev(3, "8-1-1", "10:00", "11:00"),
		ev(4, "E-8-123456", "11:00", ""),
	}
	before := append([]types.AccessEvent(nil), events...)

	first := occupancy.Reconcile(events)
	second := occupancy.Reconcile(events)
	assert.Equal(t, first, second)
	assert.Equal(t, before, events)
	assert.Equal(t, occupancy.Ordered(events), occupancy.Ordered(events))
}

func TestLocate_UsesSameRule(t *testing.T) {
	events := []types.AccessEvent{
		ev(1, "8-1-1", "08:00", ""),
		ev(2, "8-2-2", "08:00", ""),
		ev(3, "8-2-2", "09:00", "10:00"),
		ev(4, "8-3-3", "09:00", ""),
		ev(5, "8-1-1", "", ""),
	}

	got := occupancy.Locate(events, []string{"8-1-1", "8-2-2", "9-9-9"})
	require.Len(t, got, 1)
	assert.Equal(t, 1, got["8-1-1"].RowIndex)
}

// ═══════════════════════════════════════════════════════════════════════════
// Snapshot / Payload
// ═══════════════════════════════════════════════════════════════════════════

func TestSnapshot_EndToEnd(t *testing.T) {
	sh := memory.NewSheet("Historial", ledger.DefaultHeader)
	ctx := context.Background()
	_, _ = sh.AppendRow(ctx, []string{"", "8-1-1", "Ana", "", ledger.FormatTimestamp(at(8, 0), panama), "", "", "ACME"})
	_, _ = sh.AppendRow(ctx, []string{"", "8-2-2", "Luis", "",
		ledger.FormatTimestamp(at(9, 0), panama), ledger.FormatTimestamp(at(10, 0), panama), "1h 0m", "ACME"})
	wb := memory.NewWorkbook()
	wb.Add(sh)

	now := at(12, 0)
	r := occupancy.NewReconciler(ledger.New(wb, "Historial", panama), nil, func() time.Time { return now })

	snap := r.Snapshot(ctx)
	require.True(t, snap.Success)
	assert.Equal(t, 1, snap.Total())

	p := occupancy.Payload(snap, panama)
	assert.Equal(t, 1, p.TotalDentro)
	assert.Equal(t, []types.PersonaDentro{{Cedula: "8-1-1", Nombre: "Ana", Empresa: "ACME", HoraEntrada: "08:00"}}, p.PersonasDentro)
	assert.Equal(t, ledger.FormatTimestamp(now, panama), p.Timestamp)
}

func TestSnapshot_MissingLedger(t *testing.T) {
	r := occupancy.NewReconciler(ledger.New(memory.NewWorkbook(), "Historial", panama), nil, nil)

	snap := r.Snapshot(context.Background())
	assert.False(t, snap.Success)
	assert.Contains(t, snap.Message, "Historial")
	assert.Empty(t, snap.Records)

	p := occupancy.Payload(snap, panama)
	assert.Zero(t, p.TotalDentro)
	assert.NotNil(t, p.PersonasDentro)
}
