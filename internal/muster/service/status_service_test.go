package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/occupancy"
	"github.com/BrandonDHaskell/muster/internal/muster/service"
	"github.com/BrandonDHaskell/muster/internal/muster/store/memory"
)

func TestStatusService_Check(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	sh, err := f.wb.Sheet(ctx, "Historial")
	require.NoError(t, err)
	_, _ = sh.AppendRow(ctx, []string{"", "8-1-1", "Ana", "", "08:00", "", "", ""})
	_, _ = sh.AppendRow(ctx, []string{"", "8-2-2", "Luis", "", "08:00", "09:00", "", ""})

	sheets := map[string]string{"ledger": "Historial"}
	st := service.NewStatusService(f.l, sheets, nil).Check(ctx)
	assert.True(t, st.OK)
	assert.Equal(t, 2, st.Rows)
	assert.Equal(t, 1, st.TotalDentro)
	assert.Equal(t, "America/Panama", st.TimeZone)
	assert.Equal(t, sheets, st.Sheets)

	missing := service.NewStatusService(ledger.New(memory.NewWorkbook(), "Historial", panama), nil, nil).Check(ctx)
	assert.False(t, missing.OK)
	assert.Contains(t, missing.Message, "Historial")
}

func TestOccupancyService_Payload(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	sh, _ := f.wb.Sheet(ctx, "Historial")
	_, _ = sh.AppendRow(ctx, []string{"", "8-1-1", "Ana", "", ledger.FormatTimestamp(at(8, 0), panama), "", "", "ACME"})

	svc := service.NewOccupancyService(occupancy.NewReconciler(f.l, nil, nil), f.l)
	p := svc.Payload(ctx)
	assert.True(t, p.Success)
	assert.Equal(t, 1, p.TotalDentro)
	assert.Equal(t, "08:00", p.PersonasDentro[0].HoraEntrada)
}
