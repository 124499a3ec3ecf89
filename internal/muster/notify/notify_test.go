package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BrandonDHaskell/muster/internal/muster/notify"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

var panama, _ = time.LoadLocation("America/Panama")

type recorder struct {
	calls int
	to    []string
	body  string
	err   error
}

func (r *recorder) Send(_ context.Context, to []string, _, body string) error {
	r.calls++
	r.to = to
	r.body = body
	return r.err
}

func realOutcome() *types.EvacuationOutcome {
	entry := time.Date(2026, 3, 2, 8, 0, 0, 0, panama)
	exit := time.Date(2026, 3, 2, 17, 0, 0, 0, panama)
	return &types.EvacuationOutcome{
		SessionID: "s1",
		Mode:      types.ModeReal,
		Timestamp: exit,
		Resolved: []types.ResolvedPerson{
			{Identity: "8-1-1", Name: "Ana", Company: "ACME", EntryAt: &entry, ExitAt: exit},
			{Identity: "8-2-2", Name: "Luis", Company: "ACME", ExitAt: exit},
		},
	}
}

func TestRecipients(t *testing.T) {
	got := notify.Recipients("a@x.pa, b@x.pa", "", " b@x.pa ", "c@x.pa")
	assert.Equal(t, []string{"a@x.pa", "b@x.pa", "c@x.pa"}, got)
	assert.Empty(t, notify.Recipients("", " "))
}

func TestEvacuation_Body(t *testing.T) {
	subject, body := notify.Evacuation(realOutcome(), "guardia", panama)

	assert.Equal(t, "ALERTA CRÍTICA: Evacuación de Emergencia - 02/03/2026 17:00", subject)
	assert.Contains(t, body, "Personas evacuadas: 2")
	assert.Contains(t, body, "01. Ana\n    Cédula: 8-1-1")
	assert.Contains(t, body, "Entrada: 08:00 | Salida: 17:00 (9 hours dentro)")
	assert.Contains(t, body, "02. Luis")
	assert.Contains(t, body, "Entrada: N/A | Salida: 17:00\n")
	assert.Contains(t, body, "Session ID para soporte: s1")
}

func TestDispatcher_OnlyRealWithPeople(t *testing.T) {
	rec := &recorder{}
	d := notify.NewDispatcher(rec, []string{"a@x.pa"}, panama, nil)
	ctx := context.Background()

	sim := realOutcome()
	sim.Mode = types.ModeSimulated
	d.EvacuationCompleted(ctx, sim, "op")

	empty := realOutcome()
	empty.Resolved = nil
	d.EvacuationCompleted(ctx, empty, "op")
	assert.Zero(t, rec.calls)

	d.EvacuationCompleted(ctx, realOutcome(), "op")
	require.Equal(t, 1, rec.calls)
	assert.Equal(t, []string{"a@x.pa"}, rec.to)
}

func TestDispatcher_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rec := &recorder{err: errors.New("smtp down")}
	d := notify.NewDispatcher(rec, []string{"a@x.pa"}, panama, zap.New(core))

	assert.NotPanics(t, func() { d.EvacuationCompleted(context.Background(), realOutcome(), "op") })
	assert.Equal(t, 1, logs.FilterMessage("evacuation notification failed").Len())

	none := notify.NewDispatcher(rec, nil, panama, zap.New(core))
	none.EvacuationCompleted(context.Background(), realOutcome(), "op")
	assert.Equal(t, 1, logs.FilterMessage("no notification recipients configured").Len())
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := notify.LogNotifier{Logger: zap.New(core)}

	require.NoError(t, n.Send(context.Background(), []string{"a@x.pa"}, "s", "b"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "s", logs.All()[0].ContextMap()["subject"])
}
