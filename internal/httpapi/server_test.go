package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/muster/internal/httpapi"
	"github.com/BrandonDHaskell/muster/internal/muster/audit"
	"github.com/BrandonDHaskell/muster/internal/muster/directory"
	"github.com/BrandonDHaskell/muster/internal/muster/evacuation"
	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/occupancy"
	"github.com/BrandonDHaskell/muster/internal/muster/service"
	"github.com/BrandonDHaskell/muster/internal/muster/store/memory"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

var panama, _ = time.LoadLocation("America/Panama")

// newTestServer wires the full dependency graph over in-memory sheets. The
// ledger starts with Ana inside since 08:00.
func newTestServer(t *testing.T, withLedger bool) (*httptest.Server, *memory.Workbook) {
	t.Helper()
	ctx := context.Background()
	now := func() time.Time { return time.Date(2026, 3, 2, 17, 0, 0, 0, panama) }

	wb := memory.NewWorkbook()
	people := memory.NewSheet("Base de Datos", directory.Header)
	_, _ = people.AppendRow(ctx, []string{"8-1-1", "Ana", "ACME"})
	_, _ = people.AppendRow(ctx, []string{"8-2-2", "Luis", "ACME"})
	wb.Add(people)
	if withLedger {
		hist := memory.NewSheet("Historial", ledger.DefaultHeader)
		_, _ = hist.AppendRow(ctx, []string{"2026-03-02", "8-1-1", "Ana", "Acceso Permitido",
			ledger.FormatTimestamp(time.Date(2026, 3, 2, 8, 0, 0, 0, panama), panama), "", "", "ACME"})
		wb.Add(hist)
	}

	l := ledger.New(wb, "Historial", panama)
	dir := directory.New(wb, "Base de Datos")
	rec := occupancy.NewReconciler(l, nil, now)
	aw := audit.NewWriter(audit.Dependencies{Workbook: wb, Location: panama, Now: now})

	srv := httpapi.NewServer(httpapi.Dependencies{
		Addr:             ":0",
		OccupancyService: service.NewOccupancyService(rec, l),
		AccessService:    service.NewAccessService(l, dir, nil, now),
		StatusService:    service.NewStatusService(l, map[string]string{"ledger": "Historial"}, now),
		Evacuations: evacuation.NewProcessor(evacuation.Dependencies{
			Ledger:     l,
			Reconciler: rec,
			Directory:  dir,
			Audit:      aw,
			Now:        now,
		}),
		Audit: aw,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, wb
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// ── Occupancy ────────────────────────────────────────────────────────────────

func TestOccupancy_JSON(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp, err := http.Get(ts.URL + "/v1/occupancy")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p types.OccupancyPayload
	decode(t, resp, &p)
	assert.True(t, p.Success)
	assert.Equal(t, 1, p.TotalDentro)
	assert.Equal(t, "08:00", p.PersonasDentro[0].HoraEntrada)
}

func TestOccupancy_Protobuf(t *testing.T) {
	ts, _ := newTestServer(t, true)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/occupancy", nil)
	req.Header.Set("Accept", "application/x-protobuf")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var st structpb.Struct
	require.NoError(t, proto.Unmarshal(raw, &st))
	assert.Equal(t, float64(1), st.GetFields()["totalDentro"].GetNumberValue())
}

// ── Evacuations ──────────────────────────────────────────────────────────────

func TestEvacuation_Simulated(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp := postJSON(t, ts.URL+"/v1/evacuations", `{"targets":["8-1-1"],"mode":"simulacro","operator":"brigada"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out types.EvacuationOutcome
	decode(t, resp, &out)
	assert.True(t, out.Success)
	assert.Equal(t, types.ModeSimulated, out.Mode)
	require.Len(t, out.Resolved, 1)
	assert.True(t, out.Resolved[0].Projected)
	assert.Equal(t, 1, out.Occupancy.TotalDentro)
}

func TestEvacuation_RealThenAudit(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp := postJSON(t, ts.URL+"/v1/evacuations", `{"targets":["8-1-1"],"mode":"real","operator":"guardia"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out types.EvacuationOutcome
	decode(t, resp, &out)
	require.Len(t, out.Resolved, 1)
	assert.Equal(t, "9h 0m", out.Resolved[0].DurationLabel)
	assert.Zero(t, out.Occupancy.TotalDentro)

	ar, err := http.Get(ts.URL + "/v1/audit?kind=real&limit=5")
	require.NoError(t, err)
	defer ar.Body.Close()
	var body struct {
		Kind    types.AuditKind    `json:"kind"`
		Entries []types.AuditEntry `json:"entries"`
	}
	decode(t, ar, &body)
	assert.Equal(t, types.AuditRealEvacuation, body.Kind)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, out.SessionID, body.Entries[0].SessionID)
}

func TestEvacuation_ProtobufRequest(t *testing.T) {
	ts, _ := newTestServer(t, true)

	st, err := structpb.NewStruct(map[string]any{"targets": []any{"8-1-1"}, "mode": "drill"})
	require.NoError(t, err)
	raw, err := proto.Marshal(st)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/v1/evacuations", "application/x-protobuf", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out types.EvacuationOutcome
	decode(t, resp, &out)
	assert.Equal(t, types.ModeSimulated, out.Mode)
}

func TestEvacuation_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name       string
		withLedger bool
		body       string
		want       int
	}{
		{"empty targets", true, `{"targets":[],"mode":"real"}`, http.StatusBadRequest},
		{"bad mode", true, `{"targets":["8-1-1"],"mode":"fire"}`, http.StatusBadRequest},
		{"bad json", true, `{`, http.StatusBadRequest},
		{"missing ledger", false, `{"targets":["8-1-1"],"mode":"real"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts, _ := newTestServer(t, tc.withLedger)
			resp := postJSON(t, ts.URL+"/v1/evacuations", tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

// ── Access ───────────────────────────────────────────────────────────────────

func TestAccess_ExitClosesSession(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp := postJSON(t, ts.URL+"/v1/access", `{"identity":"8-1-1","direction":"salida"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res types.AccessResult
	decode(t, resp, &res)
	assert.True(t, res.Granted)
	assert.Equal(t, "9h 0m", res.Duration)
	assert.False(t, res.SinEntradaPrevia)
}

func TestAccess_Validation(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp := postJSON(t, ts.URL+"/v1/access", `{"identity":"8-1-1","direction":"lateral"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	decode(t, resp, &e)
	assert.Equal(t, "validation_error", e.Error)
	assert.Contains(t, e.Details, "direction")
}

// ── Audit / Status ───────────────────────────────────────────────────────────

func TestAudit_UnknownKind(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp, err := http.Get(ts.URL + "/v1/audit?kind=weekly")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	ts, _ := newTestServer(t, true)
	resp, err := http.Get(ts.URL + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down, _ := newTestServer(t, false)
	resp2, err := http.Get(down.URL + "/v1/status")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	ts, _ := newTestServer(t, true)
	resp, err := http.Get(ts.URL + "/v1/visitors")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
