// Package audit appends one tamper-evident row per evacuation attempt.
// Writes are best effort: a failure falls back to the error log, and a
// failure there is only logged.
package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/store"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

// Audit sheet columns.
const (
	colSession   = "Session_ID"
	colTimestamp = "Fecha_Hora"
	colKind      = "Tipo_Evento"
	colOperator  = "Operador"
	colAffected  = "Personas_Afectadas"
	colDetail    = "Detalle_Personas"
	colStatus    = "Estado"
	colObserv    = "Observaciones"
	colNotes     = "Notas_Adicionales"
	colPrevHash  = "Hash_Anterior"
	colHash      = "Hash"
)

var Header = []string{
	colSession, colTimestamp, colKind, colOperator, colAffected, colDetail,
	colStatus, colObserv, colNotes, colPrevHash, colHash,
}

// Error log columns.
const (
	colErrDate    = "Fecha"
	colErrType    = "Tipo_Error"
	colErrMessage = "Mensaje"
	colErrDetail  = "Detalles"
)

var ErrorHeader = []string{colErrDate, colErrType, colErrMessage, colErrDetail}

const detailUnavailable = "[detalle no disponible]"

// Sheets names the audit destinations.
type Sheets struct {
	Real      string
	Simulated string
	Errors    string
}

func DefaultSheets() Sheets {
	return Sheets{Real: "Log_Emergencias", Simulated: "Log_Simulacros", Errors: "Log_Errores"}
}

type Writer struct {
	wb     store.Workbook
	sheets Sheets
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time

	// chain serializes reading the last hash and appending the next row.
	chain sync.Mutex
}

type Dependencies struct {
	Workbook store.Workbook
	Sheets   Sheets
	Location *time.Location
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewWriter(deps Dependencies) *Writer {
	w := &Writer{
		wb:     deps.Workbook,
		sheets: deps.Sheets,
		loc:    deps.Location,
		logger: deps.Logger,
		now:    deps.Now,
	}
	if w.sheets == (Sheets{}) {
		w.sheets = DefaultSheets()
	}
	if w.loc == nil {
		w.loc = time.UTC
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

func (w *Writer) sheetFor(kind types.AuditKind) string {
	switch kind {
	case types.AuditSimulatedEvacuation:
		return w.sheets.Simulated
	case types.AuditLogError:
		return w.sheets.Errors
	default:
		return w.sheets.Real
	}
}

// Record appends the audit row for one evacuation. It never fails the
// caller; the returned entry has an empty Hash when nothing was written to
// the audit sheet.
func (w *Writer) Record(ctx context.Context, out *types.EvacuationOutcome, req types.EvacuationRequest) types.AuditEntry {
	e := types.AuditEntry{
		SessionID:     out.SessionID,
		Timestamp:     w.now().In(w.loc).Truncate(time.Second),
		Kind:          types.AuditKindFor(out.Mode),
		Operator:      req.Operator,
		AffectedCount: out.TotalResolved(),
		Detail:        Detail(out.Resolved),
		Status:        status(out),
		Observations:  observations(out.Mode),
		Notes:         req.Notes,
	}

	sheet := w.sheetFor(e.Kind)
	written, err := w.append(ctx, sheet, e)
	if err == nil {
		w.logger.Info("audit recorded",
			zap.String("session_id", e.SessionID),
			zap.String("kind", string(e.Kind)),
			zap.String("sheet", sheet),
			zap.Int("affected", e.AffectedCount))
		return written
	}

	w.logger.Warn("audit write failed, falling back to error log",
		zap.String("session_id", e.SessionID),
		zap.String("sheet", sheet),
		zap.Error(err))

	w.LogError(ctx, "ERROR_LOG_"+string(e.Kind), err.Error(),
		fmt.Sprintf("session=%s operator=%s affected=%d", e.SessionID, e.Operator, e.AffectedCount))
	return e
}

// LogError appends a minimal row to the error log. Failures are logged only.
func (w *Writer) LogError(ctx context.Context, kind, message, details string) {
	err := w.appendError(ctx, kind, message, details)
	if err != nil {
		w.logger.Error("error log write failed",
			zap.String("sheet", w.sheets.Errors),
			zap.String("type", kind),
			zap.String("message", message),
			zap.Error(err))
	}
}

func (w *Writer) append(ctx context.Context, sheet string, e types.AuditEntry) (types.AuditEntry, error) {
	w.chain.Lock()
	defer w.chain.Unlock()

	sh, err := w.wb.EnsureSheet(ctx, sheet, Header)
	if err != nil {
		return e, fmt.Errorf("ensure %q: %w", sheet, err)
	}
	snap, err := sh.Snapshot(ctx)
	if err != nil {
		return e, fmt.Errorf("read %q: %w", sheet, err)
	}

	cols := index(snap.Header)
	if n := len(snap.Rows); n > 0 {
		e.PrevHash = cellByName(snap.Rows[n-1], cols, colHash)
	}
	e.Hash, err = Hash(e)
	if err != nil {
		return e, err
	}

	row := make([]string, len(snap.Header))
	for name, v := range map[string]string{
		colSession:   e.SessionID,
		colTimestamp: ledger.FormatTimestamp(e.Timestamp, w.loc),
		colKind:      string(e.Kind),
		colOperator:  e.Operator,
		colAffected:  strconv.Itoa(e.AffectedCount),
		colDetail:    e.Detail,
		colStatus:    e.Status,
		colObserv:    e.Observations,
		colNotes:     e.Notes,
		colPrevHash:  e.PrevHash,
		colHash:      e.Hash,
	} {
		if i, ok := cols[name]; ok {
			row[i] = v
		}
	}

	if _, err := sh.AppendRow(ctx, row); err != nil {
		return e, fmt.Errorf("append %q: %w", sheet, err)
	}
	return e, nil
}

func (w *Writer) appendError(ctx context.Context, kind, message, details string) error {
	sh, err := w.wb.EnsureSheet(ctx, w.sheets.Errors, ErrorHeader)
	if err != nil {
		return err
	}
	snap, err := sh.Snapshot(ctx)
	if err != nil {
		return err
	}
	cols := index(snap.Header)
	row := make([]string, len(snap.Header))
	for name, v := range map[string]string{
		colErrDate:    ledger.FormatTimestamp(w.now(), w.loc),
		colErrType:    kind,
		colErrMessage: message,
		colErrDetail:  details,
	} {
		if i, ok := cols[name]; ok {
			row[i] = v
		}
	}
	_, err = sh.AppendRow(ctx, row)
	return err
}

// Detail renders resolved people as "{identity}-{name}" joined by "; ".
// A panic while formatting yields a placeholder instead.
func Detail(people []types.ResolvedPerson) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = detailUnavailable
		}
	}()
	parts := make([]string, 0, len(people))
	for _, p := range people {
		parts = append(parts, p.Identity+"-"+p.Name)
	}
	return strings.Join(parts, "; ")
}

func status(out *types.EvacuationOutcome) string {
	if out.Success {
		return "COMPLETADO"
	}
	return "FALLIDO"
}

func observations(m types.Mode) string {
	if m == types.ModeSimulated {
		return "Simulacro: sin cambios en el historial"
	}
	return "Evacuación real: sesiones cerradas en el historial"
}

func index(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := out[h]; !dup {
			out[h] = i
		}
	}
	return out
}

func cellByName(r store.Row, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok {
		return ""
	}
	return r.Cell(i)
}
