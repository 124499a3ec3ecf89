package occupancy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

type Reconciler struct {
	ledger *ledger.Ledger
	logger *zap.Logger
	now    func() time.Time
}

func NewReconciler(l *ledger.Ledger, logger *zap.Logger, now func() time.Time) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Reconciler{ledger: l, logger: logger, now: now}
}

// Snapshot reconciles the ledger as it is now. It never returns an error:
// an absent or unreadable ledger gives an empty, unsuccessful snapshot.
func (r *Reconciler) Snapshot(ctx context.Context) types.Occupancy {
	ts := r.now()
	v, err := r.ledger.Load(ctx)
	if err != nil {
		r.logger.Warn("occupancy unavailable",
			zap.String("sheet", r.ledger.SheetName()),
			zap.Error(err))
		return types.Occupancy{
			Success:   false,
			Message:   err.Error(),
			Records:   []types.OccupancyRecord{},
			Timestamp: ts,
		}
	}

	recs := Ordered(v.Events)
	return types.Occupancy{
		Success:   true,
		Message:   fmt.Sprintf("%d persona(s) dentro", len(recs)),
		Records:   recs,
		Timestamp: ts,
	}
}

// Payload shapes a snapshot for the UI. Entry times with a date render as
// HH:mm in loc; anything else is passed through as captured.
func Payload(o types.Occupancy, loc *time.Location) types.OccupancyPayload {
	p := types.OccupancyPayload{
		Success:        o.Success,
		Message:        o.Message,
		TotalDentro:    o.Total(),
		PersonasDentro: make([]types.PersonaDentro, 0, len(o.Records)),
		Timestamp:      ledger.FormatTimestamp(o.Timestamp, loc),
	}
	for _, rec := range o.Records {
		hora := rec.EntryRaw
		if rec.EntryAt != nil {
			hora = ledger.FormatClock(*rec.EntryAt, loc)
		}
		p.PersonasDentro = append(p.PersonasDentro, types.PersonaDentro{
			Cedula:      rec.Identity,
			Nombre:      rec.Name,
			Empresa:     rec.Company,
			HoraEntrada: hora,
		})
	}
	return p
}
