// Package evacuation closes (real) or projects (simulated) the open
// sessions of a set of people and records the attempt.
package evacuation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/muster/internal/muster/identity"
	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/occupancy"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

type Directory interface {
	FindByIdentity(ctx context.Context, raw string) (types.Person, bool, error)
}

type Auditor interface {
	Record(ctx context.Context, out *types.EvacuationOutcome, req types.EvacuationRequest) types.AuditEntry
	LogError(ctx context.Context, kind, message, details string)
}

type Notifier interface {
	EvacuationCompleted(ctx context.Context, out *types.EvacuationOutcome, operator string)
}

type Dependencies struct {
	Ledger     *ledger.Ledger
	Reconciler *occupancy.Reconciler
	Directory  Directory // optional
	Audit      Auditor   // optional
	Notifier   Notifier  // optional
	Logger     *zap.Logger
	Now        func() time.Time
	NewSession func() string
}

type Processor struct {
	deps Dependencies
}

func NewProcessor(deps Dependencies) *Processor {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewSession == nil {
		deps.NewSession = func() string { return "EVAC_" + uuid.NewString() }
	}
	return &Processor{deps: deps}
}

// Process runs one evacuation request.
//
// Validation errors are returned with a nil outcome and nothing touched.
// A missing ledger or a processing failure returns a failed outcome along
// with the error; a processing failure aborts the whole batch, and rows
// already closed in that batch stay closed. Audit and notification
// failures never reach the caller.
func (p *Processor) Process(ctx context.Context, req types.EvacuationRequest) (*types.EvacuationOutcome, error) {
	started := p.deps.Now()

	req.Targets = compact(req.Targets)
	if len(req.Targets) == 0 {
		req.Targets = nil
	}
	if err := types.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = started
	}

	out := &types.EvacuationOutcome{
		SessionID: p.deps.NewSession(),
		Mode:      req.Mode,
		Resolved:  []types.ResolvedPerson{},
		Timestamp: req.Timestamp,
	}
	log := p.deps.Logger.With(
		zap.String("session_id", out.SessionID),
		zap.String("mode", string(req.Mode)),
		zap.String("operator", req.Operator))

	keys := dedupe(req.Targets)
	resolved, err := p.resolve(ctx, req, keys, out.SessionID, log)
	if err != nil {
		return p.fail(ctx, out, req, started, err, log)
	}
	out.Resolved = resolved

	if len(resolved) > 0 {
		if p.deps.Audit != nil {
			p.deps.Audit.Record(ctx, out, req)
		}
		if req.Mode == types.ModeReal && p.deps.Notifier != nil {
			p.deps.Notifier.EvacuationCompleted(ctx, out, req.Operator)
		}
	}

	out.Success = true
	out.Message = message(req.Mode, len(resolved))
	out.Occupancy = p.snapshot(ctx)
	out.ElapsedMs = p.deps.Now().Sub(started).Milliseconds()

	log.Info("evacuation processed",
		zap.Int("targets", len(keys)),
		zap.Int("resolved", len(resolved)),
		zap.Int64("elapsed_ms", out.ElapsedMs))
	return out, nil
}

// resolve loads the ledger, locates each key's open session and dispatches
// by mode. A panic anywhere in here is a processing error.
func (p *Processor) resolve(ctx context.Context, req types.EvacuationRequest, keys []string, session string, log *zap.Logger) (res []types.ResolvedPerson, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, types.Processing(fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	v, err := p.deps.Ledger.Load(ctx)
	if err != nil {
		return nil, err
	}
	open := occupancy.Locate(v.Events, keys)

	if req.Mode == types.ModeSimulated {
		return p.project(ledger.WithDryRun(ctx), keys, open, req.Timestamp), nil
	}
	return p.close(ctx, v, keys, open, req.Timestamp, session, log)
}

// project is the simulated path. It reads only what Locate already found
// and never calls a ledger mutator; ctx carries the dry-run flag in case a
// future change does.
func (p *Processor) project(ctx context.Context, keys []string, open map[string]types.AccessEvent, at time.Time) []types.ResolvedPerson {
	out := make([]types.ResolvedPerson, 0, len(open))
	for _, k := range keys {
		ev, ok := open[k]
		if !ok {
			continue
		}
		rp := person(ev, at)
		rp.Projected = true
		if entry := ledger.EntryTime(ev, at, p.deps.Ledger.Location()); entry != nil {
			rp.DurationLabel = ledger.DurationLabel(*entry, at)
		}
		out = append(out, p.enrich(ctx, rp))
	}
	return out
}

func (p *Processor) close(ctx context.Context, v *ledger.View, keys []string, open map[string]types.AccessEvent, at time.Time, session string, log *zap.Logger) ([]types.ResolvedPerson, error) {
	note := fmt.Sprintf("EVACUACIÓN EMERGENCIA - %s - Session: %s",
		ledger.FormatClock(at, p.deps.Ledger.Location()), session)

	out := make([]types.ResolvedPerson, 0, len(open))
	for _, k := range keys {
		ev, ok := open[k]
		if !ok {
			continue
		}

		label, err := p.deps.Ledger.CloseSession(ctx, v, ev, at, ledger.CloseOptions{Note: note})
		if errors.Is(err, types.ErrConflict) {
			log.Warn("session already closed by another writer",
				zap.String("identity", k),
				zap.Int("row", ev.RowIndex))
			continue
		}
		if err != nil {
			return nil, err
		}

		rp := person(ev, at)
		rp.DurationLabel = label
		out = append(out, p.enrich(ctx, rp))
	}
	return out, nil
}

// enrich fills a missing name or company from the personnel directory.
// Lookup failures leave the person as is.
func (p *Processor) enrich(ctx context.Context, rp types.ResolvedPerson) types.ResolvedPerson {
	if p.deps.Directory == nil || (rp.Name != "" && rp.Company != "") {
		return rp
	}
	person, ok, err := p.deps.Directory.FindByIdentity(ctx, rp.Identity)
	if err != nil {
		p.deps.Logger.Debug("directory lookup failed", zap.String("identity", rp.Identity), zap.Error(err))
		return rp
	}
	if !ok {
		return rp
	}
	if rp.Name == "" {
		rp.Name = person.Name
	}
	if rp.Company == "" {
		rp.Company = person.Company
	}
	return rp
}

func (p *Processor) fail(ctx context.Context, out *types.EvacuationOutcome, req types.EvacuationRequest, started time.Time, err error, log *zap.Logger) (*types.EvacuationOutcome, error) {
	out.Success = false
	out.Resolved = []types.ResolvedPerson{}
	out.Message = err.Error()
	out.Occupancy = p.snapshot(ctx)
	out.ElapsedMs = p.deps.Now().Sub(started).Milliseconds()

	if errors.Is(err, types.ErrNotFound) {
		log.Warn("evacuation aborted: ledger unavailable", zap.Error(err))
		return out, err
	}

	log.Error("evacuation aborted", zap.Error(err))
	if p.deps.Audit != nil {
		p.deps.Audit.LogError(ctx, "ERROR_EVACUACION", err.Error(),
			fmt.Sprintf("session=%s mode=%s targets=%s", out.SessionID, req.Mode, strings.Join(req.Targets, ",")))
	}
	if types.KindOf(err) == "" {
		err = types.Processing("evacuation failed", err)
	}
	return out, err
}

func (p *Processor) snapshot(ctx context.Context) types.OccupancyPayload {
	if p.deps.Reconciler == nil {
		return types.OccupancyPayload{PersonasDentro: []types.PersonaDentro{}}
	}
	return occupancy.Payload(p.deps.Reconciler.Snapshot(ctx), p.deps.Ledger.Location())
}

func person(ev types.AccessEvent, exit time.Time) types.ResolvedPerson {
	id := ev.IdentityNormalized
	if id == "" {
		id = ev.IdentityRaw
	}
	return types.ResolvedPerson{
		Identity: id,
		Name:     ev.Name,
		Company:  ev.Company,
		EntryRaw: ev.EntryRaw,
		EntryAt:  ev.EntryAt,
		ExitAt:   exit,
		RowIndex: ev.RowIndex,
	}
}

func message(m types.Mode, n int) string {
	switch {
	case n == 0:
		return "No se encontraron personas dentro entre los objetivos indicados"
	case m == types.ModeSimulated:
		return fmt.Sprintf("Simulacro completado: %d persona(s) evacuada(s) sin modificar el historial", n)
	default:
		return fmt.Sprintf("Evacuación completada: %d persona(s) evacuada(s)", n)
	}
}

func compact(targets []string) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// dedupe maps targets to matching keys, dropping repeats and keeping order.
func dedupe(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		k := identity.Key(t)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
