package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/muster/internal/muster/identity"
	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/occupancy"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

const (
	statusGranted  = "Acceso Permitido"
	statusDenied   = "Acceso Denegado"
	deniedName     = "DENEGADO"
	unknownCompany = "No registrada"
	noEntryLabel   = "Sin entrada"
)

type Directory interface {
	FindByIdentity(ctx context.Context, raw string) (types.Person, bool, error)
	Similar(ctx context.Context, raw string) ([]string, error)
}

// AccessService records desk check-ins and check-outs in the ledger.
type AccessService struct {
	ledger    *ledger.Ledger
	directory Directory
	logger    *zap.Logger
	now       func() time.Time
}

func NewAccessService(l *ledger.Ledger, dir Directory, logger *zap.Logger, now func() time.Time) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &AccessService{ledger: l, directory: dir, logger: logger, now: now}
}

// Register looks the person up and writes the entry or exit. Unknown people
// are still recorded, as denied, with similar registered identities in the
// result. Under a dry-run context nothing is written and
// ErrBlockedBySimulation is returned.
func (s *AccessService) Register(ctx context.Context, req types.AccessRequest) (types.AccessResult, error) {
	req.Identity = strings.TrimSpace(req.Identity)
	req.Direction = types.Direction(strings.ToLower(strings.TrimSpace(string(req.Direction))))
	if err := types.ValidateStruct(req); err != nil {
		return types.AccessResult{}, err
	}
	if ledger.IsDryRun(ctx) {
		return types.AccessResult{}, types.ErrBlockedBySimulation
	}

	now := s.now()
	loc := s.ledger.Location()
	id := identity.Normalize(req.Identity)

	res := types.AccessResult{
		Identity:   id,
		Direction:  string(req.Direction),
		ServerTime: ledger.FormatTimestamp(now, loc),
	}

	person, found, err := s.directory.FindByIdentity(ctx, req.Identity)
	if err != nil {
		return types.AccessResult{}, err
	}
	if found {
		res.Identity = person.Identity
		res.Name = person.Name
		res.Company = person.Company
		res.Status = statusGranted
		res.Granted = true
	} else {
		res.Name = deniedName
		res.Company = unknownCompany
		res.Status = statusDenied
		if similar, err := s.directory.Similar(ctx, req.Identity); err == nil {
			res.Similar = similar
		}
	}

	v, err := s.load(ctx)
	if err != nil {
		return types.AccessResult{}, err
	}

	if req.Direction == types.DirectionEntry {
		err = s.entry(ctx, v, &res, now)
	} else {
		err = s.exit(ctx, v, &res, now)
	}
	if err != nil {
		return types.AccessResult{}, err
	}

	s.logger.Info("access registered",
		zap.String("identity", res.Identity),
		zap.String("direction", res.Direction),
		zap.Bool("granted", res.Granted),
		zap.Bool("sin_entrada_previa", res.SinEntradaPrevia),
		zap.Int("row", res.RowIndex))
	return res, nil
}

// load reads the ledger, creating the sheet on first use.
func (s *AccessService) load(ctx context.Context) (*ledger.View, error) {
	v, err := s.ledger.Load(ctx)
	if err == nil || !errors.Is(err, types.ErrNotFound) {
		return v, err
	}
	if err := s.ledger.EnsureSheet(ctx); err != nil {
		return nil, err
	}
	return s.ledger.Load(ctx)
}

func (s *AccessService) entry(ctx context.Context, v *ledger.View, res *types.AccessResult, now time.Time) error {
	loc := s.ledger.Location()
	values := map[ledger.Field]string{
		ledger.FieldDate:     now.In(loc).Format("2006-01-02"),
		ledger.FieldIdentity: res.Identity,
		ledger.FieldName:     res.Name,
		ledger.FieldStatus:   res.Status,
		ledger.FieldCompany:  res.Company,
	}
	// A denied attempt is logged but never opens a session.
	if res.Granted {
		values[ledger.FieldEntry] = ledger.FormatTimestamp(now, loc)
	}

	idx, err := s.ledger.Append(ctx, v, values)
	if err != nil {
		return err
	}
	res.RowIndex = idx
	if res.Granted {
		res.Message = fmt.Sprintf("Entrada registrada para %s", res.Name)
	} else {
		res.Message = fmt.Sprintf("Cédula %s no registrada", res.Identity)
	}
	return nil
}

func (s *AccessService) exit(ctx context.Context, v *ledger.View, res *types.AccessResult, now time.Time) error {
	key := identity.Key(res.Identity)
	if ev, ok := occupancy.Locate(v.Events, []string{key})[key]; ok {
		label, err := s.ledger.CloseSession(ctx, v, ev, now, ledger.CloseOptions{
			Extra: map[ledger.Field]string{ledger.FieldCompany: res.Company},
		})
		if err != nil {
			return err
		}
		res.RowIndex = ev.RowIndex
		res.Duration = label
		res.Message = fmt.Sprintf("Salida registrada para %s", res.Name)
		return nil
	}

	loc := s.ledger.Location()
	idx, err := s.ledger.Append(ctx, v, map[ledger.Field]string{
		ledger.FieldDate:     now.In(loc).Format("2006-01-02"),
		ledger.FieldIdentity: res.Identity,
		ledger.FieldName:     res.Name,
		ledger.FieldStatus:   res.Status,
		ledger.FieldExit:     ledger.FormatTimestamp(now, loc),
		ledger.FieldDuration: noEntryLabel,
		ledger.FieldCompany:  res.Company,
	})
	if err != nil {
		return err
	}
	res.RowIndex = idx
	res.SinEntradaPrevia = true
	res.Duration = noEntryLabel
	res.Message = fmt.Sprintf("Salida registrada sin entrada previa para %s", res.Name)
	return nil
}
