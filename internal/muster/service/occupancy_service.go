package service

import (
	"context"

	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/occupancy"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

type OccupancyService struct {
	reconciler *occupancy.Reconciler
	ledger     *ledger.Ledger
}

func NewOccupancyService(r *occupancy.Reconciler, l *ledger.Ledger) *OccupancyService {
	return &OccupancyService{reconciler: r, ledger: l}
}

// Current is the occupancy snapshot as of now. Never fails; see
// occupancy.Reconciler.Snapshot.
func (s *OccupancyService) Current(ctx context.Context) types.Occupancy {
	return s.reconciler.Snapshot(ctx)
}

func (s *OccupancyService) Payload(ctx context.Context) types.OccupancyPayload {
	return occupancy.Payload(s.Current(ctx), s.ledger.Location())
}
