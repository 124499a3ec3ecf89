package service

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/occupancy"
)

type Status struct {
	OK          bool              `json:"ok"`
	Ledger      string            `json:"ledger"`
	Message     string            `json:"message,omitempty"`
	Rows        int               `json:"rows"`
	TotalDentro int               `json:"totalDentro"`
	Sheets      map[string]string `json:"sheets"`
	TimeZone    string            `json:"timezone"`
	ServerTime  string            `json:"server_time"`
}

// StatusService reports whether the ledger can be read, for /v1/status and
// the gRPC health check.
type StatusService struct {
	ledger *ledger.Ledger
	sheets map[string]string
	now    func() time.Time
}

func NewStatusService(l *ledger.Ledger, sheets map[string]string, now func() time.Time) *StatusService {
	if now == nil {
		now = time.Now
	}
	return &StatusService{ledger: l, sheets: sheets, now: now}
}

func (s *StatusService) Check(ctx context.Context) Status {
	st := Status{
		Ledger:     s.ledger.SheetName(),
		Sheets:     s.sheets,
		TimeZone:   s.ledger.Location().String(),
		ServerTime: ledger.FormatTimestamp(s.now(), s.ledger.Location()),
	}
	v, err := s.ledger.Load(ctx)
	if err != nil {
		st.Message = err.Error()
		return st
	}
	st.OK = true
	st.Rows = len(v.Events)
	st.TotalDentro = len(occupancy.Reconcile(v.Events))
	return st
}
