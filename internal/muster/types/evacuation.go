package types

import (
	"strings"
	"time"
)

type Mode string

const (
	ModeReal      Mode = "real"
	ModeSimulated Mode = "simulated"
)

// ParseMode accepts the canonical names plus the aliases used by the
// registration desk ("simulacro", "drill").
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "real", "":
		return ModeReal, true
	case "simulated", "simulation", "simulacro", "drill":
		return ModeSimulated, true
	default:
		return Mode(s), false
	}
}

type EvacuationRequest struct {
	Targets   []string  `json:"targets" validate:"required,min=1"`
	Mode      Mode      `json:"mode" validate:"required,oneof=real simulated"`
	Operator  string    `json:"operator"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

// ResolvedPerson is one closed (or, in simulated mode, projected) session.
type ResolvedPerson struct {
	Identity      string     `json:"cedula"`
	Name          string     `json:"nombre"`
	Company       string     `json:"empresa"`
	EntryRaw      string     `json:"horaEntrada"`
	EntryAt       *time.Time `json:"entrada,omitempty"`
	ExitAt        time.Time  `json:"horaSalida"`
	Projected     bool       `json:"proyectada"`
	DurationLabel string     `json:"duracion,omitempty"`
	RowIndex      int        `json:"filaHistorial"`
}

// EvacuationOutcome is created once per request and never mutated after it
// is returned.
type EvacuationOutcome struct {
	SessionID string           `json:"sessionId"`
	Mode      Mode             `json:"tipo"`
	Resolved  []ResolvedPerson `json:"personasEvacuadas"`
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	ElapsedMs int64            `json:"tiempoMs"`
	Occupancy OccupancyPayload `json:"personasDentroActualizadas"`
}

func (o *EvacuationOutcome) TotalResolved() int { return len(o.Resolved) }
