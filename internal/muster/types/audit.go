package types

import "time"

type AuditKind string

const (
	AuditRealEvacuation      AuditKind = "REAL_EVACUATION"
	AuditSimulatedEvacuation AuditKind = "SIMULATED_EVACUATION"
	AuditLogError            AuditKind = "LOG_ERROR"
)

func AuditKindFor(m Mode) AuditKind {
	if m == ModeSimulated {
		return AuditSimulatedEvacuation
	}
	return AuditRealEvacuation
}

type AuditEntry struct {
	SessionID     string    `json:"session_id"`
	Timestamp     time.Time `json:"timestamp"`
	Kind          AuditKind `json:"event_kind"`
	Operator      string    `json:"operator"`
	AffectedCount int       `json:"affected_count"`
	Detail        string    `json:"detail"`
	Status        string    `json:"status"`
	Observations  string    `json:"observations"`
	Notes         string    `json:"notes"`
	PrevHash      string    `json:"prev_hash"`
	Hash          string    `json:"hash"`
}
