package types

import "time"

type EventType string

const (
	EventEntry     EventType = "ENTRY"
	EventExit      EventType = "EXIT"
	EventEntryExit EventType = "ENTRY+EXIT"
	EventUnknown   EventType = "UNKNOWN"
)

// AccessEvent is one ledger row as seen by the core. RowIndex is the row's
// position in the ledger and doubles as the recency key.
type AccessEvent struct {
	RowIndex           int
	Version            int64
	IdentityRaw        string
	IdentityNormalized string
	Name               string
	Company            string
	Status             string
	EntryRaw           string
	ExitRaw            string
	EntryAt            *time.Time // nil when the entry cell is empty or not a full timestamp
	ExitAt             *time.Time
	DurationLabel      string
}

func (e AccessEvent) HasEntry() bool { return e.EntryRaw != "" }
func (e AccessEvent) HasExit() bool  { return e.ExitRaw != "" }

// IsOpen reports whether the row is an open session: entry set, exit unset.
func (e AccessEvent) IsOpen() bool { return e.HasEntry() && !e.HasExit() }

// IsOrphanExit reports an exit recorded without a matching entry.
func (e AccessEvent) IsOrphanExit() bool { return !e.HasEntry() && e.HasExit() }

func (e AccessEvent) Type() EventType {
	switch {
	case e.HasEntry() && e.HasExit():
		return EventEntryExit
	case e.HasEntry():
		return EventEntry
	case e.HasExit():
		return EventExit
	default:
		return EventUnknown
	}
}

// OccupancyRecord is computed on every reconciliation and never persisted.
type OccupancyRecord struct {
	Identity    string
	IdentityKey string
	Name        string
	Company     string
	EntryRaw    string
	EntryAt     *time.Time
	RowIndex    int
}

// Occupancy is the result of a reconciliation pass. Records are ordered most
// recent first. On failure Records is empty, Success is false and Message
// carries the diagnostic.
type Occupancy struct {
	Success   bool
	Message   string
	Records   []OccupancyRecord
	Timestamp time.Time
}

func (o Occupancy) Total() int { return len(o.Records) }

// ByIdentity indexes the snapshot by normalized identity.
func (o Occupancy) ByIdentity() map[string]OccupancyRecord {
	out := make(map[string]OccupancyRecord, len(o.Records))
	for _, r := range o.Records {
		out[r.IdentityKey] = r
	}
	return out
}

type Person struct {
	Identity string `json:"cedula"`
	Name     string `json:"nombre"`
	Company  string `json:"empresa"`
}
