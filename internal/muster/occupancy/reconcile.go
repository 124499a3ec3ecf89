// Package occupancy derives who is currently inside from the ledger. There
// is no "current occupants" table: the latest row for each identity decides.
package occupancy

import (
	"sort"

	"github.com/BrandonDHaskell/muster/internal/muster/identity"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

// openSessions scans events newest first. The first row with an entry or an
// exit settles its key: open rows are returned, closed or orphan rows only
// mark the key as seen so older rows for it are ignored. Rows with neither
// (denied attempts, blank rows) settle nothing. keep limits the scan to some
// keys; nil keeps all.
func openSessions(events []types.AccessEvent, keep func(key string) bool) map[string]types.AccessEvent {
	open := make(map[string]types.AccessEvent)
	seen := make(map[string]struct{})

	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		key := identity.Key(ev.IdentityRaw)
		if key == "" {
			continue
		}
		if keep != nil && !keep(key) {
			continue
		}
		if !ev.HasEntry() && !ev.HasExit() {
			continue
		}
		if _, done := seen[key]; done {
			continue
		}
		seen[key] = struct{}{}
		if ev.IsOpen() {
			open[key] = ev
		}
	}
	return open
}

// Reconcile returns the occupancy map keyed by normalized identity. It does
// not modify events; the same input always yields the same map.
func Reconcile(events []types.AccessEvent) map[string]types.OccupancyRecord {
	open := openSessions(events, nil)
	out := make(map[string]types.OccupancyRecord, len(open))
	for key, ev := range open {
		out[key] = record(key, ev)
	}
	return out
}

// Ordered is Reconcile as a slice, most recent entry first.
func Ordered(events []types.AccessEvent) []types.OccupancyRecord {
	m := Reconcile(events)
	out := make([]types.OccupancyRecord, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowIndex > out[j].RowIndex })
	return out
}

// Locate finds the open session of each key using the same latest-row rule
// as Reconcile. Keys without one are absent from the result.
func Locate(events []types.AccessEvent, keys []string) map[string]types.AccessEvent {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	return openSessions(events, func(key string) bool {
		_, ok := want[key]
		return ok
	})
}

func record(key string, ev types.AccessEvent) types.OccupancyRecord {
	id := ev.IdentityNormalized
	if id == "" {
		id = ev.IdentityRaw
	}
	return types.OccupancyRecord{
		Identity:    id,
		IdentityKey: key,
		Name:        ev.Name,
		Company:     ev.Company,
		EntryRaw:    ev.EntryRaw,
		EntryAt:     ev.EntryAt,
		RowIndex:    ev.RowIndex,
	}
}
