package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

// Layouts tried in order when reading a timestamp cell. Cells written by
// this package are RFC3339; the rest cover hand-edited sheets.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
}

// ParseTimestamp reads a full date-and-time cell. Time-only values such as
// "08:00" carry no date and yield nil, as does anything unparseable.
func ParseTimestamp(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l, s, loc); err == nil {
			return &t
		}
	}
	return nil
}

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04:05 PM"}

// EntryTime returns when a session opened, for duration labels. A full
// timestamp is used as is. A time-only cell is placed on exit's calendar day
// in loc, or the day before when that would fall after exit.
func EntryTime(ev types.AccessEvent, exit time.Time, loc *time.Location) *time.Time {
	if ev.EntryAt != nil {
		return ev.EntryAt
	}
	raw := strings.TrimSpace(ev.EntryRaw)
	if raw == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, l := range clockLayouts {
		c, err := time.Parse(l, raw)
		if err != nil {
			continue
		}
		day := exit.In(loc)
		t := time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), c.Second(), 0, loc)
		if t.After(exit) {
			t = t.AddDate(0, 0, -1)
		}
		return &t
	}
	return nil
}

func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(time.RFC3339)
}

// FormatClock renders HH:mm in loc.
func FormatClock(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("15:04")
}

// DurationLabel floors exit-entry to whole minutes as "{h}h {m}m". A negative
// span (clock skew, hand edits) is reported as "0h 0m".
func DurationLabel(entry, exit time.Time) string {
	d := exit.Sub(entry)
	if d < 0 {
		d = 0
	}
	mins := int64(d / time.Minute)
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}
