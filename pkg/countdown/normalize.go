// Package countdown derives a live "time remaining" view from a goal deadline.
//
// Normalize turns any of the deadline representations the stores and clients
// produce into a single time.Time. Tick computes the remaining span against a
// reference instant, Format and Label render it, and Start/Board run the
// once-per-second refresh with guaranteed teardown.
package countdown

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Timestamp wrappers: protobuf timestamps expose AsTime, BSON date-times Time.
type asTimer interface{ AsTime() time.Time }
type timer interface{ Time() time.Time }

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Normalize converts v into an instant. ok is false when v is absent,
// unparseable or the zero time.
//
// Date-only strings are read as UTC midnight; date-time strings without a
// zone are read in local time. Numbers are epoch milliseconds, and 0 counts
// as absent.
func Normalize(v any) (t time.Time, ok bool) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		t = d
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		t = *d
	case string:
		t, ok = parseString(d)
		if !ok {
			return time.Time{}, false
		}
	case *string:
		if d == nil {
			return time.Time{}, false
		}
		return Normalize(*d)
	case json.Number:
		if i, err := d.Int64(); err == nil {
			return fromMillis(i)
		}
		f, err := d.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromFloat(f)
	case int:
		return fromMillis(int64(d))
	case int64:
		return fromMillis(d)
	case float64:
		return fromFloat(d)
	case asTimer:
		t = d.AsTime()
	case timer:
		t = d.Time()
	default:
		return time.Time{}, false
	}
	if t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

func fromMillis(ms int64) (time.Time, bool) {
	if ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func fromFloat(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	return fromMillis(int64(f))
}

func parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
