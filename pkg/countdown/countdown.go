package countdown

import (
	"fmt"
	"strings"
	"time"
)

const (
	secondsPerDay  = 24 * 60 * 60
	secondsPerHour = 60 * 60

	// ExpiredLabel is shown instead of a formatted countdown once the deadline is reached.
	ExpiredLabel = "Deadline passed"
)

// State is the remaining span between a reference instant and a target.
type State struct {
	// Days is nil when less than 24 hours remain.
	Days         *int64 `json:"days"`
	Hours        int    `json:"hours"`
	Minutes      int    `json:"minutes"`
	Seconds      int    `json:"seconds"`
	TotalSeconds int64  `json:"total_seconds"`
	Expired      bool   `json:"expired"`
}

// Tick computes the state of target as seen from now. It is a pure function
// of both instants: callers pass the current clock on every tick rather than
// decrementing a previous state.
func Tick(target, now time.Time) State {
	diff := target.Sub(now)
	st := State{Expired: diff <= 0}
	if diff < 0 {
		diff = 0
	}

	total := int64(diff / time.Second)
	st.TotalSeconds = total

	if days := total / secondsPerDay; days > 0 {
		st.Days = &days
	}
	st.Hours = int(total % secondsPerDay / secondsPerHour)
	st.Minutes = int(total % secondsPerHour / 60)
	st.Seconds = int(total % 60)
	return st
}

// Format renders "1d 02h 03m 04s", omitting the day segment when Days is nil.
func Format(st State) string {
	var b strings.Builder
	if st.Days != nil {
		fmt.Fprintf(&b, "%dd ", *st.Days)
	}
	fmt.Fprintf(&b, "%02dh %02dm %02ds", st.Hours, st.Minutes, st.Seconds)
	return b.String()
}

// Label is the display string for st.
func Label(st State) string {
	if st.Expired {
		return ExpiredLabel
	}
	return "Time remaining: " + Format(st)
}
