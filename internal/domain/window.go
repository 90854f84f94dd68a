package domain

import (
	"fmt"
	"time"
)

// InvalidWindowError is returned when a window's bounds are out of order.
type InvalidWindowError string

func (e InvalidWindowError) Error() string {
	return string(e)
}

// TimeWindow is the date range a summary covers. A nil bound is unbounded on
// that side.
type TimeWindow struct {
	After  *time.Time `json:"after,omitempty"`
	Before *time.Time `json:"before,omitempty"`
}

// NewTimeWindow validates the bounds. A window that starts after it ends can
// never match anything, so it is rejected up front, before anything is
// fetched.
func NewTimeWindow(after, before *time.Time) (TimeWindow, error) {
	if after != nil && before != nil && after.After(*before) {
		return TimeWindow{}, InvalidWindowError(fmt.Sprintf(
			"window starts %s, after it ends %s",
			after.Format(time.RFC3339), before.Format(time.RFC3339),
		))
	}
	return TimeWindow{After: after, Before: before}, nil
}

// Contains reports whether t falls inside the window. Bounds are inclusive;
// a missing bound never excludes.
func (w TimeWindow) Contains(t time.Time) bool {
	if w.After != nil && t.Before(*w.After) {
		return false
	}
	if w.Before != nil && t.After(*w.Before) {
		return false
	}
	return true
}

const qualifierDayLayout = "2006-01-02"

// QualifierRange renders the window as a search date range like
// "2022-09-09..*", or "" when unbounded on both sides. Search qualifiers are
// day-granular, so the range is never narrower than the window itself; exact
// filtering always happens locally via Contains.
func (w TimeWindow) QualifierRange() string {
	if w.After == nil && w.Before == nil {
		return ""
	}
	from, to := "*", "*"
	if w.After != nil {
		from = w.After.UTC().Format(qualifierDayLayout)
	}
	if w.Before != nil {
		to = w.Before.UTC().Format(qualifierDayLayout)
	}
	return from + ".." + to
}
