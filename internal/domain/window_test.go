package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tp(t time.Time) *time.Time {
	return &t
}

func TestNewTimeWindow(t *testing.T) {
	earlier := time.Date(2022, 9, 9, 0, 0, 0, 0, time.UTC)
	later := time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		after     *time.Time
		before    *time.Time
		expectErr bool
	}{
		{name: "both bounds in order", after: tp(earlier), before: tp(later)},
		{name: "equal bounds", after: tp(earlier), before: tp(earlier)},
		{name: "only after", after: tp(earlier)},
		{name: "only before", before: tp(later)},
		{name: "unbounded", after: nil, before: nil},
		{name: "backwards window", after: tp(later), before: tp(earlier), expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTimeWindow(tc.after, tc.before)
			if tc.expectErr {
				require.Error(t, err)
				var invalid InvalidWindowError
				assert.ErrorAs(t, err, &invalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTimeWindowContains(t *testing.T) {
	after := time.Date(2022, 9, 9, 12, 0, 0, 0, time.UTC)
	before := time.Date(2022, 12, 1, 12, 0, 0, 0, time.UTC)

	bounded, err := NewTimeWindow(tp(after), tp(before))
	require.NoError(t, err)
	openEnded, err := NewTimeWindow(tp(after), nil)
	require.NoError(t, err)
	unbounded, err := NewTimeWindow(nil, nil)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		window   TimeWindow
		ts       time.Time
		expected bool
	}{
		{name: "inside", window: bounded, ts: after.AddDate(0, 1, 0), expected: true},
		// Both bounds are inclusive.
		{name: "exactly at after", window: bounded, ts: after, expected: true},
		{name: "exactly at before", window: bounded, ts: before, expected: true},
		{name: "too early", window: bounded, ts: after.Add(-time.Second), expected: false},
		{name: "too late", window: bounded, ts: before.Add(time.Second), expected: false},
		{name: "open ended accepts the far future", window: openEnded, ts: before.AddDate(10, 0, 0), expected: true},
		{name: "open ended still has a floor", window: openEnded, ts: after.Add(-time.Second), expected: false},
		{name: "unbounded accepts anything", window: unbounded, ts: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.window.Contains(tc.ts))
		})
	}
}

func TestTimeWindowQualifierRange(t *testing.T) {
	after := time.Date(2022, 9, 9, 15, 30, 0, 0, time.UTC)
	before := time.Date(2022, 12, 1, 1, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		window   TimeWindow
		expected string
	}{
		{name: "both bounds", window: TimeWindow{After: tp(after), Before: tp(before)}, expected: "2022-09-09..2022-12-01"},
		{name: "only after", window: TimeWindow{After: tp(after)}, expected: "2022-09-09..*"},
		{name: "only before", window: TimeWindow{Before: tp(before)}, expected: "*..2022-12-01"},
		{name: "unbounded", window: TimeWindow{}, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.window.QualifierRange())
		})
	}
}
