package model

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupKey identifies one scoring unit: an ISO week of a year for a department.
type GroupKey struct {
	Year       int    `json:"year"`
	Week       int    `json:"week"`
	Department string `json:"department"`
}

// ParseGroupKey parses the dataset representation "<year>-<week>-<department>".
// Only the first two separators split, so departments may contain dashes.
func ParseGroupKey(s string) (GroupKey, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 3)
	if len(parts) != 3 {
		return GroupKey{}, fmt.Errorf("%w: group key %q", ErrMalformedRecord, s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return GroupKey{}, fmt.Errorf("%w: group key year %q", ErrMalformedRecord, parts[0])
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil || week < 0 || week > 53 {
		return GroupKey{}, fmt.Errorf("%w: group key week %q", ErrMalformedRecord, parts[1])
	}
	if parts[2] == "" {
		return GroupKey{}, fmt.Errorf("%w: group key %q has no department", ErrMalformedRecord, s)
	}
	return GroupKey{Year: year, Week: week, Department: parts[2]}, nil
}

// String renders the canonical "<year>-<week>-<department>" form.
func (k GroupKey) String() string {
	return fmt.Sprintf("%d-%d-%s", k.Year, k.Week, k.Department)
}

// YearWeek returns the period part of the key, e.g. "2021-7".
func (k GroupKey) YearWeek() string {
	return fmt.Sprintf("%d-%d", k.Year, k.Week)
}

// Less orders keys by year, week and department.
func (k GroupKey) Less(o GroupKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Week != o.Week {
		return k.Week < o.Week
	}
	return k.Department < o.Department
}

// MarshalText implements encoding.TextMarshaler so keys can index JSON objects.
func (k GroupKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *GroupKey) UnmarshalText(b []byte) error {
	parsed, err := ParseGroupKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PlannedOperation is one operation planned for a calendar day.
type PlannedOperation struct {
	// Day is the number of days since the Unix epoch (UTC).
	Day      int
	Activity string
}

// ObservedEvent is one executed operation at a position of the trace.
type ObservedEvent struct {
	Position int
	Activity string
}

// Trace is the ordered sequence of observed events of a group.
type Trace []ObservedEvent

// Labels returns the activity labels in trace order.
func (t Trace) Labels() []string {
	out := make([]string, len(t))
	for i, ev := range t {
		out[i] = ev.Activity
	}
	return out
}

// NewTrace builds a trace from activity labels, numbering positions from zero.
func NewTrace(labels ...string) Trace {
	t := make(Trace, len(labels))
	for i, l := range labels {
		t[i] = ObservedEvent{Position: i, Activity: l}
	}
	return t
}

// Group bundles the planned operations and the observed trace of one key.
type Group struct {
	Key      GroupKey
	Planned  []PlannedOperation
	Observed Trace
}
