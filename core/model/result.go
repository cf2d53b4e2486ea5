package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Status is the terminal outcome of scoring one group.
type Status string

const (
	StatusScored       Status = "scored"
	StatusSkippedEmpty Status = "skipped_empty"
	StatusTimedOut     Status = "timed_out"
	StatusUnscorable   Status = "unscorable"
	StatusFailed       Status = "failed"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusScored, StatusSkippedEmpty, StatusTimedOut, StatusUnscorable, StatusFailed}

const unscorableLiteral = "unscorable"

// Fitness is a score in [0,1] or the unscorable marker.
type Fitness struct {
	Value    float64
	Scorable bool
}

// Scored returns a scorable fitness value.
func Scored(v float64) *Fitness { return &Fitness{Value: v, Scorable: true} }

// Unscorable returns the unscorable marker.
func Unscorable() *Fitness { return &Fitness{} }

func (f Fitness) String() string {
	if !f.Scorable {
		return unscorableLiteral
	}
	return fmt.Sprintf("%.4f", f.Value)
}

// MarshalJSON encodes a number or the string "unscorable".
func (f Fitness) MarshalJSON() ([]byte, error) {
	if !f.Scorable {
		return json.Marshal(unscorableLiteral)
	}
	if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
		return nil, fmt.Errorf("fitness %v is not a finite number", f.Value)
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON accepts a number or the string "unscorable".
func (f *Fitness) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != unscorableLiteral {
			return fmt.Errorf("unexpected fitness literal %q", s)
		}
		*f = Fitness{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Fitness{Value: v, Scorable: true}
	return nil
}

// FitnessResult is the persisted outcome of one group.
type FitnessResult struct {
	Key        GroupKey `json:"key"`
	Case       string   `json:"case,omitempty"`
	RunID      string   `json:"run_id,omitempty"`
	Status     Status   `json:"status"`
	Fitness    *Fitness `json:"fitness"`
	SyncMoves  int      `json:"sync_moves"`
	LogMoves   int      `json:"log_moves"`
	ModelMoves int      `json:"model_moves"`
	TraceLen   int      `json:"trace_len"`
	PlanLen    int      `json:"plan_len"`
	Cost       int      `json:"cost"`
	Expanded   int      `json:"expanded"`
	DurationMS int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// HasFitness reports whether the result carries a numeric fitness.
func (r FitnessResult) HasFitness() bool {
	return r.Fitness != nil && r.Fitness.Scorable
}
