package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedRecord marks a dataset row that cannot be turned into a Record.
var ErrMalformedRecord = errors.New("malformed record")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Slice distinguishes the planned schedule from what actually happened.
type Slice int

const (
	SlicePlanned Slice = iota + 1
	SliceActual
)

func (s Slice) String() string {
	switch s {
	case SlicePlanned:
		return "planned"
	case SliceActual:
		return "actual"
	default:
		return "unknown"
	}
}

// Record is one ingested dataset row.
type Record struct {
	Key      GroupKey  `validate:"required"`
	Slice    Slice     `validate:"oneof=1 2"`
	Date     time.Time `validate:"required"`
	Activity string    `validate:"required"`
	Category string
	// Extra keeps the remaining columns for inclusion predicates.
	Extra map[string]string
}

// Validate checks the record fields and wraps failures in ErrMalformedRecord.
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return nil
}

// DayNumber converts a date to days since the Unix epoch in UTC.
func DayNumber(t time.Time) int {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Unix() / 86400)
}

// DayDate is the inverse of DayNumber.
func DayDate(day int) time.Time {
	return time.Unix(int64(day)*86400, 0).UTC()
}
