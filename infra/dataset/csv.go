// Package dataset reads the scheduling dataset into records.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/kilianp07/conformance/core/logger"
	"github.com/kilianp07/conformance/core/model"
)

// Columns names the dataset columns the loader reads.
type Columns struct {
	Group    string `json:"group"`
	Slice    string `json:"slice"`
	Date     string `json:"date"`
	Activity string `json:"activity"`
	Category string `json:"category"`
}

// Options configures the CSV loader.
type Options struct {
	Path       string  `json:"path"`
	Separator  string  `json:"separator"`
	Encoding   string  `json:"encoding"`
	DateFormat string  `json:"date_format"`
	Columns    Columns `json:"columns"`
	// PlannedValue and ActualValue are the values of the slice column.
	PlannedValue string `json:"planned_value"`
	ActualValue  string `json:"actual_value"`
	// Extra lists additional columns copied into Record.Extra.
	Extra []string `json:"extra"`
}

// Stats counts the rows seen by the loader.
type Stats struct {
	Rows    int
	Records int
	Dropped int
}

// Load reads the dataset at opts.Path.
func Load(ctx context.Context, opts Options, log logger.Logger) ([]model.Record, Stats, error) {
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(ctx, f, opts, log)
}

// Read decodes a dataset stream. Malformed rows are dropped and counted; a
// missing column or an unreadable stream is an error.
func Read(ctx context.Context, r io.Reader, opts Options, log logger.Logger) ([]model.Record, Stats, error) {
	var st Stats
	src, err := decoder(r, opts.Encoding)
	if err != nil {
		return nil, st, err
	}
	cr := csv.NewReader(src)
	if opts.Separator != "" {
		cr.Comma = []rune(opts.Separator)[0]
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, st, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header, opts)
	if err != nil {
		return nil, st, err
	}

	var out []model.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				st.Rows++
				st.Dropped++
				continue
			}
			return nil, st, fmt.Errorf("read dataset: %w", err)
		}
		st.Rows++
		if st.Rows%10000 == 0 && ctx.Err() != nil {
			return nil, st, ctx.Err()
		}
		rec, err := parseRow(row, idx, opts)
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			st.Dropped++
			if log != nil {
				log.Debugf("row %d dropped: %v", st.Rows+1, err)
			}
			continue
		}
		out = append(out, rec)
	}
	st.Records = len(out)
	if log != nil {
		log.Infof("dataset: %d rows, %d records, %d dropped", st.Rows, st.Records, st.Dropped)
	}
	return out, st, nil
}

func decoder(r io.Reader, enc string) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(enc, "_", "-")) {
	case "", "utf-8", "utf8":
		return r, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("unsupported dataset encoding %q", enc)
	}
}

type columns struct {
	group, slice, date, activity, category int
	extra                                  map[string]int
}

func columnIndex(header []string, opts Options) (columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	lookup := func(name string, required bool) (int, error) {
		if i, ok := pos[name]; ok {
			return i, nil
		}
		if !required {
			return -1, nil
		}
		return -1, fmt.Errorf("dataset has no column %q", name)
	}
	var c columns
	var err error
	if c.group, err = lookup(opts.Columns.Group, true); err != nil {
		return c, err
	}
	if c.slice, err = lookup(opts.Columns.Slice, true); err != nil {
		return c, err
	}
	if c.date, err = lookup(opts.Columns.Date, true); err != nil {
		return c, err
	}
	if c.activity, err = lookup(opts.Columns.Activity, true); err != nil {
		return c, err
	}
	if c.category, err = lookup(opts.Columns.Category, opts.Columns.Category != ""); err != nil {
		return c, err
	}
	c.extra = make(map[string]int, len(opts.Extra))
	for _, name := range opts.Extra {
		i, err := lookup(name, true)
		if err != nil {
			return c, err
		}
		c.extra[name] = i
	}
	return c, nil
}

func parseRow(row []string, c columns, opts Options) (model.Record, error) {
	field := func(i int) (string, error) {
		if i < 0 {
			return "", nil
		}
		if i >= len(row) {
			return "", fmt.Errorf("%w: short row with %d fields", model.ErrMalformedRecord, len(row))
		}
		return strings.TrimSpace(row[i]), nil
	}
	var rec model.Record
	raw, err := field(c.group)
	if err != nil {
		return rec, err
	}
	if rec.Key, err = model.ParseGroupKey(raw); err != nil {
		return rec, err
	}
	if raw, err = field(c.slice); err != nil {
		return rec, err
	}
	switch raw {
	case opts.PlannedValue:
		rec.Slice = model.SlicePlanned
	case opts.ActualValue:
		rec.Slice = model.SliceActual
	default:
		return rec, fmt.Errorf("%w: slice %q", model.ErrMalformedRecord, raw)
	}
	if raw, err = field(c.date); err != nil {
		return rec, err
	}
	if rec.Date, err = time.ParseInLocation(opts.DateFormat, raw, time.UTC); err != nil {
		return rec, fmt.Errorf("%w: date %q", model.ErrMalformedRecord, raw)
	}
	if rec.Activity, err = field(c.activity); err != nil {
		return rec, err
	}
	if rec.Category, err = field(c.category); err != nil {
		return rec, err
	}
	if len(c.extra) > 0 {
		rec.Extra = make(map[string]string, len(c.extra))
		for name, i := range c.extra {
			v, err := field(i)
			if err != nil {
				return rec, err
			}
			rec.Extra[name] = v
		}
	}
	return rec, nil
}
