package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/core/report"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ResultsByKey indexes results by their canonical group key, the layout of a
// results file.
func ResultsByKey(results []model.FitnessResult) map[string]model.FitnessResult {
	out := make(map[string]model.FitnessResult, len(results))
	for _, r := range results {
		out[r.Key.String()] = r
	}
	return out
}

// WriteResultsCSV writes one line per group result.
func WriteResultsCSV(w io.Writer, results []model.FitnessResult) error {
	cw := csv.NewWriter(w)
	header := []string{"year", "week", "department", "case", "status", "fitness", "sync_moves", "log_moves", "model_moves", "trace_len", "plan_len", "expanded"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		fit := ""
		if r.Fitness != nil {
			fit = r.Fitness.String()
		}
		rec := []string{
			strconv.Itoa(r.Key.Year),
			strconv.Itoa(r.Key.Week),
			r.Key.Department,
			r.Case,
			string(r.Status),
			fit,
			strconv.Itoa(r.SyncMoves),
			strconv.Itoa(r.LogMoves),
			strconv.Itoa(r.ModelMoves),
			strconv.Itoa(r.TraceLen),
			strconv.Itoa(r.PlanLen),
			strconv.Itoa(r.Expanded),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRowsCSV writes report rows with their averages.
func WriteRowsCSV(w io.Writer, rows []report.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "average", "std_dev", "scored", "perfect", "groups"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Name,
			strconv.FormatFloat(r.Average, 'f', -1, 64),
			strconv.FormatFloat(r.StdDev, 'f', -1, 64),
			strconv.Itoa(r.Scored),
			strconv.Itoa(r.Perfect),
			strconv.Itoa(r.Groups),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
