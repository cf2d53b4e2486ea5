// Package report aggregates group results by department and by week.
package report

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/conformance/core/model"
)

// Row is the aggregate of one department or one year-week.
type Row struct {
	Name string `json:"name"`
	// Average is the mean fitness, 0 when no group of the row has one.
	Average float64 `json:"average"`
	StdDev  float64 `json:"std_dev"`
	// Scored counts the groups with a fitness value.
	Scored  int `json:"scored"`
	Perfect int `json:"perfect"`
	// Groups counts every group of the row, whatever its status.
	Groups int `json:"groups"`
}

// HasFitness reports whether at least one group of the row was scored.
func (r Row) HasFitness() bool { return r.Scored > 0 }

func (r Row) String() string {
	if !r.HasFitness() {
		return fmt.Sprintf("%s: no fitness computed.", r.Name)
	}
	return fmt.Sprintf("%s: avg fitness %.1f%%, perfect fitness %d/%d", r.Name, r.Average*100, r.Perfect, r.Scored)
}

// Report holds both aggregations of one result set.
type Report struct {
	Case         string `json:"case,omitempty"`
	ByDepartment []Row  `json:"by_department"`
	ByWeek       []Row  `json:"by_week"`
}

// Build aggregates results. Every key present in results gets a row, so
// groups that were skipped or failed still show up without a fitness.
// Departments are ordered alphabetically, weeks by year then week.
func Build(caseName string, results []model.FitnessResult) Report {
	deps := newBuckets()
	weeks := newBuckets()
	weekOrder := map[string]model.GroupKey{}
	for _, r := range results {
		deps.add(r.Key.Department, r)
		yw := r.Key.YearWeek()
		weeks.add(yw, r)
		weekOrder[yw] = model.GroupKey{Year: r.Key.Year, Week: r.Key.Week}
	}

	depNames := deps.names()
	sort.Strings(depNames)
	weekNames := weeks.names()
	sort.Slice(weekNames, func(i, j int) bool { return weekOrder[weekNames[i]].Less(weekOrder[weekNames[j]]) })

	return Report{
		Case:         caseName,
		ByDepartment: deps.rows(depNames),
		ByWeek:       weeks.rows(weekNames),
	}
}

type bucket struct {
	values []float64
	groups int
}

type buckets map[string]*bucket

func newBuckets() buckets { return buckets{} }

func (b buckets) add(name string, r model.FitnessResult) {
	bk, ok := b[name]
	if !ok {
		bk = &bucket{}
		b[name] = bk
	}
	bk.groups++
	if r.HasFitness() {
		bk.values = append(bk.values, r.Fitness.Value)
	}
}

func (b buckets) names() []string {
	out := make([]string, 0, len(b))
	for n := range b {
		out = append(out, n)
	}
	return out
}

func (b buckets) rows(order []string) []Row {
	out := make([]Row, 0, len(order))
	for _, name := range order {
		bk := b[name]
		row := Row{Name: name, Groups: bk.groups, Scored: len(bk.values)}
		switch len(bk.values) {
		case 0:
		case 1:
			row.Average = bk.values[0]
		default:
			row.Average, row.StdDev = stat.MeanStdDev(bk.values, nil)
		}
		for _, v := range bk.values {
			if v == 1 {
				row.Perfect++
			}
		}
		out = append(out, row)
	}
	return out
}

// Names returns the union of row names of several reports, keeping the
// order of first appearance. It lines up series before charting.
func Names(rows ...[]Row) []string {
	seen := map[string]bool{}
	var out []string
	for _, rs := range rows {
		for _, r := range rs {
			if !seen[r.Name] {
				seen[r.Name] = true
				out = append(out, r.Name)
			}
		}
	}
	return out
}

// Values returns the averages of rows aligned on names. Missing names are 0.
func Values(names []string, rows []Row) []float64 {
	idx := make(map[string]float64, len(rows))
	for _, r := range rows {
		idx[r.Name] = r.Average
	}
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = idx[n]
	}
	return out
}
