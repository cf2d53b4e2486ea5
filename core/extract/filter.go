package extract

import "github.com/kilianp07/conformance/core/model"

// Filter decides which records take part in a run.
type Filter struct {
	// Categories keeps only records whose category is listed. Empty keeps all.
	Categories []string `json:"categories"`
	// Exclude drops records whose extra column holds one of the values.
	Exclude map[string][]string `json:"exclude"`
}

// Match reports whether r passes the filter.
func (f Filter) Match(r model.Record) bool {
	if len(f.Categories) > 0 && !contains(f.Categories, r.Category) {
		return false
	}
	for col, values := range f.Exclude {
		if v, ok := r.Extra[col]; ok && contains(values, v) {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
