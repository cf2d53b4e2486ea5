// Package store persists group results. Every backend implements
// conformance.ResultStore; file and database backends can also be read back.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilianp07/conformance/core/conformance"
	"github.com/kilianp07/conformance/core/factory"
	"github.com/kilianp07/conformance/core/model"
)

// Reader lists stored results.
type Reader interface {
	Query(ctx context.Context, q Query) ([]model.FitnessResult, error)
}

// Query filters stored results. Zero fields match everything.
type Query struct {
	Case       string
	Year       int
	Week       int
	Department string
	Status     model.Status
}

// Match reports whether r satisfies q.
func (q Query) Match(r model.FitnessResult) bool {
	switch {
	case q.Case != "" && r.Case != q.Case:
		return false
	case q.Year != 0 && r.Key.Year != q.Year:
		return false
	case q.Week != 0 && r.Key.Week != q.Week:
		return false
	case q.Department != "" && r.Key.Department != q.Department:
		return false
	case q.Status != "" && r.Status != q.Status:
		return false
	}
	return true
}

func filter(in []model.FitnessResult, q Query) []model.FitnessResult {
	var out []model.FitnessResult
	for _, r := range in {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

var registry = factory.NewRegistry[conformance.ResultStore]()

// Register adds a result store factory identified by name.
func Register(name string, f factory.Factory[conformance.ResultStore]) error {
	return registry.Register(name, f)
}

// Target is the location of one case of a run. Factories receive it through
// the reserved run_dir and case configuration keys.
type Target struct {
	RunDir string
	Case   string
}

// New creates the configured stores for target. Several stores are combined
// into a MultiStore.
func New(cfgs []factory.ModuleConfig, target Target) (conformance.ResultStore, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("no result store configured")
	}
	stores := make([]conformance.ResultStore, 0, len(cfgs))
	for _, c := range cfgs {
		conf := make(map[string]any, len(c.Conf)+2)
		for k, v := range c.Conf {
			conf[k] = v
		}
		conf["run_dir"] = target.RunDir
		conf["case"] = target.Case
		s, err := registry.Create(factory.ModuleConfig{Type: c.Type, Conf: conf})
		if err != nil {
			_ = NewMultiStore(stores...).Close()
			return nil, fmt.Errorf("result store %s: %w", c.Type, err)
		}
		stores = append(stores, s)
	}
	if len(stores) == 1 {
		return stores[0], nil
	}
	return NewMultiStore(stores...), nil
}

// Types returns the registered store types.
func Types() []string { return registry.Names() }

// resolvePath expands {case} in path and anchors relative paths in the run
// directory.
func resolvePath(path, def, runDir, caseName string) string {
	if path == "" {
		path = def
	}
	if caseName == "" {
		caseName = "default"
	}
	path = strings.ReplaceAll(path, "{case}", caseName)
	if !filepath.IsAbs(path) && runDir != "" {
		path = filepath.Join(runDir, path)
	}
	return path
}
