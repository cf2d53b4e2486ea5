package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/kilianp07/conformance/core/alignment"
	"github.com/kilianp07/conformance/core/extract"
)

// CaseConfig is one named selection of operation categories. Every case is
// scored as an independent run.
type CaseConfig struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// AlignmentConfig drives the scoring of groups.
type AlignmentConfig struct {
	Workers        int  `json:"workers"`
	MaxExpansions  int  `json:"max_expansions"`
	ContiguousDays bool `json:"contiguous_days"`
	// Exclude drops records whose extra column holds one of the values, for
	// every case.
	Exclude map[string][]string `json:"exclude"`
	Cases   []CaseConfig        `json:"cases"`
}

// SetDefaults applies the elective-only and all-categories cases when none
// are configured.
func (c *AlignmentConfig) SetDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MaxExpansions <= 0 {
		c.MaxExpansions = alignment.DefaultMaxExpansions
	}
	if len(c.Cases) == 0 {
		c.Cases = []CaseConfig{
			{Name: "e", Categories: []string{"Elezione"}},
			{Name: "eue", Categories: []string{"Elezione", "Urgenza", "Emergenza"}},
		}
	}
}

// Validate checks case names are present and unique.
func (c AlignmentConfig) Validate() error {
	if len(c.Cases) == 0 {
		return errors.New("at least one case is required")
	}
	seen := map[string]bool{}
	for i, cs := range c.Cases {
		if cs.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[cs.Name] {
			return fmt.Errorf("duplicate case %q", cs.Name)
		}
		seen[cs.Name] = true
	}
	return nil
}

// Filter returns the record filter of a case.
func (c AlignmentConfig) Filter(cs CaseConfig) extract.Filter {
	return extract.Filter{Categories: cs.Categories, Exclude: c.Exclude}
}

// Case returns the case called name.
func (c AlignmentConfig) Case(name string) (CaseConfig, bool) {
	for _, cs := range c.Cases {
		if cs.Name == name {
			return cs, true
		}
	}
	return CaseConfig{}, false
}
