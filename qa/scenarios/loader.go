// Package scenarios replays YAML described groups through the conformance
// pipeline and checks their outcome.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/conformance/core/model"
)

// baseDay anchors scenario day offsets, 2021-06-21.
const baseDay = 18799

// DayDef lists the activities planned for one day offset.
type DayDef struct {
	Day        int      `yaml:"day"`
	Activities []string `yaml:"activities"`
}

// Expected is the outcome a scenario must produce.
type Expected struct {
	Status  model.Status `yaml:"status"`
	Fitness *float64     `yaml:"fitness,omitempty"`
	Sync    int          `yaml:"sync"`
	Log     int          `yaml:"log"`
	Model   int          `yaml:"model"`
}

type Scenario struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description,omitempty"`
	Plan           []DayDef `yaml:"plan"`
	Trace          []string `yaml:"trace"`
	ContiguousDays bool     `yaml:"contiguous_days,omitempty"`
	MaxExpansions  int      `yaml:"max_expansions,omitempty"`
	Expected       Expected `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario has no name", path)
	}
	if sc.Expected.Status == "" {
		return nil, fmt.Errorf("%s: scenario has no expected status", path)
	}
	return &sc, nil
}

// Group converts the scenario into the group scored by the pipeline.
func (s *Scenario) Group(key model.GroupKey) model.Group {
	g := model.Group{Key: key, Observed: model.NewTrace(s.Trace...)}
	for _, d := range s.Plan {
		for _, a := range d.Activities {
			g.Planned = append(g.Planned, model.PlannedOperation{Day: baseDay + d.Day, Activity: a})
		}
	}
	return g
}
