package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/conformance/core/model"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestScenarioGroup(t *testing.T) {
	sc := &Scenario{
		Plan:  []DayDef{{Day: 0, Activities: []string{"A", "B"}}, {Day: 2, Activities: []string{"C"}}},
		Trace: []string{"A", "C"},
	}
	g := sc.Group(model.GroupKey{Year: 2021, Week: 25, Department: "QA"})
	require.Len(t, g.Planned, 3)
	assert.Equal(t, baseDay, g.Planned[0].Day)
	assert.Equal(t, baseDay+2, g.Planned[2].Day)
	assert.Equal(t, []string{"A", "C"}, g.Observed.Labels())
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("no-file.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("expected:\n  status: scored\n"), 0o644))
	_, err = Load(unnamed)
	assert.Error(t, err)

	nostatus := filepath.Join(dir, "nostatus.yaml")
	require.NoError(t, os.WriteFile(nostatus, []byte("name: x\n"), 0o644))
	_, err = Load(nostatus)
	assert.Error(t, err)
}
