package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/conformance/core/model"
)

func result(year, week int, dep string, f *model.Fitness, st model.Status) model.FitnessResult {
	return model.FitnessResult{Key: model.GroupKey{Year: year, Week: week, Department: dep}, Fitness: f, Status: st}
}

func TestBuild(t *testing.T) {
	results := []model.FitnessResult{
		result(2021, 10, "ORTHO", model.Scored(1), model.StatusScored),
		result(2021, 2, "ORTHO", model.Scored(0.5), model.StatusScored),
		result(2021, 2, "CARDIO", model.Scored(1), model.StatusScored),
		result(2020, 52, "CARDIO", nil, model.StatusSkippedEmpty),
		result(2020, 52, "NEURO", nil, model.StatusTimedOut),
	}
	r := Build("e", results)
	assert.Equal(t, "e", r.Case)

	require.Len(t, r.ByDepartment, 3)
	assert.Equal(t, []string{"CARDIO", "NEURO", "ORTHO"}, Names(r.ByDepartment))
	cardio := r.ByDepartment[0]
	assert.Equal(t, 1.0, cardio.Average)
	assert.Equal(t, 2, cardio.Groups)
	assert.Equal(t, 1, cardio.Scored)
	assert.Equal(t, 1, cardio.Perfect)

	neuro := r.ByDepartment[1]
	assert.False(t, neuro.HasFitness())
	assert.Equal(t, 0.0, neuro.Average)
	assert.Equal(t, "NEURO: no fitness computed.", neuro.String())

	ortho := r.ByDepartment[2]
	assert.InDelta(t, 0.75, ortho.Average, 1e-9)
	assert.Greater(t, ortho.StdDev, 0.0)
	assert.Equal(t, "ORTHO: avg fitness 75.0%, perfect fitness 1/2", ortho.String())

	// Weeks sort numerically, not lexically.
	assert.Equal(t, []string{"2020-52", "2021-2", "2021-10"}, Names(r.ByWeek))
	assert.InDelta(t, 0.75, r.ByWeek[1].Average, 1e-9)
}

func TestValuesAlignsSeries(t *testing.T) {
	a := []Row{{Name: "CARDIO", Average: 0.5}}
	b := []Row{{Name: "ORTHO", Average: 0.9}, {Name: "CARDIO", Average: 0.7}}
	names := Names(a, b)
	assert.Equal(t, []string{"CARDIO", "ORTHO"}, names)
	assert.Equal(t, []float64{0.5, 0}, Values(names, a))
	assert.Equal(t, []float64{0.7, 0.9}, Values(names, b))
}

func TestBuildEmpty(t *testing.T) {
	r := Build("", nil)
	assert.Empty(t, r.ByDepartment)
	assert.Empty(t, r.ByWeek)
}
