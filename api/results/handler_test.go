package results

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/core/report"
	"github.com/kilianp07/conformance/infra/logger"
	"github.com/kilianp07/conformance/infra/store"
)

func seeded(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	put := func(c string, y, w int, d string, st model.Status, f *model.Fitness) {
		require.NoError(t, s.Put(context.Background(), model.FitnessResult{
			Key: model.GroupKey{Year: y, Week: w, Department: d}, Case: c, Status: st, Fitness: f,
		}))
	}
	put("e", 2021, 7, "CARDIO", model.StatusScored, model.Scored(0.5))
	put("e", 2021, 7, "ORTHO", model.StatusScored, model.Scored(1))
	put("e", 2021, 8, "CARDIO", model.StatusSkippedEmpty, nil)
	put("eue", 2021, 7, "CARDIO", model.StatusScored, model.Scored(0.8))
	return s
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestListResults(t *testing.T) {
	h := NewRouter(seeded(t), nil, logger.NopLogger{})

	rr := do(t, h, "/api/results?case=e&week=7")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var got []model.FitnessResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "CARDIO", got[0].Key.Department)

	rr = do(t, h, "/api/results?department=NONE")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = do(t, h, "/api/results?year=abc")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetResult(t *testing.T) {
	h := NewRouter(seeded(t), nil, logger.NopLogger{})

	rr := do(t, h, "/api/results/2021/7/ORTHO")
	require.Equal(t, http.StatusOK, rr.Code)
	var got model.FitnessResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.InDelta(t, 1.0, got.Fitness.Value, 1e-9)

	rr = do(t, h, "/api/results/2021/7/CARDIO")
	require.Equal(t, http.StatusOK, rr.Code)
	var both []model.FitnessResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &both))
	assert.Len(t, both, 2)

	rr = do(t, h, "/api/results/2021/7/CARDIO?case=eue")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"case":"eue"`)

	assert.Equal(t, http.StatusNotFound, do(t, h, "/api/results/2021/9/CARDIO").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "/api/results/x/9/CARDIO").Code)
}

func TestReports(t *testing.T) {
	h := NewRouter(seeded(t), nil, logger.NopLogger{})

	rr := do(t, h, "/api/report/departments?case=e")
	require.Equal(t, http.StatusOK, rr.Code)
	var deps []report.Row
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &deps))
	require.Len(t, deps, 2)
	assert.Equal(t, "CARDIO", deps[0].Name)
	assert.Equal(t, 2, deps[0].Groups)
	assert.Equal(t, 1, deps[0].Scored)
	assert.Equal(t, 1, deps[1].Perfect)

	rr = do(t, h, "/api/report/weeks?case=e")
	require.Equal(t, http.StatusOK, rr.Code)
	var weeks []report.Row
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &weeks))
	require.Len(t, weeks, 2)
	assert.Equal(t, "2021-7", weeks[0].Name)
	assert.InDelta(t, 0.75, weeks[0].Average, 1e-9)
	assert.False(t, weeks[1].HasFitness())
}

func TestMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "conformance_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()
	h := NewRouter(seeded(t), reg, logger.NopLogger{})

	rr := do(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "conformance_test_total 1"))

	rr = do(t, h, "/health")
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, NewRouter(seeded(t), nil, logger.NopLogger{}), "/metrics").Code)
}

type brokenReader struct{}

func (brokenReader) Query(context.Context, store.Query) ([]model.FitnessResult, error) {
	return nil, errors.New("disk on fire")
}

func TestQueryFailure(t *testing.T) {
	h := NewRouter(brokenReader{}, nil, logger.NopLogger{})
	assert.Equal(t, http.StatusInternalServerError, do(t, h, "/api/results").Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, h, "/api/report/weeks").Code)
}
