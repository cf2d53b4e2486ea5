package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/conformance/core/metrics"
	"github.com/kilianp07/conformance/core/model"
)

func TestInfluxSink_RecordGroupResult(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	sink.now = func() time.Time { return now }

	res := model.FitnessResult{
		Key:        model.GroupKey{Year: 2021, Week: 7, Department: "CARDIO"},
		Case:       "e",
		Status:     model.StatusScored,
		Fitness:    model.Scored(2.0 / 3.0),
		SyncMoves:  1,
		ModelMoves: 1,
		Expanded:   4,
		DurationMS: 2,
	}
	if err := sink.RecordGroupResult(res); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("group_fitness").
		AddTag("department", "CARDIO").
		AddTag("year_week", "2021-7").
		AddTag("status", "scored").
		AddTag("case", "e").
		AddField("fitness", 0.667).
		AddField("sync_moves", 1).
		AddField("log_moves", 0).
		AddField("model_moves", 1).
		AddField("expanded", 4).
		AddField("duration_ms", int64(2)).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestInfluxSink_TimedOutHasNoFitnessField(t *testing.T) {
	p := groupPoint(model.FitnessResult{
		Key:    model.GroupKey{Year: 2021, Week: 8, Department: "ORTHO"},
		Status: model.StatusTimedOut,
	}, time.Unix(0, 0))
	line := write.PointToLineProtocol(p, time.Nanosecond)
	if strings.Contains(line, "fitness=") {
		t.Fatalf("unexpected fitness field: %s", line)
	}
	if !strings.Contains(line, "status=timed_out") {
		t.Fatalf("missing status tag: %s", line)
	}
}

func TestInfluxSink_RecordRun(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	sum := coremetrics.RunSummary{
		RunID:    "r1",
		Case:     "eue",
		Counts:   map[model.Status]int{model.StatusScored: 4, model.StatusSkippedEmpty: 1},
		Duration: time.Second,
		Time:     time.Now(),
	}
	if err := sink.RecordRun(sum); err != nil {
		t.Fatalf("record: %v", err)
	}
	for _, want := range []string{"conformance_run", "case=eue", "run_id=r1", "scored=4i", "skipped_empty=1i", "duration_ms=1000i"} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
