package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/conformance/core/metrics"
	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/infra/logger"
)

// InfluxSink writes group outcomes to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	now      func() time.Time
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
		now:      time.Now,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordGroupResult writes one group_fitness point.
func (s *InfluxSink) RecordGroupResult(res model.FitnessResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, groupPoint(res, s.now()))
}

// RecordRun writes one conformance_run point per completed case.
func (s *InfluxSink) RecordRun(sum coremetrics.RunSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("conformance_run").
		AddTag("case", sum.Case).
		AddTag("run_id", sum.RunID).
		AddField("dropped", sum.Dropped).
		AddField("duration_ms", sum.Duration.Milliseconds())
	for _, st := range model.Statuses {
		p = p.AddField(string(st), sum.Counts[st])
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(sum.Time))
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func groupPoint(res model.FitnessResult, ts time.Time) *write.Point {
	p := write.NewPointWithMeasurement("group_fitness").
		AddTag("department", res.Key.Department).
		AddTag("year_week", res.Key.YearWeek()).
		AddTag("status", string(res.Status))
	if res.Case != "" {
		p = p.AddTag("case", res.Case)
	}
	if res.HasFitness() {
		p = p.AddField("fitness", round3(res.Fitness.Value))
	}
	return p.AddField("sync_moves", res.SyncMoves).
		AddField("log_moves", res.LogMoves).
		AddField("model_moves", res.ModelMoves).
		AddField("expanded", res.Expanded).
		AddField("duration_ms", res.DurationMS).
		SetTime(ts)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
