package recorder

import (
	"context"
	"fmt"
	"math"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

// InfluxRecorder writes one "observation" point per row.
type InfluxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *zap.Logger
	timeout  time.Duration
}

// NewInfluxRecorder creates a recorder writing to org/bucket.
func NewInfluxRecorder(url, token, org, bucket string, logger *zap.Logger) *InfluxRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := influxdb2.NewClient(url, token)
	return &InfluxRecorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		logger:   logger,
		timeout:  30 * time.Second,
	}
}

// Points converts a run into InfluxDB points. Undefined and non-finite
// fields are left out since line protocol has no null.
func (r *InfluxRecorder) Points(run *RunRecord) []*write.Point {
	res := run.Result
	points := make([]*write.Point, 0, len(res.Rows))
	for _, row := range res.Rows {
		fields := map[string]interface{}{}
		addField(fields, "price", row.Price)
		addField(fields, "fraction", row.Fraction)
		addField(fields, "cash", row.Cash)
		addField(fields, "units", row.Units)
		addField(fields, "value", row.Value)
		addField(fields, "profit_pct", row.ProfitPct)
		if row.Features.MA.IsSome() {
			addField(fields, "ma", row.Features.MA.Unwrap())
		}
		if row.Features.RSI.IsSome() {
			addField(fields, "rsi", row.Features.RSI.Unwrap())
		}
		if row.Features.MACD.IsSome() {
			addField(fields, "macd", row.Features.MACD.Unwrap())
		}
		if row.Features.SignalLine.IsSome() {
			addField(fields, "signal_line", row.Features.SignalLine.Unwrap())
		}
		fields["traded"] = row.Traded

		points = append(points, influxdb2.NewPoint(
			"observation",
			map[string]string{
				"symbol":   res.Request.Symbol,
				"interval": res.Request.Interval,
				"label":    row.Label.String(),
				"rule":     res.Rule,
				"run_id":   run.ID.String(),
			},
			fields,
			row.Time,
		))
	}
	return points
}

func addField(fields map[string]interface{}, name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	fields[name] = v
}

func (r *InfluxRecorder) RecordRun(run *RunRecord) error {
	points := r.Points(run)
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	r.logger.Debug("run written to influx", zap.String("run_id", run.ID.String()), zap.Int("points", len(points)))
	return nil
}

func (r *InfluxRecorder) Close() error {
	r.client.Close()
	return nil
}
