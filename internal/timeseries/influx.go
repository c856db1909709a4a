package timeseries

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxConfig locates a bucket.
type InfluxConfig struct {
	URL     string
	Token   string
	Org     string
	Bucket  string
	Timeout time.Duration
}

// Influx writes points synchronously and answers event read-back queries.
// Safe for concurrent use.
type Influx struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	reader api.QueryAPI
	bucket string
}

// timeoutSeconds rounds up so a sub-second timeout never becomes 0 (no timeout).
func timeoutSeconds(d time.Duration) uint {
	return uint((d + time.Second - 1) / time.Second)
}

// NewInflux builds a client. No request is made until Ping or Write.
func NewInflux(cfg InfluxConfig) *Influx {
	opts := influxdb2.DefaultOptions()
	if cfg.Timeout > 0 {
		opts.SetHTTPRequestTimeout(timeoutSeconds(cfg.Timeout))
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	return &Influx{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		reader: client.QueryAPI(cfg.Org),
		bucket: cfg.Bucket,
	}
}

// Ping checks the server is reachable.
func (i *Influx) Ping(ctx context.Context) error {
	ok, err := i.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping influx: %w", err)
	}
	if !ok {
		return errors.New("ping influx: server not ready")
	}
	return nil
}

// Write stores one point.
func (i *Influx) Write(ctx context.Context, p Point) error {
	pt := influxdb2.NewPoint(p.Measurement, p.Tags, p.Fields, p.Time)
	if err := i.writer.WritePoint(ctx, pt); err != nil {
		return fmt.Errorf("write %s point: %w", p.Measurement, err)
	}
	return nil
}

// Windows reads access events in [start, stop) and regroups them into windows.
func (i *Influx) Windows(ctx context.Context, start, stop time.Time) ([]StoredWindow, error) {
	result, err := i.reader.Query(ctx, eventQuery(i.bucket, start, stop))
	if err != nil {
		return nil, fmt.Errorf("query access events: %w", err)
	}
	defer result.Close()

	var records []EventRecord
	for result.Next() {
		rec := result.Record()
		records = append(records, eventFromValues(rec.Time(), rec.Values()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read access events: %w", err)
	}
	return EventsToWindows(records), nil
}

// Close releases idle connections.
func (i *Influx) Close() {
	i.client.Close()
}

func eventQuery(bucket string, start, stop time.Time) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")`,
		bucket, start.UTC().Format(time.RFC3339), stop.UTC().Format(time.RFC3339), EventMeasurement)
}
