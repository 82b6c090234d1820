package influxdb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"

	"github.com/vechain/vouchledger/config"
)

type DB struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

func New(url, token, org, bucket string) (*DB, error) {
	influx := influxdb2.NewClient(url, token)

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultTimeout)
	defer cancel()
	if _, err := influx.Ping(ctx); err != nil {
		slog.Error("failed to ping influxdb", "error", err)
		influx.Close()
		return nil, err
	}

	return &DB{
		client:   influx,
		writeAPI: influx.WriteAPIBlocking(org, bucket),
		org:      org,
		bucket:   bucket,
	}, nil
}

func (i *DB) WritePoints(points []*write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultTimeout)
	defer cancel()
	return i.writeAPI.WritePoint(ctx, points...)
}

// Latest returns the newest block number written to the block stats measurement, or 0 if none.
func (i *DB) Latest() (uint64, error) {
	query := fmt.Sprintf(`from(bucket: "%s")
	  |> range(start: 2015-01-01T00:00:00Z, stop: 2100-01-01T00:00:00Z)
	  |> filter(fn: (r) => r["_measurement"] == "%s")
	  |> filter(fn: (r) => r["_field"] == "%s")
	  |> group()
	  |> max()`, i.bucket, config.BlockStatsMeasurement, config.BlockNumberField)

	res, err := i.client.QueryAPI(i.org).Query(context.Background(), query)
	if err != nil {
		return 0, err
	}
	defer res.Close()

	if res.Next() {
		switch v := res.Record().Value().(type) {
		case uint64:
			return v, nil
		case int64:
			return uint64(v), nil
		default:
			slog.Warn("failed to cast block number", "value", v)
			return 0, nil
		}
	}

	if err := res.Err(); err != nil {
		slog.Error("error in result", "error", err)
		return 0, err
	}
	return 0, nil
}

// DeleteSince removes every point stamped after since. It is used when the bucket holds
// blocks the journal does not.
func (i *DB) DeleteSince(since time.Time) error {
	stop := time.Now().Add(time.Hour)
	if err := i.client.DeleteAPI().DeleteWithName(context.Background(), i.org, i.bucket, since, stop, ""); err != nil {
		return errors.Wrap(err, "failed to delete points")
	}
	return nil
}

func (i *DB) Close() {
	i.client.Close()
}
