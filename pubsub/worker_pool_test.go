package pubsub

import (
	"errors"
	"sync"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

type memWriter struct {
	mu     sync.Mutex
	points []*write.Point
	err    error
}

func (w *memWriter) WritePoints(points []*write.Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.points = append(w.points, points...)
	return nil
}

func (w *memWriter) byMeasurement(name string) []*write.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*write.Point
	for _, p := range w.points {
		if p.Name() == name {
			out = append(out, p)
		}
	}
	return out
}

func pointHandler(name string) Handler {
	return func(event *types.Event) []*write.Point {
		return []*write.Point{influxdb2.NewPoint(name, nil, map[string]any{"n": event.Block.Number}, time.Now())}
	}
}

func eventAt(number uint64) *types.Event {
	return &types.Event{Block: &types.Block{Head: *headAt(number)}}
}

func TestWorkerPool_WritesPoints(t *testing.T) {
	writer := &memWriter{}
	pool := NewWorkerPool(3, 4, writer)

	var tasks []Task
	for i := range 20 {
		tasks = append(tasks, Task{EventType: "test", Handler: pointHandler("test"), Event: eventAt(uint64(i))})
	}
	require.NoError(t, pool.SubmitBatch(tasks))
	pool.Shutdown()

	assert.Len(t, writer.byMeasurement("test"), 20)
}

func TestWorkerPool_RecoversFromPanic(t *testing.T) {
	writer := &memWriter{}
	pool := NewWorkerPool(1, 4, writer)

	panicking := func(*types.Event) []*write.Point { panic("boom") }
	require.NoError(t, pool.SubmitBatch([]Task{
		{EventType: "panics", Handler: panicking, Event: eventAt(1)},
		{EventType: "ok", Handler: pointHandler("ok"), Event: eventAt(1)},
	}))
	pool.Shutdown()

	assert.Len(t, writer.byMeasurement("ok"), 1)
}

func TestWorkerPool_WriteErrorIsDropped(t *testing.T) {
	writer := &memWriter{err: errors.New("influx down")}
	pool := NewWorkerPool(2, 4, writer)

	require.NoError(t, pool.SubmitBatch([]Task{{EventType: "test", Handler: pointHandler("test"), Event: eventAt(1)}}))
	pool.Shutdown()
	assert.Empty(t, writer.byMeasurement("test"))
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1, 1, &memWriter{})
	pool.Shutdown()
	pool.Shutdown()

	err := pool.SubmitBatch([]Task{{EventType: "test", Handler: pointHandler("test"), Event: eventAt(1)}})
	require.EqualError(t, err, config.ErrWorkerPoolShutdown)
}
