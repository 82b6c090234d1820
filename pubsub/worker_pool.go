package pubsub

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

// PointWriter persists the points produced by handlers.
type PointWriter interface {
	WritePoints(points []*write.Point) error
}

// Task is one handler run against one applied block.
type Task struct {
	EventType string
	Handler   Handler
	Event     *types.Event
}

// WorkerPool runs handler tasks concurrently and writes their points.
type WorkerPool struct {
	workers    int
	taskQueue  chan Task
	writer     PointWriter
	wg         sync.WaitGroup
	mu         sync.RWMutex
	isShutdown bool
}

func NewWorkerPool(workers int, queueSize int, writer PointWriter) *WorkerPool {
	if workers <= 0 {
		workers = config.DefaultWorkerPoolSize
	}
	if queueSize <= 0 {
		queueSize = config.DefaultTaskQueueSize
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		writer:    writer,
	}

	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	slog.Info("Worker pool started", "workers", workers, "queue_size", queueSize)
	return pool
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	slog.Debug("Worker started", "worker_id", id)
	for task := range wp.taskQueue {
		wp.processTask(task, id)
	}
	slog.Debug("Task queue closed, worker shutting down", "worker_id", id)
}

func (wp *WorkerPool) processTask(task Task, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 1024)
			for {
				n := runtime.Stack(buf, false)
				if n < len(buf) {
					buf = buf[:n]
					break
				}
				buf = make([]byte, 2*len(buf))
			}
			slog.Error("Worker panic recovered",
				"worker_id", workerID,
				"event_type", task.EventType,
				"block_number", task.Event.Block.Number,
				"panic", r)

			// fmt so \n and \t are interpreted correctly
			fmt.Printf("Stack trace:\n%s\n", string(buf))
		}
	}()

	start := time.Now()
	points := task.Handler(task.Event)
	if len(points) == 0 {
		return
	}

	if err := wp.writer.WritePoints(points); err != nil {
		slog.Error("Failed to write points",
			"worker_id", workerID,
			"event_type", task.EventType,
			"error", err,
			"block_number", task.Event.Block.Number)
		return
	}
	slog.Debug("Task completed successfully",
		"worker_id", workerID,
		"event_type", task.EventType,
		"points", len(points),
		"duration", time.Since(start),
		"block_number", task.Event.Block.Number)
}

// SubmitBatch queues tasks, blocking while the queue is full.
func (wp *WorkerPool) SubmitBatch(tasks []Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.isShutdown {
		return errors.New(config.ErrWorkerPoolShutdown)
	}
	for _, task := range tasks {
		wp.taskQueue <- task
	}
	return nil
}

// Shutdown stops accepting tasks and waits until every queued task has run.
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if !wp.isShutdown {
		close(wp.taskQueue)
		wp.isShutdown = true
	}
	wp.mu.Unlock()

	slog.Info("Worker pool shutdown initiated, waiting for workers to complete")
	wp.wg.Wait()
	slog.Info("Worker pool shutdown completed")
}
