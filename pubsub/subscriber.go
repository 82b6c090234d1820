package pubsub

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
	"github.com/vechain/thor/v2/thor"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/ledger"
	"github.com/vechain/vouchledger/stats/receipts"
	"github.com/vechain/vouchledger/stats/scores"
	"github.com/vechain/vouchledger/stats/stakes"
	"github.com/vechain/vouchledger/types"
)

type Handler func(event *types.Event) []*write.Point

// Journal records every applied block so the ledger can be rebuilt on restart.
type Journal interface {
	Append(block *types.Block, receipts []*types.Receipt, digest thor.Bytes32) error
}

// Subscriber applies blocks to the ledger in order, journals them and hands the resulting
// snapshot to the stats handlers.
type Subscriber struct {
	blockChan  <-chan *types.Block
	ledger     *ledger.Ledger
	journal    Journal
	handlers   map[string]Handler
	workerPool *WorkerPool
	applied    *atomic.Pointer[types.Head]
}

// NewSubscriber creates a subscriber continuing after the applied head, which is nil for a
// fresh ledger. journal may be nil.
func NewSubscriber(
	blockChan <-chan *types.Block,
	l *ledger.Ledger,
	journal Journal,
	writer PointWriter,
	applied *types.Head,
) *Subscriber {
	handlers := make(map[string]Handler)
	handlers["scores"] = scores.Write
	handlers["stakes"] = stakes.Write
	handlers["receipts"] = receipts.Write

	workerPool := NewWorkerPool(config.DefaultWorkerPoolSize, config.DefaultTaskQueueSize, writer)
	head := &atomic.Pointer[types.Head]{}
	if applied != nil {
		head.Store(applied)
	}

	return &Subscriber{
		blockChan:  blockChan,
		ledger:     l,
		journal:    journal,
		handlers:   handlers,
		workerPool: workerPool,
		applied:    head,
	}
}

// Subscribe consumes blocks until ctx is done or the block channel is closed. Blocks already
// buffered when ctx is done are still applied. It stops with an error if a block cannot be
// journaled, since the in-memory ledger would then be ahead of it.
func (s *Subscriber) Subscribe(ctx context.Context) error {
	defer s.workerPool.Shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Subscriber context cancelled, applying buffered blocks", "buffered", len(s.blockChan))
			return s.drain()
		case b, ok := <-s.blockChan:
			if !ok {
				slog.Info("block channel closed, subscriber stopping")
				return nil
			}
			if err := s.process(b); err != nil {
				return err
			}
		}
	}
}

// drain applies the blocks already in the channel without waiting for more.
func (s *Subscriber) drain() error {
	for {
		select {
		case b, ok := <-s.blockChan:
			if !ok {
				return nil
			}
			if err := s.process(b); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s *Subscriber) process(b *types.Block) error {
	if applied := s.Applied(); applied != nil && b.Number <= applied.Number {
		slog.Warn("skipping block at or below the applied head", "block", b.Number, "applied", applied.Number)
		return nil
	}

	results := make([]*types.Receipt, len(b.Txs))
	for i, tx := range b.Txs {
		results[i] = s.ledger.Apply(b.Number, tx)
	}
	snapshot := s.ledger.Snapshot()

	if s.journal != nil {
		if err := s.journal.Append(b, results, snapshot.Digest()); err != nil {
			return errors.Wrap(err, config.ErrFailedToAppendJournal)
		}
	}
	head := b.Head
	s.applied.Store(&head)

	if b.Number%config.LogIntervalBlocks == 0 || len(b.Txs) > 0 {
		slog.Info("🪣 applied block", "number", b.Number, "txs", len(b.Txs), "balance", snapshot.ContractBalance())
	}

	event := &types.Event{
		Block:    b,
		Receipts: results,
		State:    snapshot,
		DefaultTags: map[string]string{
			"admin":        string(snapshot.Admin()),
			"block_number": strconv.FormatUint(b.Number, 10),
		},
	}

	tasks := make([]Task, 0, len(s.handlers))
	for name, handler := range s.handlers {
		tasks = append(tasks, Task{
			EventType: name,
			Handler:   handler,
			Event:     event,
		})
	}
	if err := s.workerPool.SubmitBatch(tasks); err != nil {
		slog.Error("Failed to submit tasks to worker pool", "error", err, "block_number", b.Number)
	}
	return nil
}

// Applied returns the last head applied to the ledger.
func (s *Subscriber) Applied() *types.Head {
	return s.applied.Load()
}
