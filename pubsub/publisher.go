package pubsub

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

const querySize = config.DefaultQuerySize

// Publisher turns new heads into blocks. Every head above the previous one becomes a block;
// the mempool is drained into the newest block of each round.
type Publisher struct {
	heads     HeadSource
	mempool   *Mempool
	prev      *atomic.Pointer[types.Head]
	blockChan chan *types.Block
	interval  time.Duration
	maxTxs    int
}

// NewPublisher creates a publisher that continues after prev. A nil prev starts at the current
// best head.
func NewPublisher(heads HeadSource, mempool *Mempool, prev *types.Head, interval time.Duration, maxTxs int) (*Publisher, chan *types.Block) {
	if interval <= 0 {
		interval = config.DefaultBlockInterval
	}
	previous := &atomic.Pointer[types.Head]{}
	if prev != nil {
		previous.Store(prev)
	}
	blockChan := make(chan *types.Block, config.DefaultChannelBuffer)

	return &Publisher{
		heads:     heads,
		mempool:   mempool,
		prev:      previous,
		blockChan: blockChan,
		interval:  interval,
		maxTxs:    maxTxs,
	}, blockChan
}

// Publish polls the head source every interval until ctx is done, then closes the block channel.
func (p *Publisher) Publish(ctx context.Context) {
	defer close(p.blockChan)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PublishOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("failed to publish blocks", "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("publisher - context done")
			return
		case <-ticker.C:
		}
	}
}

// PublishOnce emits a block for every head between the previous head and the best one, at most
// querySize per call, and returns how many blocks were emitted.
func (p *Publisher) PublishOnce(ctx context.Context) (int, error) {
	best, err := p.heads.Best(ctx)
	if err != nil {
		return 0, err
	}

	prev := p.previous()
	var heads []*types.Head
	switch {
	case prev == nil:
		heads = []*types.Head{best}
	case best.Number <= prev.Number:
		return 0, nil
	default:
		to := best.Number
		if to-prev.Number > querySize {
			to = prev.Number + querySize
			slog.Info("🛵 catching up heads", "prev", prev.Number, "best", best.Number)
		}
		heads, err = FetchRange(ctx, p.heads, prev.Number+1, to)
		if err != nil {
			return 0, err
		}
	}

	last := len(heads) - 1
	for i, head := range heads {
		block := &types.Block{Head: *head}
		if i == last {
			block.Txs = p.mempool.Drain(p.maxTxs)
		}
		if head.Number%config.LogIntervalBlocks == 0 || len(block.Txs) > 0 {
			slog.Info("✅ publishing block", "number", head.Number, "txs", len(block.Txs))
		}
		select {
		case p.blockChan <- block:
		case <-ctx.Done():
			p.mempool.Requeue(block.Txs)
			return i, ctx.Err()
		}
		p.prev.Store(head)
	}
	return len(heads), nil
}

func (p *Publisher) previous() *types.Head {
	return p.prev.Load()
}
