package pubsub

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vechain/thor/v2/thor"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

// HeadSource supplies the block heights transactions are stamped with.
type HeadSource interface {
	// Best returns the newest head the source knows of.
	Best(ctx context.Context) (*types.Head, error)
	// Head returns the head at number, which must not be above Best.
	Head(ctx context.Context, number uint64) (*types.Head, error)
}

// FetchRange fetches the heads in [from, to] in parallel, returned in ascending order.
func FetchRange(ctx context.Context, src HeadSource, from, to uint64) ([]*types.Head, error) {
	if to < from {
		return nil, nil
	}
	heads := make([]*types.Head, to-from+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.DefaultWorkerPoolSize)
	for i := range heads {
		g.Go(func() error {
			number := from + uint64(i)
			head, err := src.Head(gctx, number)
			if err != nil {
				return fmt.Errorf(config.ErrFailedToFetchHead, number, err)
			}
			heads[i] = head
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return heads, nil
}

// LocalHeads derives heads from the wall clock: one head per interval since start, numbered from
// offset. It is used when no thor node is configured.
type LocalHeads struct {
	start    time.Time
	interval time.Duration
	offset   uint64
	now      func() time.Time
}

func NewLocalHeads(offset uint64, interval time.Duration) *LocalHeads {
	if interval <= 0 {
		interval = config.DefaultBlockInterval
	}
	return &LocalHeads{
		start:    time.Now(),
		interval: interval,
		offset:   offset,
		now:      time.Now,
	}
}

func (l *LocalHeads) Best(ctx context.Context) (*types.Head, error) {
	elapsed := l.now().Sub(l.start)
	if elapsed < 0 {
		elapsed = 0
	}
	return l.Head(ctx, l.offset+uint64(elapsed/l.interval))
}

func (l *LocalHeads) Head(_ context.Context, number uint64) (*types.Head, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], number)

	steps := int64(number) - int64(l.offset)
	return &types.Head{
		Number:    number,
		ID:        thor.Blake2b([]byte("local"), buf[:]),
		Timestamp: l.start.Add(time.Duration(steps) * l.interval).UTC(),
	}, nil
}
