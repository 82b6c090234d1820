package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vechain/thor/v2/api"
	"github.com/vechain/thor/v2/thorclient"
	"golang.org/x/sync/singleflight"

	"github.com/vechain/vouchledger/common"
	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

// ThorHeads reads heads from a VeChainThor node. Heads by number are final enough to cache;
// the best head is always fetched.
type ThorHeads struct {
	client *thorclient.Client
	cache  *lru.Cache[uint64, *types.Head]
	sf     singleflight.Group
}

func NewThorHeads(thorURL string, cacheSize int) (*ThorHeads, error) {
	if cacheSize <= 0 {
		cacheSize = config.DefaultCacheSize
	}
	cache, err := lru.New[uint64, *types.Head](cacheSize)
	if err != nil {
		return nil, fmt.Errorf(config.ErrFailedToCreateCache, err)
	}
	return &ThorHeads{
		client: thorclient.New(thorURL),
		cache:  cache,
	}, nil
}

func (t *ThorHeads) Best(ctx context.Context) (*types.Head, error) {
	var head *types.Head
	err := common.Retry(ctx, func() error {
		var err error
		head, err = t.fetch("best")
		return err
	}, config.DefaultRetryDelay, config.DefaultTimeout)
	return head, err
}

// Head returns the head at number. Concurrent calls for the same number share one fetch, which
// runs detached from the callers and is bounded by config.DefaultTimeout; each caller stops
// waiting when its own ctx is done.
func (t *ThorHeads) Head(ctx context.Context, number uint64) (*types.Head, error) {
	if cached, ok := t.cache.Get(number); ok {
		return cached, nil
	}
	key := strconv.FormatUint(number, 10)

	result := t.sf.DoChan(key, func() (interface{}, error) {
		if cached, ok := t.cache.Get(number); ok {
			return cached, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.DefaultTimeout)
		defer cancel()

		var head *types.Head
		err := common.Retry(fetchCtx, func() error {
			var err error
			head, err = t.fetch(key)
			return err
		}, config.DefaultRetryDelay, config.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		t.cache.Add(number, head)
		return head, nil
	})

	select {
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.Head), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *ThorHeads) fetch(revision string) (*types.Head, error) {
	block, err := t.client.Block(revision)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block %s: %w", revision, err)
	}
	if block == nil {
		return nil, errors.New("block " + revision + " not found")
	}
	return headOf(block), nil
}

func headOf(block *api.JSONCollapsedBlock) *types.Head {
	return &types.Head{
		Number:    uint64(block.Number),
		ID:        block.ID,
		Timestamp: time.Unix(int64(block.Timestamp), 0).UTC(),
	}
}
