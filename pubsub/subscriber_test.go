package pubsub

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/thor/v2/thor"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/ledger"
	"github.com/vechain/vouchledger/types"
)

type appended struct {
	block    *types.Block
	receipts []*types.Receipt
	digest   thor.Bytes32
}

type memJournal struct {
	entries []appended
	err     error
}

func (j *memJournal) Append(block *types.Block, receipts []*types.Receipt, digest thor.Bytes32) error {
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, appended{block: block, receipts: receipts, digest: digest})
	return nil
}

func newTestSubscriber(t *testing.T, journal Journal, applied *types.Head) (*Subscriber, *ledger.Ledger, *memWriter, chan *types.Block) {
	t.Helper()
	l, err := ledger.New("admin", ledger.DefaultParams())
	require.NoError(t, err)
	writer := &memWriter{}
	ch := make(chan *types.Block, 10)
	return NewSubscriber(ch, l, journal, writer, applied), l, writer, ch
}

func blockWith(number uint64, txs ...*types.Tx) *types.Block {
	return &types.Block{Head: *headAt(number), Txs: txs}
}

func TestSubscriber_Process(t *testing.T) {
	journal := &memJournal{}
	sub, l, writer, _ := newTestSubscriber(t, journal, nil)

	b := blockWith(1,
		&types.Tx{Caller: "admin", Kind: types.TxVerifyUser, Target: "alice"},
		&types.Tx{Caller: "alice", Kind: types.TxEndorseUser, Target: "bob", Amount: 100, Category: types.CategoryCommunity, Weight: 50},
		&types.Tx{Caller: "bob", Kind: types.TxEndorseUser, Target: "carol", Amount: 100, Category: types.CategoryCommunity, Weight: 50},
	)
	require.NoError(t, sub.process(b))
	sub.workerPool.Shutdown()

	require.Equal(t, uint64(1), sub.Applied().Number)
	assert.Equal(t, uint64(5000), l.Score("bob"))

	require.Len(t, journal.entries, 1)
	entry := journal.entries[0]
	require.Len(t, entry.receipts, 3)
	assert.True(t, entry.receipts[0].OK())
	assert.True(t, entry.receipts[1].OK())
	assert.Equal(t, uint32(ledger.CodeEndorserNotVerified), entry.receipts[2].Code)
	assert.Equal(t, l.Snapshot().Digest(), entry.digest)

	assert.Len(t, writer.byMeasurement(config.BlockStatsMeasurement), 1)
	assert.NotEmpty(t, writer.byMeasurement(config.EndorseeScoreMeasurement))
	assert.NotEmpty(t, writer.byMeasurement(config.EndorserStakeMeasurement))
}

func TestSubscriber_SkipsAppliedBlocks(t *testing.T) {
	journal := &memJournal{}
	sub, l, _, _ := newTestSubscriber(t, journal, headAt(5))
	defer sub.workerPool.Shutdown()

	require.NoError(t, sub.process(blockWith(5, &types.Tx{Caller: "admin", Kind: types.TxVerifyUser, Target: "alice"})))
	assert.Empty(t, journal.entries)
	assert.False(t, l.IsVerified("alice"))

	require.NoError(t, sub.process(blockWith(6, &types.Tx{Caller: "admin", Kind: types.TxVerifyUser, Target: "alice"})))
	assert.Len(t, journal.entries, 1)
	assert.True(t, l.IsVerified("alice"))
	assert.Equal(t, uint64(6), sub.Applied().Number)
}

func TestSubscriber_JournalError(t *testing.T) {
	journal := &memJournal{err: errors.New("disk full")}
	sub, _, writer, ch := newTestSubscriber(t, journal, nil)

	ch <- blockWith(1)
	err := sub.Subscribe(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrFailedToAppendJournal)
	assert.Nil(t, sub.Applied())
	assert.Empty(t, writer.byMeasurement(config.BlockStatsMeasurement))
}

func TestSubscriber_StopsOnClosedChannel(t *testing.T) {
	sub, _, writer, ch := newTestSubscriber(t, nil, nil)

	ch <- blockWith(1)
	ch <- blockWith(2)
	close(ch)

	done := make(chan error, 1)
	go func() { done <- sub.Subscribe(t.Context()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not stop")
	}
	assert.Equal(t, uint64(2), sub.Applied().Number)
	assert.Len(t, writer.byMeasurement(config.BlockStatsMeasurement), 2)
}

func TestSubscriber_AppliesBufferedBlocksOnCancel(t *testing.T) {
	journal := &memJournal{}
	sub, l, _, ch := newTestSubscriber(t, journal, nil)

	for i := range 10 {
		principal := types.Principal(fmt.Sprintf("user-%d", i))
		ch <- blockWith(uint64(i+1), &types.Tx{Caller: "admin", Kind: types.TxVerifyUser, Target: principal})
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.NoError(t, sub.Subscribe(ctx))

	assert.Len(t, journal.entries, 10)
	assert.Empty(t, ch)
	assert.Equal(t, uint64(10), sub.Applied().Number)
	for i := range 10 {
		assert.True(t, l.IsVerified(types.Principal(fmt.Sprintf("user-%d", i))))
	}
}
