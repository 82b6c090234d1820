package stakes_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/ledger"
	"github.com/vechain/vouchledger/stats/stakes"
	"github.com/vechain/vouchledger/types"
)

func TestWrite(t *testing.T) {
	l, err := ledger.New("admin", ledger.DefaultParams())
	require.NoError(t, err)
	require.NoError(t, l.SetVerificationRequired("admin", false))

	txs := []*types.Tx{
		{Caller: "alice", Kind: types.TxEndorseUser, Target: "bob", Amount: 300, Category: types.CategoryPersonal, Weight: 1},
		{Caller: "alice", Kind: types.TxWithdrawStake, Amount: 120},
		{Caller: "carol", Kind: types.TxWithdrawStake, Amount: 1},
	}
	receipts := make([]*types.Receipt, len(txs))
	for i, tx := range txs {
		receipts[i] = l.Apply(3, tx)
	}
	ev := &types.Event{
		Block:       &types.Block{Head: types.Head{Number: 3, Timestamp: time.Now()}, Txs: txs},
		Receipts:    receipts,
		State:       l.Snapshot(),
		DefaultTags: map[string]string{},
	}

	points := stakes.Write(ev)
	require.Len(t, points, 2)

	stake := points[0]
	require.Equal(t, config.EndorserStakeMeasurement, stake.Name())
	require.Len(t, stake.TagList(), 1)
	require.Equal(t, "alice", stake.TagList()[0].Value)
	require.Equal(t, uint64(180), stake.FieldList()[0].Value)

	balance := points[1]
	require.Equal(t, config.ContractBalanceMeasurement, balance.Name())
	values := make(map[string]any)
	for _, f := range balance.FieldList() {
		values[f.Key] = f.Value
	}
	require.Equal(t, uint64(180), values[config.BalanceField])
	require.Equal(t, uint64(1), values["next_endorsement_id"])
}
