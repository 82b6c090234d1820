package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vechain/thor/v2/thor"

	"github.com/vechain/vouchledger/ledger"
	"github.com/vechain/vouchledger/types"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

// applyAndAppend applies txs to l as block number and journals the result.
func applyAndAppend(t *testing.T, s *Store, l *ledger.Ledger, number uint64, txs ...*types.Tx) []*types.Receipt {
	t.Helper()
	block := &types.Block{
		Head: types.Head{
			Number:    number,
			ID:        thor.Blake2b([]byte{byte(number)}),
			Timestamp: time.Unix(int64(1700000000+number*10), 0).UTC(),
		},
		Txs: txs,
	}
	receipts := make([]*types.Receipt, len(txs))
	for i, tx := range txs {
		if tx.Ticket == uuid.Nil {
			tx.Ticket = uuid.New()
		}
		receipts[i] = l.Apply(number, tx)
	}
	require.NoError(t, s.Append(block, receipts, l.Snapshot().Digest()))
	return receipts
}

func TestGenesis(t *testing.T) {
	s, _ := openStore(t)

	_, _, ok, err := s.Genesis()
	require.NoError(t, err)
	require.False(t, ok)

	params := ledger.DefaultParams()
	params.MinStakeAmount = 7
	require.NoError(t, s.SetGenesis("admin", params))
	require.Error(t, s.SetGenesis("other", params))

	admin, got, ok, err := s.Genesis()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.Principal("admin"), admin)
	require.Equal(t, params, got)
}

func TestAppendAndLast(t *testing.T) {
	s, _ := openStore(t)

	head, _, err := s.Last()
	require.NoError(t, err)
	require.Nil(t, head)

	l, err := ledger.New("admin", ledger.DefaultParams())
	require.NoError(t, err)

	applyAndAppend(t, s, l, 1)
	applyAndAppend(t, s, l, 2, &types.Tx{Caller: "admin", Kind: types.TxVerifyUser, Target: "alice"})

	head, digest, err := s.Last()
	require.NoError(t, err)
	require.Equal(t, uint64(2), head.Number)
	require.Equal(t, thor.Blake2b([]byte{2}), head.ID)
	require.Equal(t, time.Unix(1700000020, 0).UTC(), head.Timestamp)
	require.Equal(t, l.Snapshot().Digest(), digest)

	// a block number can only be journaled once
	err = s.Append(&types.Block{Head: types.Head{Number: 2}}, nil, digest)
	require.Error(t, err)

	err = s.Append(&types.Block{Head: types.Head{Number: 3}, Txs: []*types.Tx{{}}}, nil, digest)
	require.Error(t, err)
}

func TestReceipt(t *testing.T) {
	s, _ := openStore(t)
	l, err := ledger.New("admin", ledger.DefaultParams())
	require.NoError(t, err)

	tx := &types.Tx{Caller: "alice", Kind: types.TxEndorseUser, Target: "bob", Amount: 100, Category: types.CategoryCommunity, Weight: 1}
	receipts := applyAndAppend(t, s, l, 5, tx)

	got, err := s.Receipt(tx.Ticket)
	require.NoError(t, err)
	require.Equal(t, receipts[0], got)
	require.Equal(t, uint32(ledger.CodeEndorserNotVerified), got.Code)

	_, err = s.Receipt(uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReplay(t *testing.T) {
	s, path := openStore(t)
	require.NoError(t, s.SetGenesis("admin", ledger.DefaultParams()))

	l, err := ledger.New("admin", ledger.DefaultParams())
	require.NoError(t, err)

	applyAndAppend(t, s, l, 1,
		&types.Tx{Caller: "admin", Kind: types.TxVerifyUser, Target: "alice"},
		&types.Tx{Caller: "admin", Kind: types.TxVerifyUser, Target: "carol"},
	)
	applyAndAppend(t, s, l, 2,
		&types.Tx{Caller: "alice", Kind: types.TxEndorseUser, Target: "bob", Amount: 100, Category: types.CategoryCommunity, Weight: 50},
		&types.Tx{Caller: "carol", Kind: types.TxEndorseUser, Target: "bob", Amount: 200, Category: types.CategoryProfessional, Weight: 70},
		&types.Tx{Caller: "bob", Kind: types.TxEndorseUser, Target: "bob", Amount: 200, Category: types.CategoryProfessional, Weight: 70},
	)
	applyAndAppend(t, s, l, 3)
	applyAndAppend(t, s, l, 146,
		&types.Tx{Caller: "alice", Kind: types.TxRevokeEndorsement, ID: 0, Reason: "moved"},
		&types.Tx{Caller: "alice", Kind: types.TxWithdrawStake, Amount: 1},
		&types.Tx{Caller: "admin", Kind: types.TxSetScoreThreshold, Amount: 10},
	)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	admin, params, ok, err := reopened.Genesis()
	require.NoError(t, err)
	require.True(t, ok)

	replayed, err := ledger.New(admin, params)
	require.NoError(t, err)
	head, err := Replay(reopened, replayed)
	require.NoError(t, err)
	require.Equal(t, uint64(146), head.Number)

	require.Equal(t, l.Snapshot().Digest(), replayed.Snapshot().Digest())
	require.Equal(t, uint64(14000), replayed.Score("bob"))
	require.Equal(t, uint64(200), replayed.ContractBalance())
	require.Equal(t, uint64(10), replayed.Params().ScoreThreshold)

	rev, ok := replayed.Revocation(0)
	require.True(t, ok)
	require.Equal(t, uint64(146), rev.Height)
}

func TestReplay_Empty(t *testing.T) {
	s, _ := openStore(t)
	l, err := ledger.New("admin", ledger.DefaultParams())
	require.NoError(t, err)

	head, err := Replay(s, l)
	require.NoError(t, err)
	require.Nil(t, head)
}

func TestReplay_DigestMismatch(t *testing.T) {
	s, _ := openStore(t)

	l, err := ledger.New("admin", ledger.DefaultParams())
	require.NoError(t, err)
	applyAndAppend(t, s, l, 1, &types.Tx{Caller: "admin", Kind: types.TxVerifyUser, Target: "alice"})

	params := ledger.DefaultParams()
	params.ScoreThreshold = 1
	other, err := ledger.New("admin", params)
	require.NoError(t, err)

	_, err = Replay(s, other)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not match")
}
