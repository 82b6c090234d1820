package pubsub

import (
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

// Mempool holds submitted transactions, in submission order, until the publisher stamps them
// into a block.
type Mempool struct {
	mu     sync.Mutex
	txs    []*types.Tx
	size   int
	closed bool
}

func NewMempool(size int) *Mempool {
	if size <= 0 {
		size = config.DefaultMempoolSize
	}
	return &Mempool{size: size}
}

// Submit queues tx and returns its ticket. A ticket is assigned if tx does not carry one; the
// receipt of the tx will carry the same ticket.
func (m *Mempool) Submit(tx *types.Tx) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return uuid.Nil, errors.New(config.ErrMempoolClosed)
	}
	if len(m.txs) >= m.size {
		return uuid.Nil, errors.New(config.ErrMempoolFull)
	}
	if tx.Ticket == uuid.Nil {
		tx.Ticket = uuid.New()
	}
	m.txs = append(m.txs, tx)
	return tx.Ticket, nil
}

// Drain removes and returns up to limit queued transactions, oldest first. A limit <= 0 drains all.
func (m *Mempool) Drain(limit int) []*types.Tx {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.txs)
	if limit > 0 && limit < n {
		n = limit
	}
	if n == 0 {
		return nil
	}
	out := make([]*types.Tx, n)
	copy(out, m.txs[:n])
	m.txs = append(m.txs[:0], m.txs[n:]...)
	return out
}

// Requeue puts txs back at the head of the queue, ahead of anything submitted since they were
// drained. It ignores the size limit and Close, since the txs were already accepted.
func (m *Mempool) Requeue(txs []*types.Tx) {
	if len(txs) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(slices.Clone(txs), m.txs...)
}

func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

// Close rejects further submissions. Queued transactions can still be drained.
func (m *Mempool) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
