package journal

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/ledger"
	"github.com/vechain/vouchledger/types"
)

// Replay re-applies every journaled transaction to l, which must be freshly created from the
// journal genesis, and checks the resulting state digest against the one journaled with the
// last block. It returns the last journaled head, or nil for an empty journal.
func Replay(s *Store, l *ledger.Ledger) (*types.Head, error) {
	head, digest, err := s.Last()
	if err != nil {
		return nil, errors.Wrap(err, config.ErrFailedToReplayJournal)
	}
	if head == nil {
		return nil, nil
	}

	applied, diverged := 0, 0
	err = s.Entries(func(e Entry) error {
		receipt := l.Apply(e.Height, e.Tx)
		if receipt.Code != e.Code {
			diverged++
			slog.Warn("replayed tx outcome differs from journal",
				"height", e.Height,
				"kind", e.Tx.Kind,
				"journaled", e.Code,
				"replayed", receipt.Code)
		}
		applied++
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, config.ErrFailedToReplayJournal)
	}

	replayed := l.Snapshot().Digest()
	if replayed != digest {
		return nil, fmt.Errorf(config.ErrDigestMismatch, replayed, digest, head.Number)
	}

	slog.Info("📜 journal replayed", "head", head.Number, "txs", applied, "diverged", diverged, "digest", replayed)
	return head, nil
}
