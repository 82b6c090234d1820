package ledger

import (
	"log/slog"

	"github.com/vechain/vouchledger/types"
)

// Apply executes tx as a call made by tx.Caller at the given block height and returns its
// receipt. Rejected calls leave the ledger unchanged and carry the error code in the receipt.
func (l *Ledger) Apply(height uint64, tx *types.Tx) *types.Receipt {
	receipt := &types.Receipt{
		Ticket: tx.Ticket,
		Kind:   tx.Kind,
		Caller: tx.Caller,
		Height: height,
	}
	if id, err := tx.Hash(); err == nil {
		receipt.TxID = id
	}

	value, err := l.dispatch(height, tx)
	if err != nil {
		receipt.Code = uint32(CodeOf(err))
		receipt.Log = err.Error()
		slog.Debug("tx rejected", "height", height, "kind", tx.Kind, "caller", tx.Caller, "code", receipt.Code, "error", err)
		return receipt
	}
	receipt.Value = value
	return receipt
}

func (l *Ledger) dispatch(height uint64, tx *types.Tx) (uint64, error) {
	switch tx.Kind {
	case types.TxEndorseUser:
		return l.EndorseUser(tx.Caller, height, tx.Target, tx.Amount, tx.Category, tx.Weight)
	case types.TxRevokeEndorsement:
		return tx.ID, l.RevokeEndorsement(tx.Caller, height, tx.ID, tx.Reason)
	case types.TxVerifyEndorsement:
		return tx.ID, l.VerifyEndorsement(tx.Caller, tx.ID)
	case types.TxUpdateEndorseeScore:
		return l.UpdateEndorseeScore(tx.Target), nil
	case types.TxWithdrawStake:
		return tx.Amount, l.WithdrawStake(tx.Caller, tx.Amount)
	case types.TxSetMinStakeAmount:
		return tx.Amount, l.SetMinStakeAmount(tx.Caller, tx.Amount)
	case types.TxSetMaxStakeAmount:
		return tx.Amount, l.SetMaxStakeAmount(tx.Caller, tx.Amount)
	case types.TxSetStakeLockPeriod:
		return tx.Amount, l.SetStakeLockPeriod(tx.Caller, tx.Amount)
	case types.TxSetScoreDecayFactor:
		return tx.Amount, l.SetScoreDecayFactor(tx.Caller, tx.Amount)
	case types.TxSetMinEndorsers:
		return tx.Amount, l.SetMinEndorsers(tx.Caller, tx.Amount)
	case types.TxSetMaxEndorsersPerUser:
		return tx.Amount, l.SetMaxEndorsersPerUser(tx.Caller, tx.Amount)
	case types.TxSetScoreThreshold:
		return tx.Amount, l.SetScoreThreshold(tx.Caller, tx.Amount)
	case types.TxSetVerificationRequired:
		return 0, l.SetVerificationRequired(tx.Caller, tx.Flag)
	case types.TxVerifyUser:
		return 0, l.VerifyUser(tx.Caller, tx.Target)
	default:
		return 0, ErrUnknownTx
	}
}
