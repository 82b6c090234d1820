// Package ledger implements the endorsement state machine: staking, verification, revocation
// and scoring of endorsements between principals, bounded by admin-controlled parameters.
package ledger

import (
	"math"
	"math/bits"
	"sync"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

// Ledger owns every endorsement and the indices derived from them. All methods are safe for
// concurrent use; each mutation runs its checks and effects under a single write lock.
type Ledger struct {
	mu sync.RWMutex
	state
}

// New creates an empty ledger administered by admin. The params must satisfy every setter
// invariant.
func New(admin types.Principal, params types.Params) (*Ledger, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	return &Ledger{state: newState(admin, params)}, nil
}

// EndorseUser stakes stake from caller on endorsee and returns the new endorsement id.
func (l *Ledger) EndorseUser(
	caller types.Principal,
	height uint64,
	endorsee types.Principal,
	stake uint64,
	category types.Category,
	weight uint64,
) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case caller == endorsee:
		return 0, ErrSelfEndorsement
	case stake < l.params.MinStakeAmount || stake > l.params.MaxStakeAmount:
		return 0, ErrInvalidStakeAmount
	case !category.Valid():
		return 0, ErrInvalidCategory
	case weight < 1 || weight > config.MaxWeight:
		return 0, ErrInvalidWeight
	case uint64(len(l.endorseeEndorsements[endorsee])) >= l.params.MaxEndorsersPerUser:
		return 0, ErrEndorserLimitReached
	}
	key := endorsementKey{endorser: caller, endorsee: endorsee}
	if _, exists := l.keys[key]; exists {
		return 0, ErrDuplicateEndorsement
	}
	if l.params.VerificationRequired && !l.verified[caller] {
		return 0, ErrEndorserNotVerified
	}
	if err := l.checkEndorseOverflow(caller, endorsee, stake, weight); err != nil {
		return 0, err
	}

	id := uint64(len(l.endorsements))
	l.endorsements = append(l.endorsements, types.Endorsement{
		ID:          id,
		Endorser:    caller,
		Endorsee:    endorsee,
		StakeAmount: stake,
		Timestamp:   height,
		Category:    category,
		Weight:      weight,
		Active:      true,
	})
	l.keys[key] = id
	l.endorseeEndorsements[endorsee] = append(l.endorseeEndorsements[endorsee], id)
	l.stakes[caller] += stake
	l.contractBalance += stake
	l.recompute(endorsee)

	return id, nil
}

// RevokeEndorsement deactivates endorsement id once its lock period has elapsed and releases
// its stake from the endorser's bookkeeping.
func (l *Ledger) RevokeEndorsement(caller types.Principal, height uint64, id uint64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id >= uint64(len(l.endorsements)) {
		return ErrEndorsementNotFound
	}
	e := &l.endorsements[id]
	switch {
	case caller != e.Endorser:
		return ErrNotAuthorized
	case !e.Active:
		return ErrRevocationNotAllowed
	case reason == "":
		return ErrInvalidRevocationReason
	case height < e.Timestamp || height-e.Timestamp < l.params.StakeLockPeriod:
		return ErrStakeLockPeriod
	}

	e.Active = false
	l.revocations[id] = types.Revocation{Height: height, Reason: reason}

	// Stake already withdrawn against the aggregate cannot be released twice.
	released := min(e.StakeAmount, l.stakes[caller])
	l.stakes[caller] -= released
	l.contractBalance -= released
	l.recompute(e.Endorsee)

	return nil
}

// VerifyEndorsement marks endorsement id as verified. Revoked endorsements may still be verified.
func (l *Ledger) VerifyEndorsement(caller types.Principal, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id >= uint64(len(l.endorsements)) {
		return ErrEndorsementNotFound
	}
	if caller != l.admin {
		return ErrNotAuthorized
	}
	e := &l.endorsements[id]
	if e.Verified {
		return ErrInvalidVerificationStatus
	}
	e.Verified = true
	l.recompute(e.Endorsee)
	return nil
}

// UpdateEndorseeScore recomputes, caches and returns the score of endorsee.
func (l *Ledger) UpdateEndorseeScore(endorsee types.Principal) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.recompute(endorsee)
}

// WithdrawStake reduces the aggregate stake of caller by amount.
func (l *Ledger) WithdrawStake(caller types.Principal, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > l.stakes[caller] {
		return ErrInsufficientStake
	}
	l.stakes[caller] -= amount
	l.contractBalance -= amount
	return nil
}

// checkEndorseOverflow rejects an endorsement whose stake or score contribution does not fit
// in the endorser stake, the contract balance or the endorsee score.
func (l *Ledger) checkEndorseOverflow(caller, endorsee types.Principal, stake, weight uint64) error {
	if _, carry := bits.Add64(l.stakes[caller], stake, 0); carry != 0 {
		return ErrArithmeticOverflow
	}
	if _, carry := bits.Add64(l.contractBalance, stake, 0); carry != 0 {
		return ErrArithmeticOverflow
	}
	score, ok := scoreOf(l.endorsements, l.endorseeEndorsements[endorsee])
	if !ok {
		return ErrArithmeticOverflow
	}
	if _, ok := addProduct(score, weight, stake); !ok {
		return ErrArithmeticOverflow
	}
	return nil
}

func (l *Ledger) recompute(endorsee types.Principal) uint64 {
	score, _ := scoreOf(l.endorsements, l.endorseeEndorsements[endorsee])
	l.scores[endorsee] = score
	return score
}

// scoreOf sums weight*stake over the active endorsements in ids. The decay factor is not applied.
// On overflow it returns math.MaxUint64 and false.
func scoreOf(endorsements []types.Endorsement, ids []uint64) (uint64, bool) {
	var score uint64
	for _, id := range ids {
		e := endorsements[id]
		if !e.Active {
			continue
		}
		var ok bool
		if score, ok = addProduct(score, e.Weight, e.StakeAmount); !ok {
			return math.MaxUint64, false
		}
	}
	return score, true
}

// addProduct returns sum + a*b, and false if any step overflows uint64.
func addProduct(sum, a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, false
	}
	total, carry := bits.Add64(sum, lo, 0)
	return total, carry == 0
}
