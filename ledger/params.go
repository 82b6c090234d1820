package ledger

import (
	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

// DefaultParams returns the parameters a fresh ledger starts with.
func DefaultParams() types.Params {
	return types.Params{
		MinStakeAmount:       config.DefaultMinStakeAmount,
		MaxStakeAmount:       config.DefaultMaxStakeAmount,
		StakeLockPeriod:      config.DefaultStakeLockPeriod,
		ScoreDecayFactor:     config.DefaultScoreDecayFactor,
		MinEndorsers:         config.DefaultMinEndorsers,
		MaxEndorsersPerUser:  config.DefaultMaxEndorsersPerUser,
		ScoreThreshold:       config.DefaultScoreThreshold,
		VerificationRequired: config.DefaultVerificationRequired,
	}
}

// ValidateParams applies every setter invariant to p at once, in setter order.
func ValidateParams(p types.Params) error {
	if err := validMinStake(p.MinStakeAmount); err != nil {
		return err
	}
	if err := validMaxStake(p.MaxStakeAmount, p.MinStakeAmount); err != nil {
		return err
	}
	if err := validLockPeriod(p.StakeLockPeriod); err != nil {
		return err
	}
	if err := validDecayFactor(p.ScoreDecayFactor); err != nil {
		return err
	}
	if err := validMinEndorsers(p.MinEndorsers); err != nil {
		return err
	}
	if err := validMaxEndorsers(p.MaxEndorsersPerUser, p.MinEndorsers); err != nil {
		return err
	}
	return validScoreThreshold(p.ScoreThreshold)
}

func validMinStake(v uint64) error {
	if v == 0 {
		return ErrInvalidMinStake
	}
	return nil
}

func validMaxStake(v, minStake uint64) error {
	if v <= minStake {
		return ErrInvalidMaxStake
	}
	return nil
}

func validLockPeriod(v uint64) error {
	if v == 0 {
		return ErrInvalidLockPeriod
	}
	return nil
}

func validDecayFactor(v uint64) error {
	if v == 0 || v > config.MaxDecayFactor {
		return ErrInvalidDecayFactor
	}
	return nil
}

func validMinEndorsers(v uint64) error {
	if v == 0 {
		return ErrInvalidMinEndorsers
	}
	return nil
}

func validMaxEndorsers(v, minEndorsers uint64) error {
	if v <= minEndorsers {
		return ErrInvalidMaxEndorsers
	}
	return nil
}

func validScoreThreshold(v uint64) error {
	if v == 0 {
		return ErrInvalidScoreThreshold
	}
	return nil
}

// SetMinStakeAmount changes the lower stake bound for future endorsements.
func (l *Ledger) SetMinStakeAmount(caller types.Principal, v uint64) error {
	return l.setParam(caller, func(p *types.Params) error {
		if err := validMinStake(v); err != nil {
			return err
		}
		p.MinStakeAmount = v
		return nil
	})
}

// SetMaxStakeAmount changes the upper stake bound. It must stay above the current minimum.
func (l *Ledger) SetMaxStakeAmount(caller types.Principal, v uint64) error {
	return l.setParam(caller, func(p *types.Params) error {
		if err := validMaxStake(v, p.MinStakeAmount); err != nil {
			return err
		}
		p.MaxStakeAmount = v
		return nil
	})
}

func (l *Ledger) SetStakeLockPeriod(caller types.Principal, v uint64) error {
	return l.setParam(caller, func(p *types.Params) error {
		if err := validLockPeriod(v); err != nil {
			return err
		}
		p.StakeLockPeriod = v
		return nil
	})
}

func (l *Ledger) SetScoreDecayFactor(caller types.Principal, v uint64) error {
	return l.setParam(caller, func(p *types.Params) error {
		if err := validDecayFactor(v); err != nil {
			return err
		}
		p.ScoreDecayFactor = v
		return nil
	})
}

func (l *Ledger) SetMinEndorsers(caller types.Principal, v uint64) error {
	return l.setParam(caller, func(p *types.Params) error {
		if err := validMinEndorsers(v); err != nil {
			return err
		}
		p.MinEndorsers = v
		return nil
	})
}

// SetMaxEndorsersPerUser changes how many endorsements one endorsee may receive. It must stay
// above the current MinEndorsers.
func (l *Ledger) SetMaxEndorsersPerUser(caller types.Principal, v uint64) error {
	return l.setParam(caller, func(p *types.Params) error {
		if err := validMaxEndorsers(v, p.MinEndorsers); err != nil {
			return err
		}
		p.MaxEndorsersPerUser = v
		return nil
	})
}

func (l *Ledger) SetScoreThreshold(caller types.Principal, v uint64) error {
	return l.setParam(caller, func(p *types.Params) error {
		if err := validScoreThreshold(v); err != nil {
			return err
		}
		p.ScoreThreshold = v
		return nil
	})
}

func (l *Ledger) SetVerificationRequired(caller types.Principal, required bool) error {
	return l.setParam(caller, func(p *types.Params) error {
		p.VerificationRequired = required
		return nil
	})
}

// VerifyUser marks principal as verified. Verification is never revoked.
func (l *Ledger) VerifyUser(caller, principal types.Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return ErrNotAuthorized
	}
	l.verified[principal] = true
	return nil
}

// setParam runs fn against a copy of the params and keeps the copy only if fn succeeds.
func (l *Ledger) setParam(caller types.Principal, fn func(p *types.Params) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return ErrNotAuthorized
	}
	next := l.params
	if err := fn(&next); err != nil {
		return err
	}
	l.params = next
	return nil
}
