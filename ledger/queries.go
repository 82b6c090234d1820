package ledger

import (
	"github.com/vechain/vouchledger/types"
)

func (l *Ledger) Endorsement(id uint64) (types.Endorsement, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.endorsement(id)
}

func (l *Ledger) Revocation(id uint64) (types.Revocation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.revocation(id)
}

// Score returns the cached score of endorsee, as of its last recompute.
func (l *Ledger) Score(endorsee types.Principal) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.scores[endorsee]
}

func (l *Ledger) Stake(endorser types.Principal) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stakes[endorser]
}

// EndorseeEndorsements returns the ids targeting endorsee in creation order, revoked ones included.
func (l *Ledger) EndorseeEndorsements(endorsee types.Principal) []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.endorsementsOf(endorsee)
}

func (l *Ledger) IsVerified(principal types.Principal) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verified[principal]
}

func (l *Ledger) Admin() types.Principal {
	return l.admin
}

func (l *Ledger) NextEndorsementID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.endorsements))
}

func (l *Ledger) Params() types.Params {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.params
}

func (l *Ledger) ContractBalance() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.contractBalance
}

// Snapshot returns an immutable copy of the current state.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Snapshot{st: l.clone()}
}
