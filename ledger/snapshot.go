package ledger

import (
	"cmp"
	"slices"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/thor/v2/thor"

	"github.com/vechain/vouchledger/types"
)

// Snapshot is a frozen copy of the ledger taken between two blocks. It implements types.StateView.
type Snapshot struct {
	st *state
}

var _ types.StateView = (*Snapshot)(nil)

func (s *Snapshot) Admin() types.Principal  { return s.st.admin }
func (s *Snapshot) Params() types.Params    { return s.st.params }
func (s *Snapshot) ContractBalance() uint64 { return s.st.contractBalance }

func (s *Snapshot) NextEndorsementID() uint64 {
	return uint64(len(s.st.endorsements))
}

func (s *Snapshot) Endorsement(id uint64) (types.Endorsement, bool) {
	return s.st.endorsement(id)
}

func (s *Snapshot) Revocation(id uint64) (types.Revocation, bool) {
	return s.st.revocation(id)
}

func (s *Snapshot) Score(endorsee types.Principal) uint64 {
	return s.st.scores[endorsee]
}

func (s *Snapshot) Stake(endorser types.Principal) uint64 {
	return s.st.stakes[endorser]
}

func (s *Snapshot) EndorseeEndorsements(endorsee types.Principal) []uint64 {
	return s.st.endorsementsOf(endorsee)
}

func (s *Snapshot) IsVerified(principal types.Principal) bool {
	return s.st.verified[principal]
}

// Eligible reports whether endorsee has at least MinEndorsers active endorsements and a cached
// score of at least ScoreThreshold. Nothing in the ledger enforces it.
func (s *Snapshot) Eligible(endorsee types.Principal) bool {
	return s.st.eligible(endorsee)
}

type principalAmount struct {
	Principal types.Principal
	Amount    uint64
}

type revocationEntry struct {
	ID     uint64
	Height uint64
	Reason string
}

// canonicalState is the RLP layout hashed by Digest. Map-backed indices are flattened and
// sorted by key; the uniqueness index and per-endorsee lists are derived from Endorsements.
type canonicalState struct {
	Admin           types.Principal
	Params          types.Params
	ContractBalance uint64
	Endorsements    []types.Endorsement
	Revocations     []revocationEntry
	Stakes          []principalAmount
	Scores          []principalAmount
	Verified        []types.Principal
}

// Digest returns the blake2b hash of the canonical RLP encoding of the state. Two ledgers that
// applied the same transactions at the same heights have the same digest.
func (s *Snapshot) Digest() thor.Bytes32 {
	cs := canonicalState{
		Admin:           s.st.admin,
		Params:          s.st.params,
		ContractBalance: s.st.contractBalance,
		Endorsements:    s.st.endorsements,
		Stakes:          sortedAmounts(s.st.stakes),
		Scores:          sortedAmounts(s.st.scores),
	}
	for id, r := range s.st.revocations {
		cs.Revocations = append(cs.Revocations, revocationEntry{ID: id, Height: r.Height, Reason: r.Reason})
	}
	slices.SortFunc(cs.Revocations, func(a, b revocationEntry) int { return cmp.Compare(a.ID, b.ID) })
	for p, ok := range s.st.verified {
		if ok {
			cs.Verified = append(cs.Verified, p)
		}
	}
	slices.Sort(cs.Verified)

	data, err := rlp.EncodeToBytes(&cs)
	if err != nil {
		// every field is a string, bool, uint64 or a slice of those
		panic(err)
	}
	return thor.Blake2b(data)
}

func sortedAmounts(m map[types.Principal]uint64) []principalAmount {
	out := make([]principalAmount, 0, len(m))
	for p, v := range m {
		out = append(out, principalAmount{Principal: p, Amount: v})
	}
	slices.SortFunc(out, func(a, b principalAmount) int { return cmp.Compare(a.Principal, b.Principal) })
	return out
}
