package ledger

import (
	"maps"
	"slices"

	"github.com/vechain/vouchledger/types"
)

type endorsementKey struct {
	endorser types.Principal
	endorsee types.Principal
}

// state is the primary endorsement table plus its secondary indices.
type state struct {
	admin  types.Principal
	params types.Params

	endorsements         []types.Endorsement // indexed by id
	revocations          map[uint64]types.Revocation
	keys                 map[endorsementKey]uint64
	endorseeEndorsements map[types.Principal][]uint64
	stakes               map[types.Principal]uint64
	scores               map[types.Principal]uint64
	verified             map[types.Principal]bool
	contractBalance      uint64
}

func newState(admin types.Principal, params types.Params) state {
	return state{
		admin:                admin,
		params:               params,
		revocations:          make(map[uint64]types.Revocation),
		keys:                 make(map[endorsementKey]uint64),
		endorseeEndorsements: make(map[types.Principal][]uint64),
		stakes:               make(map[types.Principal]uint64),
		scores:               make(map[types.Principal]uint64),
		verified:             make(map[types.Principal]bool),
	}
}

// clone returns a deep copy that shares nothing with s.
func (s *state) clone() *state {
	lists := make(map[types.Principal][]uint64, len(s.endorseeEndorsements))
	for p, ids := range s.endorseeEndorsements {
		lists[p] = slices.Clone(ids)
	}
	return &state{
		admin:                s.admin,
		params:               s.params,
		endorsements:         slices.Clone(s.endorsements),
		revocations:          maps.Clone(s.revocations),
		keys:                 maps.Clone(s.keys),
		endorseeEndorsements: lists,
		stakes:               maps.Clone(s.stakes),
		scores:               maps.Clone(s.scores),
		verified:             maps.Clone(s.verified),
		contractBalance:      s.contractBalance,
	}
}

func (s *state) endorsement(id uint64) (types.Endorsement, bool) {
	if id >= uint64(len(s.endorsements)) {
		return types.Endorsement{}, false
	}
	return s.endorsements[id], true
}

func (s *state) revocation(id uint64) (types.Revocation, bool) {
	r, ok := s.revocations[id]
	return r, ok
}

func (s *state) endorsementsOf(endorsee types.Principal) []uint64 {
	return slices.Clone(s.endorseeEndorsements[endorsee])
}

func (s *state) activeCount(endorsee types.Principal) uint64 {
	var n uint64
	for _, id := range s.endorseeEndorsements[endorsee] {
		if s.endorsements[id].Active {
			n++
		}
	}
	return n
}

func (s *state) eligible(endorsee types.Principal) bool {
	return s.activeCount(endorsee) >= s.params.MinEndorsers && s.scores[endorsee] >= s.params.ScoreThreshold
}
