package types

import (
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"
	"github.com/vechain/thor/v2/thor"
)

// Principal identifies an account on the host ledger (an endorser, an endorsee or the admin).
type Principal string

// Category classifies the relationship an endorsement vouches for.
type Category string

const (
	CategoryCommunity    Category = "community"
	CategoryProfessional Category = "professional"
	CategoryPersonal     Category = "personal"
)

// Categories is the fixed set of accepted categories.
var Categories = []Category{CategoryCommunity, CategoryProfessional, CategoryPersonal}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Endorsement struct {
	ID          uint64    // Sequential id, starting at 0
	Endorser    Principal // Principal staking the value
	Endorsee    Principal // Principal being vouched for
	StakeAmount uint64    // Immutable after creation
	Timestamp   uint64    // Block height at creation
	Category    Category
	Weight      uint64 // 1..100
	Verified    bool   // Set once by the admin
	Active      bool   // Cleared once on revocation
}

type Revocation struct {
	Height uint64 // Block height of the revocation
	Reason string
}

// Params bounds every ledger operation. Only the admin may change it.
type Params struct {
	MinStakeAmount       uint64
	MaxStakeAmount       uint64
	StakeLockPeriod      uint64 // blocks
	ScoreDecayFactor     uint64 // stored, not applied to scores
	MinEndorsers         uint64
	MaxEndorsersPerUser  uint64
	ScoreThreshold       uint64
	VerificationRequired bool
}

// StateView is a read-only, consistent view of the ledger after a block was applied.
type StateView interface {
	Admin() Principal
	Params() Params
	ContractBalance() uint64
	NextEndorsementID() uint64
	Endorsement(id uint64) (Endorsement, bool)
	Score(endorsee Principal) uint64
	Stake(endorser Principal) uint64
	EndorseeEndorsements(endorsee Principal) []uint64
	Eligible(endorsee Principal) bool
	Digest() thor.Bytes32
}

type TxKind string

const (
	TxEndorseUser             TxKind = "endorse-user"
	TxRevokeEndorsement       TxKind = "revoke-endorsement"
	TxVerifyEndorsement       TxKind = "verify-endorsement"
	TxUpdateEndorseeScore     TxKind = "update-endorsee-score"
	TxWithdrawStake           TxKind = "withdraw-stake"
	TxSetMinStakeAmount       TxKind = "set-min-stake-amount"
	TxSetMaxStakeAmount       TxKind = "set-max-stake-amount"
	TxSetStakeLockPeriod      TxKind = "set-stake-lock-period"
	TxSetScoreDecayFactor     TxKind = "set-score-decay-factor"
	TxSetMinEndorsers         TxKind = "set-min-endorsers"
	TxSetMaxEndorsersPerUser  TxKind = "set-max-endorsers-per-user"
	TxSetScoreThreshold       TxKind = "set-score-threshold"
	TxSetVerificationRequired TxKind = "set-verification-required"
	TxVerifyUser              TxKind = "verify-user"
)

var TxKinds = []TxKind{
	TxEndorseUser, TxRevokeEndorsement, TxVerifyEndorsement, TxUpdateEndorseeScore, TxWithdrawStake,
	TxSetMinStakeAmount, TxSetMaxStakeAmount, TxSetStakeLockPeriod, TxSetScoreDecayFactor,
	TxSetMinEndorsers, TxSetMaxEndorsersPerUser, TxSetScoreThreshold, TxSetVerificationRequired,
	TxVerifyUser,
}

func (k TxKind) Valid() bool {
	for _, known := range TxKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Tx is a ledger call submitted by Caller. Only the fields relevant to Kind are read:
//
//	endorse-user:              Target (endorsee), Amount (stake), Category, Weight
//	revoke-endorsement:        ID, Reason
//	verify-endorsement:        ID
//	update-endorsee-score:     Target
//	withdraw-stake:            Amount
//	set-*:                     Amount, or Flag for set-verification-required
//	verify-user:               Target
type Tx struct {
	Ticket   uuid.UUID
	Caller   Principal
	Kind     TxKind
	Target   Principal
	ID       uint64
	Amount   uint64
	Category Category
	Weight   uint64
	Reason   string
	Flag     bool
}

// Hash returns the blake2b hash of the tx RLP encoding.
func (tx *Tx) Hash() (thor.Bytes32, error) {
	data, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return thor.Bytes32{}, err
	}
	return thor.Blake2b(data), nil
}

type Receipt struct {
	TxID   thor.Bytes32
	Ticket uuid.UUID
	Kind   TxKind
	Caller Principal
	Height uint64
	Code   uint32 // 0 on success, the ledger error code otherwise
	Value  uint64 // new endorsement id for endorse-user, score for update-endorsee-score
	Log    string
}

func (r *Receipt) OK() bool {
	return r.Code == 0
}

// Head is the chain position a block is stamped with.
type Head struct {
	Number    uint64
	ID        thor.Bytes32
	Timestamp time.Time
}

type Block struct {
	Head
	Txs []*Tx
}

// Event is handed to every stats handler once a block has been applied.
type Event struct {
	Block       *Block
	Receipts    []*Receipt
	State       StateView
	DefaultTags map[string]string
}

// Touched returns the endorsees and endorsers whose score or stake may have changed in the block.
func (e *Event) Touched() (endorsees, endorsers []Principal) {
	seenEndorsee := make(map[Principal]struct{})
	seenEndorser := make(map[Principal]struct{})
	addEndorsee := func(p Principal) {
		if p == "" {
			return
		}
		if _, ok := seenEndorsee[p]; !ok {
			seenEndorsee[p] = struct{}{}
			endorsees = append(endorsees, p)
		}
	}
	addEndorser := func(p Principal) {
		if _, ok := seenEndorser[p]; !ok {
			seenEndorser[p] = struct{}{}
			endorsers = append(endorsers, p)
		}
	}

	for i, r := range e.Receipts {
		if !r.OK() || i >= len(e.Block.Txs) {
			continue
		}
		tx := e.Block.Txs[i]
		switch tx.Kind {
		case TxEndorseUser:
			addEndorsee(tx.Target)
			addEndorser(tx.Caller)
		case TxRevokeEndorsement, TxVerifyEndorsement:
			if endorsement, ok := e.State.Endorsement(tx.ID); ok {
				addEndorsee(endorsement.Endorsee)
				addEndorser(endorsement.Endorser)
			}
		case TxUpdateEndorseeScore:
			addEndorsee(tx.Target)
		case TxWithdrawStake:
			addEndorser(tx.Caller)
		}
	}
	return endorsees, endorsers
}
