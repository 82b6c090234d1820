package ledger

import (
	"errors"
)

// Code is the stable numeric code a ledger error maps to on the host ledger.
type Code uint32

const (
	CodeOK                 Code = 0
	CodeUnknownTx          Code = 1
	CodeArithmeticOverflow Code = 2

	CodeNotAuthorized             Code = 100
	CodeInvalidStakeAmount        Code = 102
	CodeSelfEndorsement           Code = 104
	CodeDuplicateEndorsement      Code = 105
	CodeEndorsementNotFound       Code = 106
	CodeInsufficientStake         Code = 107
	CodeInvalidScoreThreshold     Code = 108
	CodeInvalidDecayFactor        Code = 109
	CodeInvalidMaxEndorsers       Code = 110
	CodeInvalidMinEndorsers       Code = 111
	CodeEndorserLimitReached      Code = 112
	CodeInvalidCategory           Code = 114
	CodeInvalidWeight             Code = 115
	CodeInvalidRevocationReason   Code = 117
	CodeRevocationNotAllowed      Code = 118
	CodeInvalidMaxStake           Code = 121
	CodeInvalidMinStake           Code = 122
	CodeStakeLockPeriod           Code = 123
	CodeInvalidLockPeriod         Code = 124
	CodeEndorserNotVerified       Code = 125
	CodeInvalidVerificationStatus Code = 127
)

// Error is a caller-facing validation failure. A failed operation never mutates the ledger.
type Error struct {
	Code Code
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

var (
	ErrUnknownTx          = &Error{CodeUnknownTx, "unknown transaction kind"}
	ErrArithmeticOverflow = &Error{CodeArithmeticOverflow, "arithmetic overflow"}

	ErrNotAuthorized             = &Error{CodeNotAuthorized, "not authorized"}
	ErrInvalidStakeAmount        = &Error{CodeInvalidStakeAmount, "invalid stake amount"}
	ErrSelfEndorsement           = &Error{CodeSelfEndorsement, "self endorsement"}
	ErrDuplicateEndorsement      = &Error{CodeDuplicateEndorsement, "duplicate endorsement"}
	ErrEndorsementNotFound       = &Error{CodeEndorsementNotFound, "endorsement not found"}
	ErrInsufficientStake         = &Error{CodeInsufficientStake, "insufficient stake"}
	ErrInvalidScoreThreshold     = &Error{CodeInvalidScoreThreshold, "invalid score threshold"}
	ErrInvalidDecayFactor        = &Error{CodeInvalidDecayFactor, "invalid decay factor"}
	ErrInvalidMaxEndorsers       = &Error{CodeInvalidMaxEndorsers, "invalid max endorsers"}
	ErrInvalidMinEndorsers       = &Error{CodeInvalidMinEndorsers, "invalid min endorsers"}
	ErrEndorserLimitReached      = &Error{CodeEndorserLimitReached, "endorser limit reached"}
	ErrInvalidCategory           = &Error{CodeInvalidCategory, "invalid category"}
	ErrInvalidWeight             = &Error{CodeInvalidWeight, "invalid weight"}
	ErrInvalidRevocationReason   = &Error{CodeInvalidRevocationReason, "invalid revocation reason"}
	ErrRevocationNotAllowed      = &Error{CodeRevocationNotAllowed, "revocation not allowed"}
	ErrInvalidMaxStake           = &Error{CodeInvalidMaxStake, "invalid max stake"}
	ErrInvalidMinStake           = &Error{CodeInvalidMinStake, "invalid min stake"}
	ErrStakeLockPeriod           = &Error{CodeStakeLockPeriod, "stake lock period not elapsed"}
	ErrInvalidLockPeriod         = &Error{CodeInvalidLockPeriod, "invalid lock period"}
	ErrEndorserNotVerified       = &Error{CodeEndorserNotVerified, "endorser not verified"}
	ErrInvalidVerificationStatus = &Error{CodeInvalidVerificationStatus, "invalid verification status"}
)

// CodeOf maps err to its numeric code. Errors that did not originate in the ledger map to
// CodeUnknownTx.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Code
	}
	return CodeUnknownTx
}
