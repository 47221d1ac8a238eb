package model

import "errors"

// Common errors used across the application
var (
	// Lookup errors
	ErrPlayerNotFound   = errors.New("player not found")
	ErrPoolNotFound     = errors.New("pool not found")
	ErrScenarioNotFound = errors.New("scenario not found")

	// Policy errors: invalid parameters, rejected before any state change
	ErrInvalidEntryFee     = errors.New("entry fee must be greater than 0")
	ErrDurationTooShort    = errors.New("duration must be at least 60 seconds")
	ErrDurationTooLong     = errors.New("duration is too long")
	ErrInvalidReactionTime = errors.New("reaction time must be greater than 0")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidNonce        = errors.New("invalid nonce")
	ErrInvalidLimit        = errors.New("limit must be greater than 0")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAmountOverflow      = errors.New("amount overflow")
	ErrUnknownOption       = errors.New("unknown answer option")

	// State errors: call made in the wrong state
	ErrPoolNotOpen      = errors.New("pool already started")
	ErrPoolNotActive    = errors.New("pool is not active")
	ErrPoolNotClosed    = errors.New("pool is not closed")
	ErrAlreadyJoined    = errors.New("already joined")
	ErrAlreadySubmitted = errors.New("already submitted")
	ErrTooEarly         = errors.New("pool duration has not elapsed")
	ErrNoParticipants   = errors.New("pool has no participants")
	ErrAlreadyRefunded  = errors.New("entry fee already refunded")
	ErrNothingToRefund  = errors.New("pool was won, nothing to refund")

	// Auth errors: caller or claim is not acceptable
	ErrNotParticipant   = errors.New("not a participant")
	ErrNotAuthorized    = errors.New("caller is not authorized")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrStaleSubmission  = errors.New("submission too old")
	ErrFutureSubmission = errors.New("submission timestamp is in the future")
	ErrNonceReplay      = errors.New("nonce already used")
	ErrClaimMismatch    = errors.New("claim does not belong to caller")

	// External errors: payment token boundary
	ErrTransferFailed        = errors.New("transfer failed")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Kind classifies an error for callers that need to react to the category only
type Kind string

const (
	KindPolicy   Kind = "policy_violation"
	KindState    Kind = "state_violation"
	KindAuth     Kind = "auth_violation"
	KindExternal Kind = "external_failure"
	KindNotFound Kind = "not_found"
	KindInternal Kind = "internal"
)

var errorKinds = []struct {
	err  error
	kind Kind
}{
	{ErrPlayerNotFound, KindNotFound},
	{ErrPoolNotFound, KindNotFound},
	{ErrScenarioNotFound, KindNotFound},

	{ErrInvalidEntryFee, KindPolicy},
	{ErrDurationTooShort, KindPolicy},
	{ErrDurationTooLong, KindPolicy},
	{ErrInvalidReactionTime, KindPolicy},
	{ErrInvalidAddress, KindPolicy},
	{ErrInvalidNonce, KindPolicy},
	{ErrInvalidLimit, KindPolicy},
	{ErrInvalidAmount, KindPolicy},
	{ErrAmountOverflow, KindPolicy},
	{ErrUnknownOption, KindPolicy},

	{ErrPoolNotOpen, KindState},
	{ErrPoolNotActive, KindState},
	{ErrPoolNotClosed, KindState},
	{ErrAlreadyJoined, KindState},
	{ErrAlreadySubmitted, KindState},
	{ErrTooEarly, KindState},
	{ErrNoParticipants, KindState},
	{ErrAlreadyRefunded, KindState},
	{ErrNothingToRefund, KindState},

	{ErrNotParticipant, KindAuth},
	{ErrNotAuthorized, KindAuth},
	{ErrInvalidSignature, KindAuth},
	{ErrStaleSubmission, KindAuth},
	{ErrFutureSubmission, KindAuth},
	{ErrNonceReplay, KindAuth},
	{ErrClaimMismatch, KindAuth},

	// ErrTransferFailed wraps the balance errors, so it is listed first
	{ErrTransferFailed, KindExternal},
	{ErrInsufficientBalance, KindExternal},
	{ErrInsufficientAllowance, KindExternal},
}

// KindOf returns the category of a (possibly wrapped) domain error.
// Unknown errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return KindInternal
}
