package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/services/auth"
	"github.com/mcoot/reflexpool/internal/storage"
)

// APIError represents an API error response
type APIError struct {
	Code    string     `json:"code"`
	Kind    model.Kind `json:"kind,omitempty"`
	Message string     `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInternalError  = "INTERNAL_ERROR"

	CodePlayerNotFound   = "PLAYER_NOT_FOUND"
	CodePoolNotFound     = "POOL_NOT_FOUND"
	CodeScenarioNotFound = "SCENARIO_NOT_FOUND"

	CodeInvalidEntryFee     = "INVALID_ENTRY_FEE"
	CodeDurationTooShort    = "DURATION_TOO_SHORT"
	CodeDurationTooLong     = "DURATION_TOO_LONG"
	CodeInvalidReactionTime = "INVALID_REACTION_TIME"
	CodeInvalidAddress      = "INVALID_ADDRESS"
	CodeInvalidNonce        = "INVALID_NONCE"
	CodeInvalidLimit        = "INVALID_LIMIT"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeUnknownOption       = "UNKNOWN_OPTION"

	CodePoolNotOpen      = "POOL_NOT_OPEN"
	CodePoolNotActive    = "POOL_NOT_ACTIVE"
	CodePoolNotClosed    = "POOL_NOT_CLOSED"
	CodeAlreadyJoined    = "ALREADY_JOINED"
	CodeAlreadySubmitted = "ALREADY_SUBMITTED"
	CodeTooEarly         = "TOO_EARLY"
	CodeNoParticipants   = "NO_PARTICIPANTS"
	CodeAlreadyRefunded  = "ALREADY_REFUNDED"
	CodeNothingToRefund  = "NOTHING_TO_REFUND"

	CodeNotParticipant   = "NOT_PARTICIPANT"
	CodeNotAuthorized    = "NOT_AUTHORIZED"
	CodeInvalidSignature = "INVALID_SIGNATURE"
	CodeStaleSubmission  = "STALE_SUBMISSION"
	CodeFutureSubmission = "FUTURE_SUBMISSION"
	CodeNonceReplay      = "NONCE_REPLAY"
	CodeClaimMismatch    = "CLAIM_MISMATCH"

	CodeInsufficientBalance   = "INSUFFICIENT_BALANCE"
	CodeInsufficientAllowance = "INSUFFICIENT_ALLOWANCE"
	CodeTransferFailed        = "TRANSFER_FAILED"

	CodeNoChallenge        = "NO_CHALLENGE"
	CodeChallengeExpired   = "CHALLENGE_EXPIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// mapping is checked in order, so wrapping errors come after the errors they wrap
var mapping = []struct {
	err    error
	status int
	code   string
}{
	{model.ErrPlayerNotFound, http.StatusNotFound, CodePlayerNotFound},
	{model.ErrPoolNotFound, http.StatusNotFound, CodePoolNotFound},
	{model.ErrScenarioNotFound, http.StatusNotFound, CodeScenarioNotFound},

	{model.ErrInvalidEntryFee, http.StatusBadRequest, CodeInvalidEntryFee},
	{model.ErrDurationTooShort, http.StatusBadRequest, CodeDurationTooShort},
	{model.ErrDurationTooLong, http.StatusBadRequest, CodeDurationTooLong},
	{model.ErrInvalidReactionTime, http.StatusBadRequest, CodeInvalidReactionTime},
	{model.ErrInvalidAddress, http.StatusBadRequest, CodeInvalidAddress},
	{model.ErrInvalidNonce, http.StatusBadRequest, CodeInvalidNonce},
	{model.ErrInvalidLimit, http.StatusBadRequest, CodeInvalidLimit},
	{model.ErrInvalidAmount, http.StatusBadRequest, CodeInvalidAmount},
	{model.ErrAmountOverflow, http.StatusBadRequest, CodeInvalidAmount},
	{model.ErrUnknownOption, http.StatusBadRequest, CodeUnknownOption},

	{model.ErrPoolNotOpen, http.StatusConflict, CodePoolNotOpen},
	{model.ErrPoolNotActive, http.StatusConflict, CodePoolNotActive},
	{model.ErrPoolNotClosed, http.StatusConflict, CodePoolNotClosed},
	{model.ErrAlreadyJoined, http.StatusConflict, CodeAlreadyJoined},
	{model.ErrAlreadySubmitted, http.StatusConflict, CodeAlreadySubmitted},
	{model.ErrTooEarly, http.StatusConflict, CodeTooEarly},
	{model.ErrNoParticipants, http.StatusConflict, CodeNoParticipants},
	{model.ErrAlreadyRefunded, http.StatusConflict, CodeAlreadyRefunded},
	{model.ErrNothingToRefund, http.StatusConflict, CodeNothingToRefund},

	{model.ErrNotParticipant, http.StatusForbidden, CodeNotParticipant},
	{model.ErrNotAuthorized, http.StatusForbidden, CodeNotAuthorized},
	{model.ErrInvalidSignature, http.StatusUnprocessableEntity, CodeInvalidSignature},
	{model.ErrStaleSubmission, http.StatusUnprocessableEntity, CodeStaleSubmission},
	{model.ErrFutureSubmission, http.StatusUnprocessableEntity, CodeFutureSubmission},
	{model.ErrNonceReplay, http.StatusUnprocessableEntity, CodeNonceReplay},
	{model.ErrClaimMismatch, http.StatusUnprocessableEntity, CodeClaimMismatch},

	{model.ErrInsufficientBalance, http.StatusPaymentRequired, CodeInsufficientBalance},
	{model.ErrInsufficientAllowance, http.StatusPaymentRequired, CodeInsufficientAllowance},
	{model.ErrTransferFailed, http.StatusPaymentRequired, CodeTransferFailed},

	{auth.ErrNoChallenge, http.StatusUnauthorized, CodeNoChallenge},
	{auth.ErrChallengeExpired, http.StatusUnauthorized, CodeChallengeExpired},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
	{auth.ErrInvalidSession, http.StatusUnauthorized, CodeUnauthorized},

	{storage.ErrConflict, http.StatusServiceUnavailable, CodeConflict},
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	for _, m := range mapping {
		if errors.Is(err, m.err) {
			kind := model.KindOf(err)
			if kind == model.KindInternal {
				kind = ""
			}
			return &httpError{m.status, APIError{Code: m.code, Kind: kind, Message: err.Error()}}
		}
	}
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewNotFoundError creates a not found error for things that are not domain lookups
func NewNotFoundError(message string) error {
	return &httpError{http.StatusNotFound, APIError{Code: CodeNotFound, Message: message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
