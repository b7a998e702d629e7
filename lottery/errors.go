package lottery

import (
	"github.com/pkg/errors"
)

// Authorization
var ErrNotOwner = errors.New("Ownable: caller is not the owner")

// State
var (
	ErrInvalidStatus       = errors.New("onlyByStatus")
	ErrTooEarly            = errors.New("close timestamp has not been reached")
	ErrRandomValueNotReady = errors.New("random value is not ready")
)

// Validation
var (
	ErrZeroValue             = errors.New("noZero")
	ErrSendingCountTooLarge  = errors.New("requireUnderMaxSendingCount")
	ErrRatioOverflow         = errors.New("Only less than 100%")
	ErrDuplicateAddress      = errors.New("This address has already been added.")
	ErrRuleNotFound          = errors.New("rule does not exist")
	ErrUnknownRequest        = errors.New("unknown random value request")
	ErrInvalidCloseTimestamp = errors.New("close timestamp must be in the future")
)

// Consistency
var (
	ErrTicketIDMismatch = errors.New("ticket id does not match the winning ticket")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// Transfer
var (
	ErrTransferFailed      = errors.New("token transfer failed")
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// ErrorClass groups errors by the kind of correction a caller has to make
type ErrorClass string

const (
	ClassAuthorization ErrorClass = "authorization"
	ClassState         ErrorClass = "state"
	ClassValidation    ErrorClass = "validation"
	ClassConsistency   ErrorClass = "consistency"
	ClassTransfer      ErrorClass = "transfer"
	ClassUnknown       ErrorClass = "unknown"
)

type errorInfo struct {
	code  string
	class ErrorClass
}

var errorInfos = map[error]errorInfo{
	ErrNotOwner:              {"NotOwner", ClassAuthorization},
	ErrInvalidStatus:         {"InvalidStatus", ClassState},
	ErrTooEarly:              {"TooEarly", ClassState},
	ErrRandomValueNotReady:   {"RandomValueNotReady", ClassState},
	ErrZeroValue:             {"ZeroValue", ClassValidation},
	ErrSendingCountTooLarge:  {"SendingCountTooLarge", ClassValidation},
	ErrRatioOverflow:         {"RatioOverflow", ClassValidation},
	ErrDuplicateAddress:      {"DuplicateAddress", ClassValidation},
	ErrRuleNotFound:          {"RuleNotFound", ClassValidation},
	ErrUnknownRequest:        {"UnknownRequest", ClassValidation},
	ErrInvalidCloseTimestamp: {"InvalidCloseTimestamp", ClassValidation},
	ErrTicketIDMismatch:      {"TicketIdMismatch", ClassConsistency},
	ErrIndexOutOfBounds:      {"IndexOutOfBounds", ClassConsistency},
	ErrTransferFailed:        {"TransferFailed", ClassTransfer},
	ErrInsufficientBalance:   {"InsufficientBalance", ClassTransfer},
}

// ErrorCode returns the stable identifier of err, looking through wrapped errors.
// Errors that did not originate in this package return "Unknown"
func ErrorCode(err error) string {
	if info, ok := errorInfos[errors.Cause(err)]; ok {
		return info.code
	}
	return "Unknown"
}

// Class returns the ErrorClass of err
func Class(err error) ErrorClass {
	if info, ok := errorInfos[errors.Cause(err)]; ok {
		return info.class
	}
	return ClassUnknown
}
