package types

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrConfigError       = "CONFIG_ERROR"
	ErrNetworkError      = "NETWORK_ERROR"
	ErrValidationError   = "VALIDATION_ERROR"
	ErrInsufficientFee   = "INSUFFICIENT_FEE"
	ErrTransactionFailed = "TRANSACTION_FAILED"
)

// Sentinels matched by errors.Is against any LedgerError of the same code.
var (
	ErrConfig     = errors.New("configuration error")
	ErrNetwork    = errors.New("network error")
	ErrValidation = errors.New("validation error")
	ErrFee        = errors.New("insufficient fee")
	ErrTxFailed   = errors.New("transaction failed")
)

var codeSentinels = map[string]error{
	ErrConfigError:       ErrConfig,
	ErrNetworkError:      ErrNetwork,
	ErrValidationError:   ErrValidation,
	ErrInsufficientFee:   ErrFee,
	ErrTransactionFailed: ErrTxFailed,
}

// LedgerError is the error type returned by every ledger-facing component.
type LedgerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  Status `json:"status,omitempty"`
	Err     error  `json:"-"`
}

func (e *LedgerError) Error() string {
	msg := e.Message
	if e.Status != "" {
		msg = fmt.Sprintf("%s (status %s)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func (e *LedgerError) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]
	return ok && sentinel == target
}

func NewConfigError(err error, format string, args ...any) *LedgerError {
	return &LedgerError{Code: ErrConfigError, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewNetworkError(err error, format string, args ...any) *LedgerError {
	return &LedgerError{Code: ErrNetworkError, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewValidationError(err error, format string, args ...any) *LedgerError {
	return &LedgerError{Code: ErrValidationError, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewInsufficientFeeError(status Status, format string, args ...any) *LedgerError {
	return &LedgerError{Code: ErrInsufficientFee, Message: fmt.Sprintf(format, args...), Status: status}
}

// NewTransactionFailedError reports a submission the ledger accepted but
// finalized with a non-success status.
func NewTransactionFailedError(status Status, format string, args ...any) *LedgerError {
	return &LedgerError{Code: ErrTransactionFailed, Message: fmt.Sprintf(format, args...), Status: status}
}

// NewPrecheckError classifies a status the ledger returned when refusing a
// submission or query.
func NewPrecheckError(status Status, message string) *LedgerError {
	return &LedgerError{Code: ErrorCodeForStatus(status), Message: message, Status: status}
}

// ErrorCodeForStatus maps a precheck status to an error code.
func ErrorCodeForStatus(status Status) string {
	switch status {
	case StatusInsufficientTxFee, StatusInsufficientPayerBalance, StatusMaxQueryPaymentExceeded:
		return ErrInsufficientFee
	case StatusInvalidSignature, StatusKeyRequired, StatusBadEncoding, StatusInvalidTransaction,
		StatusInvalidTransactionBody, StatusInvalidTransactionID, StatusInvalidTransactionStart,
		StatusTransactionExpired, StatusDuplicateTransaction, StatusPayerAccountNotFound,
		StatusInvalidAccountID, StatusInvalidContractID, StatusAutorenewDurationNotInRange:
		return ErrValidationError
	default:
		return ErrNetworkError
	}
}

// AsLedgerError returns the first LedgerError in err's chain.
func AsLedgerError(err error) (*LedgerError, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IsTransactionFailed checks whether err is a TRANSACTION_FAILED error and returns it.
func IsTransactionFailed(err error) (*LedgerError, bool) {
	le, ok := AsLedgerError(err)
	if !ok || le.Code != ErrTransactionFailed {
		return nil, false
	}
	return le, true
}
