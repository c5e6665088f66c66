package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Generic errors shared across modules.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrInactiveAccount    = New("INACTIVE_ACCOUNT", http.StatusForbidden, "account is inactive")
)

// Credential codec errors.
var (
	ErrMalformedToken = New("MALFORMED_TOKEN", http.StatusBadRequest, "credential token is malformed")
	ErrBadSignature   = New("BAD_SIGNATURE", http.StatusUnauthorized, "credential signature does not match")
	ErrTokenExpired   = New("TOKEN_EXPIRED", http.StatusUnauthorized, "credential has expired")
)

// Scan intake errors.
var (
	ErrCredentialInactive = New("CREDENTIAL_INACTIVE", http.StatusForbidden, "credential is not active")
	ErrRouteMismatch      = New("ROUTE_MISMATCH", http.StatusForbidden, "credential route does not match driver route")
	ErrShiftMismatch      = New("SHIFT_MISMATCH", http.StatusForbidden, "credential shift does not match driver shift")
	ErrOutsideWindow      = New("OUTSIDE_WINDOW", http.StatusForbidden, "scan attempted outside the allowed time window")
	ErrDailyLimitReached  = New("DAILY_LIMIT_REACHED", http.StatusConflict, "daily scan limit reached for this credential")
	ErrDuplicatePhase     = New("DUPLICATE_PHASE", http.StatusConflict, "an attendance record already exists for this phase today")
	ErrSingleTripUsed     = New("SINGLE_TRIP_USED", http.StatusConflict, "single-trip ticket has already been used")
	ErrScanningClosed     = New("SCANNING_CLOSED", http.StatusForbidden, "scanning is not open for the current trip phase")
)

// Trip checkpoint errors.
var (
	ErrInvalidPhaseTransition = New("INVALID_PHASE_TRANSITION", http.StatusConflict, "checkpoint transition not allowed from current phase")
	ErrOdometerRegression     = New("ODOMETER_REGRESSION", http.StatusBadRequest, "odometer reading below the minimum acceptable value")
	ErrShiftNotStarted        = New("SHIFT_NOT_STARTED", http.StatusPreconditionFailed, "driver has not started a shift today")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Clonef formats a message override onto a copy of the error.
func Clonef(err *Error, format string, args ...interface{}) *Error {
	return Clone(err, fmt.Sprintf(format, args...))
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	e := FromError(err)
	return e != nil && target != nil && e.Code == target.Code
}
