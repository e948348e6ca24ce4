package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Business-rule violations surfaced to callers. Handlers map these to HTTP
// status codes with Status; everything else is treated as a storage failure.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrDishUnavailable       = errors.New("dish unavailable")
	ErrAccountSuspended      = errors.New("account suspended")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrAlreadyRefunded       = errors.New("order already refunded")
	ErrInvalidState          = errors.New("operation not allowed in current state")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrNoBidsAvailable       = errors.New("no bids available for this order")
	ErrAgentDidNotBid        = errors.New("selected delivery agent has not bid")
	ErrJustificationRequired = errors.New("justification memo required for non-lowest bid")
	ErrDuplicateRequest      = errors.New("duplicate request")
	ErrNoTransactionHistory  = errors.New("no transaction history with target user")
	ErrValidation            = errors.New("validation failed")
)

// ErrStorage marks aborted units of work (lock contention, connection loss).
// Callers may retry; none of the business errors above are retryable.
var ErrStorage = errors.New("storage error")

// Storage wraps a low-level database error. The whole unit of work is assumed
// rolled back by the caller before wrapping.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// Validationf builds an ErrValidation with detail, e.g.
// Validationf("description must be at least %d characters", 20).
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds an ErrNotFound naming the missing entity.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Status maps an error to the HTTP status code handlers should respond with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrAccountSuspended):
		return http.StatusForbidden
	case errors.Is(err, ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDishUnavailable),
		errors.Is(err, ErrAlreadyRefunded),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrNoBidsAvailable),
		errors.Is(err, ErrAgentDidNotBid),
		errors.Is(err, ErrJustificationRequired),
		errors.Is(err, ErrNoTransactionHistory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
