package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// As extracts the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsInternal reports whether err should be reported as a server-side failure.
func IsInternal(err error) bool {
	appErr, ok := As(err)
	return !ok || appErr.HTTPStatus >= http.StatusInternalServerError
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrUserDisabled() *AppError {
	return New("AUTH_004", "User account is disabled", http.StatusForbidden)
}

func ErrMissingRole(role string) *AppError {
	return New("AUTH_005", fmt.Sprintf("Role %q required", role), http.StatusForbidden)
}

func ErrForbidden() *AppError {
	return New("AUTH_006", "Not allowed to access this resource", http.StatusForbidden)
}

// ---- Transactions (TXN) ----

func ErrInsufficientFunds() *AppError {
	return New("TXN_001", "Insufficient balance in wallet", http.StatusBadRequest)
}

func ErrInsufficientStock() *AppError {
	return New("TXN_002", "Insufficient item stock", http.StatusBadRequest)
}

func ErrInvalidQuantity() *AppError {
	return New("TXN_003", "Quantity must be a positive integer", http.StatusUnprocessableEntity)
}

func ErrConflict(err error) *AppError {
	return Wrap("TXN_004", "Concurrent update conflict, retry later", http.StatusConflict, err)
}

func ErrRequestInFlight() *AppError {
	return New("TXN_005", "A request with this Idempotency-Key is still in progress", http.StatusConflict)
}

// ---- Resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrResourceInUse(entity string) *AppError {
	return New("RES_002", fmt.Sprintf("%s is still referenced", entity), http.StatusConflict)
}

// ---- Validation (VAL) ----

// Validation returns a VAL_001 error for malformed input.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrCacheError(err error) *AppError {
	return Wrap("SYS_002", "Internal cache error", http.StatusInternalServerError, err)
}

// InternalError wraps an unexpected error as a SYS_999 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_999", "Internal server error", http.StatusInternalServerError, err)
}
