package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error carrying a stable code.
// HTTPStatus is only used when the error crosses an HTTP boundary.
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

// Is reports whether target is an AppError with the same code, so callers can
// write errors.Is(err, apperror.ErrSyncInProgress()).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
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

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Vault (VAULT) ----

func ErrInvalidCredentials() *AppError {
	return New("VAULT_001", "Invalid vault password", http.StatusUnauthorized)
}

func ErrVaultCorrupted(err error) *AppError {
	return Wrap("VAULT_002", "Vault data is corrupted", http.StatusUnprocessableEntity, err)
}

func ErrAlreadyInitialized() *AppError {
	return New("VAULT_003", "Vault already holds a seed", http.StatusConflict)
}

func ErrVaultLocked() *AppError {
	return New("VAULT_004", "Vault is locked", http.StatusForbidden)
}

func ErrVaultEmpty() *AppError {
	return New("VAULT_005", "Vault has no seed", http.StatusPreconditionFailed)
}

// ---- Node (NODE) ----

func ErrNodeUnreachable(err error) *AppError {
	return Wrap("NODE_001", "Ledger node unreachable", http.StatusBadGateway, err)
}

func ErrNodeConfigInvalid(err error) *AppError {
	return Wrap("NODE_002", "Invalid node configuration", http.StatusBadRequest, err)
}

// ---- Sync (SYNC) ----

func ErrSyncInProgress() *AppError {
	return New("SYNC_001", "Account sync already in progress", http.StatusConflict)
}

// ---- Transfer (XFER) ----

func ErrInsufficientBalance() *AppError {
	return New("XFER_001", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrInvalidTransfer(message string) *AppError {
	return New("XFER_002", message, http.StatusBadRequest)
}

// ---- Accounts (ACC) ----

func ErrNotFound(entity string) *AppError {
	return New("ACC_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAccountCreationRefused(message string) *AppError {
	return New("ACC_002", message, http.StatusConflict)
}

// ---- IO & System (IO / SYS) ----

func ErrIoFailure(err error) *AppError {
	return Wrap("IO_001", "Storage I/O failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal error", http.StatusInternalServerError, err)
}

// Validation reports malformed caller input.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- Node API (API) ----

func ErrUnauthorized() *AppError {
	return New("API_001", "Missing or invalid node credentials", http.StatusUnauthorized)
}

func ErrRateLimitExceeded() *AppError {
	return New("API_002", "Rate limit exceeded", http.StatusTooManyRequests)
}
